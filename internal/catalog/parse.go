package catalog

import "strings"

// Delimiter separates fields in a catalog export line.
const Delimiter = ','

// SplitLine splits one line into raw fields on Delimiter, ignoring
// delimiters between a pair of double quotes. Quotes are kept in the
// returned fields; CleanField removes them.
//
// An empty line yields a single empty field.
func SplitLine(line string) []string {
	fields := make([]string, 0, 16)
	inQuotes := false
	start := 0

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case Delimiter:
			if !inQuotes {
				fields = append(fields, line[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, line[start:])
}

// CleanField trims whitespace and removes one layer of wrapping double
// quotes. Quotes inside the field, doubled or not, are kept as they are.
func CleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
