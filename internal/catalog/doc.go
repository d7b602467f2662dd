// Package catalog turns rows of a catalog export into typed records.
//
// It holds the parts of the importer that have no storage or transport
// dependencies:
//
//   - Records: the movie/anime entries persisted by the importer.
//   - Layouts: fixed mappings from logical field to source column index,
//     registered by name (see the layouts subpackage for the built-ins).
//   - Parsing: [SplitLine] splits one line on commas that are not inside
//     a quoted field.
//   - Normalizing: [Decode] cleans and coerces each raw field.
//
// # Rejections
//
// [Decode] reports a line that cannot become a record as an error value:
//
//   - [*MalformedLineError]: fewer fields than the layout needs
//   - [*InvalidYearError]: no usable 4-digit release year
//   - [ErrMissingTitle]: empty title
//
// Every other field degrades to a default instead of rejecting the line.
// In particular an unparseable external score becomes 0.0, so a stored
// score of 0.0 cannot be told apart from a genuine zero.
package catalog
