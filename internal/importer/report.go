package importer

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/google/renameio/v2"
)

var reportHeader = []string{"line", "reason", "content"}

// WriteRejections writes rejections as CSV to path. The file is replaced
// atomically, so readers never observe a partial report.
func WriteRejections(path string, rejections []Rejection) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending report: %w", err)
	}
	defer pending.Cleanup()

	w := csv.NewWriter(pending)
	if err := w.Write(reportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, r := range rejections {
		if err := w.Write([]string{strconv.Itoa(r.Line), r.Reason, r.Content}); err != nil {
			return fmt.Errorf("write report line %d: %w", r.Line, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}
