package fs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flux-climatology/internal/domain"
)

// RegionalWriter writes the final month/average table.
type RegionalWriter struct {
	path string
}

// NewRegionalWriter creates a writer for path.
func NewRegionalWriter(path string) *RegionalWriter {
	return &RegionalWriter{path: path}
}

// Path returns the output file path.
func (w *RegionalWriter) Path() string { return w.path }

// WriteRegional writes twelve "<month>\t<average>" lines, creating the parent
// directory if needed.
func (w *RegionalWriter) WriteRegional(r domain.RegionalAverage) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return writeFileAtomic(w.path, EncodeRegional(r))
}

// EncodeRegional formats the month as an integer and the average with two
// decimals; months without data print as NaN.
func EncodeRegional(r domain.RegionalAverage) []byte {
	var buf bytes.Buffer
	for _, row := range r.Rows() {
		fmt.Fprintf(&buf, "%d\t%.2f\n", row.Month, row.Value)
	}
	return buf.Bytes()
}
