package fs

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/flux-climatology/internal/domain"
)

// maxLineBytes bounds a single flux line; VIC output rows are well under 1 KiB.
const maxLineBytes = 1 << 20

// FluxReader discovers and streams raw cell files from a directory.
// It implements pipeline.FluxSource.
type FluxReader struct {
	dir    string
	logger *slog.Logger
}

// NewFluxReader creates a reader over dir.
func NewFluxReader(dir string, logger *slog.Logger) *FluxReader {
	return &FluxReader{dir: dir, logger: logger}
}

// Discover lists every fluxes_<lat>_<lon> file in the directory, sorted by
// name. Editor backups ending in "~" are skipped. A file that carries the flux
// prefix but not a parseable cell name is still listed, with Err set, so the
// caller can fail it alongside files with bad records.
func (r *FluxReader) Discover() ([]domain.FluxFile, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var files []domain.FluxFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, domain.FluxPrefix) {
			continue
		}
		if strings.HasSuffix(name, "~") {
			r.logger.Debug("skipping editor backup", "file", name)
			continue
		}
		path := filepath.Join(r.dir, name)
		cell, err := domain.ParseFluxName(name)
		if err != nil {
			r.logger.Warn("flux file name not recognized", "file", path, "error", err)
			files = append(files, domain.FluxFile{Path: path, Err: &domain.ParseError{File: path, Err: err}})
			continue
		}
		files = append(files, domain.FluxFile{Path: path, Cell: cell})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ReadRecords parses path line by line and hands each record to fn. It stops
// at the first malformed line or fn error and reports it as a
// *domain.ParseError carrying the 1-based line number. Blank lines are
// ignored. It returns the number of records delivered.
func (r *FluxReader) ReadRecords(path string, fn func(domain.DailyRecord) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var line, n int
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := domain.ParseRecord(text)
		if err != nil {
			return n, &domain.ParseError{File: path, Line: line, Err: err}
		}
		if err := fn(rec); err != nil {
			return n, &domain.ParseError{File: path, Line: line, Err: err}
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, &domain.ParseError{File: path, Line: line + 1, Err: err}
	}
	return n, nil
}
