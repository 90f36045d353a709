package fs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/flux-climatology/internal/domain"
)

// missingToken marks a month with no data in an intermediate file.
const missingToken = "NaN"

// ClimatologyStore persists one file of twelve monthly values per cell. It is
// the only hand-off between the reduce and aggregate stages.
type ClimatologyStore struct {
	dir string
}

// NewClimatologyStore creates a store rooted at dir.
func NewClimatologyStore(dir string) *ClimatologyStore {
	return &ClimatologyStore{dir: dir}
}

// Dir returns the store directory.
func (s *ClimatologyStore) Dir() string { return s.dir }

// Prepare creates the store directory if it does not exist.
func (s *ClimatologyStore) Prepare() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create intermediate dir: %w", err)
	}
	return nil
}

// Path returns where cell's climatology is stored.
func (s *ClimatologyStore) Path(cell domain.CellID) string {
	return filepath.Join(s.dir, cell.IntermediateName())
}

// Write stores c, replacing any previous file for the same cell.
func (s *ClimatologyStore) Write(c domain.Climatology) error {
	return writeFileAtomic(s.Path(c.Cell), EncodeClimatology(c))
}

// Remove deletes the stored file for cell. A missing file is not an error.
func (s *ClimatologyStore) Remove(cell domain.CellID) error {
	err := os.Remove(s.Path(cell))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", cell.IntermediateName(), err)
	}
	return nil
}

// ReadAll loads every stored climatology, sorted by file name. Editor backups
// and temporary files are skipped.
func (s *ClimatologyStore) ReadAll() ([]domain.Climatology, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read intermediate dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, domain.IntermediatePrefix) || strings.HasSuffix(name, "~") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.Climatology, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		cell, err := domain.ParseIntermediateName(name)
		if err != nil {
			return nil, &domain.ParseError{File: path, Err: err}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		c, err := DecodeClimatology(cell, data)
		if err != nil {
			var pe *domain.ParseError
			if errors.As(err, &pe) {
				pe.File = path
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// EncodeClimatology renders twelve lines, one value per month with six
// decimals; missing months are written as NaN.
func EncodeClimatology(c domain.Climatology) []byte {
	var buf bytes.Buffer
	for i, v := range c.Values {
		if c.Present[i] {
			buf.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
		} else {
			buf.WriteString(missingToken)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DecodeClimatology parses the EncodeClimatology format. Errors are
// *domain.ParseError with the line number set.
func DecodeClimatology(cell domain.CellID, data []byte) (domain.Climatology, error) {
	c := domain.Climatology{Cell: cell}
	sc := bufio.NewScanner(bytes.NewReader(data))

	var line, month int
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if month == 12 {
			return c, &domain.ParseError{Line: line, Err: errors.New("more than 12 monthly values")}
		}
		if text == missingToken {
			month++
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return c, &domain.ParseError{Line: line, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return c, &domain.ParseError{Line: line, Err: fmt.Errorf("%q: %w", text, domain.ErrNonFinite)}
		}
		c.Values[month] = v
		c.Present[month] = true
		month++
	}
	if err := sc.Err(); err != nil {
		return c, &domain.ParseError{Err: err}
	}
	if month != 12 {
		return c, &domain.ParseError{Err: fmt.Errorf("expected 12 monthly values, got %d", month)}
	}
	return c, nil
}

// writeFileAtomic writes data next to path and renames it into place so a
// reader never observes a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
