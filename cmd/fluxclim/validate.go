package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/cobra"

	fsadapter "github.com/couchcryptid/flux-climatology/internal/adapter/fs"
	"github.com/couchcryptid/flux-climatology/internal/config"
	"github.com/couchcryptid/flux-climatology/internal/domain"
	"github.com/couchcryptid/flux-climatology/internal/pipeline"
)

// errValidation is returned when any validation phase fails.
var errValidation = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped string
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check flux files and stored climatologies without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return validate(cmd.Context(), cmd.OutOrStdout(), cfg())
		},
	}
}

func validate(ctx context.Context, w io.Writer, cfg *config.Config) error {
	reader := fsadapter.NewFluxReader(cfg.InputDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	store := fsadapter.NewClimatologyStore(cfg.IntermediatePath())

	names := &phase{name: "Flux file names"}
	records := &phase{name: "Record parsing and ordering"}
	coverage := &phase{name: "Monthly coverage"}
	stored := &phase{name: "Stored climatologies match flux files"}

	files, err := reader.Discover()
	switch {
	case err != nil:
		names.errorf("%v", err)
	case len(files) == 0:
		names.errorf("no flux files in %s", cfg.InputDir)
	}

	reduced := make(map[string]domain.Climatology, len(files))
	var nRecords int
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Err != nil {
			names.errorf("%v", f.Err)
			continue
		}
		r := domain.NewTemporalReducer(f.Cell)
		n, err := reader.ReadRecords(f.Path, r.Add)
		nRecords += n
		if err != nil {
			records.errorf("%v", err)
			continue
		}
		if n == 0 {
			records.errorf("%s: %v", f.Path, pipeline.ErrEmptyFlux)
			continue
		}
		c := r.Finish()
		if missing := c.MissingMonths(); len(missing) > 0 {
			coverage.errorf("%s: no data for months %v", f.Cell, missing)
		}
		reduced[f.Cell.String()] = c
	}

	checkStored(stored, store, reduced)

	phases := []*phase{names, records, coverage, stored}
	printPhases(w, phases)
	fmt.Fprintf(w, "\nFiles: %d flux, %d reduced; records: %d\n", len(files), len(reduced), nRecords)

	for _, p := range phases {
		if !p.passed() {
			return errValidation
		}
	}
	return nil
}

// climatologyOpts compares a fresh reduction with its six-decimal stored form.
// Year counts are not persisted.
var climatologyOpts = cmp.Options{
	cmpopts.IgnoreFields(domain.Climatology{}, "Years"),
	cmpopts.EquateApprox(0, 1e-6),
	cmpopts.EquateNaNs(),
}

func checkStored(p *phase, store *fsadapter.ClimatologyStore, reduced map[string]domain.Climatology) {
	cells, err := store.ReadAll()
	if errors.Is(err, fs.ErrNotExist) {
		p.skipped = "no intermediate directory"
		return
	}
	if err != nil {
		p.errorf("%v", err)
		return
	}

	seen := make(map[string]bool, len(cells))
	for _, got := range cells {
		key := got.Cell.String()
		seen[key] = true
		want, ok := reduced[key]
		if !ok {
			p.errorf("%s: stored climatology has no valid flux file", key)
			continue
		}
		if diff := cmp.Diff(want, got, climatologyOpts); diff != "" {
			p.errorf("%s: stored climatology is out of date (-flux +stored):\n%s", key, diff)
		}
	}

	missing := make([]string, 0)
	for key := range reduced {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		p.errorf("%s: not reduced yet", key)
	}
}

func printPhases(w io.Writer, phases []*phase) {
	for _, p := range phases {
		status := "PASS"
		switch {
		case p.skipped != "":
			status = "SKIP (" + p.skipped + ")"
		case !p.passed():
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}
}
