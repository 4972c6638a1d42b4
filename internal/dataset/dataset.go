// Package dataset assembles synthetic records into flat CSV artifacts.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/synth"
)

// Assembler materializes ordered record sequences from a generator.
type Assembler struct {
	gen *synth.Generator
}

// New creates an assembler around a freshly seeded generator.
func New(cfg synth.Config) *Assembler {
	return &Assembler{gen: synth.New(cfg)}
}

// Assemble generates n records in index order.
func (a *Assembler) Assemble(n int) []*domain.Record {
	records := make([]*domain.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, a.gen.Generate(i))
	}
	return records
}

// WriteCSV writes the records as a single CSV file with the fixed column
// header, creating the parent directory if needed. The file handle is held
// for one bulk write and released.
func WriteCSV(path string, records []*domain.Record) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(domain.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return f.Close()
}

// Summary describes an assembled dataset. Informational only; not part of
// the data contract.
type Summary struct {
	Rows        int            `json:"rows"`
	Columns     int            `json:"columns"`
	LabelCounts map[string]int `json:"labelCounts"`
}

// Summarize computes shape and class distribution for a record set.
func Summarize(records []*domain.Record) Summary {
	counts := make(map[string]int, len(domain.Classes))
	for _, rec := range records {
		counts[rec.CreditScore]++
	}
	return Summary{
		Rows:        len(records),
		Columns:     len(domain.Columns),
		LabelCounts: counts,
	}
}
