package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/synth"
)

func TestAssembleRowCount(t *testing.T) {
	for _, n := range []int{0, 1, 10, 250} {
		a := New(synth.DefaultConfig())
		records := a.Assemble(n)
		if len(records) != n {
			t.Errorf("Assemble(%d) returned %d records", n, len(records))
		}
	}
}

func TestAssembleDeterminism(t *testing.T) {
	cfg := synth.Config{Seed: 42, LabelNoiseRate: 0.1}

	first := New(cfg).Assemble(100)
	second := New(cfg).Assemble(100)

	for i := range first {
		if !reflect.DeepEqual(first[i], second[i]) {
			t.Fatalf("record %d differs between identically seeded assemblies", i)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()

	t.Run("HeaderAndRows", func(t *testing.T) {
		path := filepath.Join(dir, "out", "credit_score_data.csv")

		a := New(synth.DefaultConfig())
		records := a.Assemble(25)

		if err := WriteCSV(path, records); err != nil {
			t.Fatalf("WriteCSV failed: %v", err)
		}

		rows := readCSV(t, path)
		if len(rows) != 26 {
			t.Fatalf("expected 26 rows (header + 25), got %d", len(rows))
		}
		if !reflect.DeepEqual(rows[0], domain.Columns) {
			t.Errorf("header mismatch:\ngot  %v\nwant %v", rows[0], domain.Columns)
		}
		for i, row := range rows[1:] {
			if len(row) != len(domain.Columns) {
				t.Errorf("row %d has %d cells, want %d", i, len(row), len(domain.Columns))
			}
		}
	})

	t.Run("ZeroRows", func(t *testing.T) {
		// N = 0 produces a header-only artifact, no error.
		path := filepath.Join(dir, "empty.csv")

		if err := WriteCSV(path, nil); err != nil {
			t.Fatalf("WriteCSV with zero records failed: %v", err)
		}

		rows := readCSV(t, path)
		if len(rows) != 1 {
			t.Errorf("expected header-only file, got %d rows", len(rows))
		}
	})

	t.Run("CreatesMissingDirectory", func(t *testing.T) {
		path := filepath.Join(dir, "deeply", "nested", "raw", "data.csv")

		if err := WriteCSV(path, New(synth.DefaultConfig()).Assemble(1)); err != nil {
			t.Fatalf("WriteCSV failed to create directories: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("output file missing: %v", err)
		}
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		err := WriteCSV(filepath.Join(dir, "empty.csv", "impossible.csv"), nil)
		if err == nil {
			t.Error("expected error writing under a file path")
		}
	})
}

func TestSummarize(t *testing.T) {
	a := New(synth.DefaultConfig())
	records := a.Assemble(200)

	sum := Summarize(records)

	if sum.Rows != 200 {
		t.Errorf("expected 200 rows, got %d", sum.Rows)
	}
	if sum.Columns != len(domain.Columns) {
		t.Errorf("expected %d columns, got %d", len(domain.Columns), sum.Columns)
	}

	total := 0
	for _, c := range sum.LabelCounts {
		total += c
	}
	if total != 200 {
		t.Errorf("label counts sum to %d, want 200", total)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return rows
}
