package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestGenerateDataset_Shape(t *testing.T) {
	cfg := DefaultConfig()
	ds, err := GenerateDataset(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(ds.Headers) != cfg.Genes+1 {
		t.Fatalf("expected %d headers, got %d", cfg.Genes+1, len(ds.Headers))
	}
	if ds.Headers[0] != ClassField || ds.Headers[12] != "SIX12" {
		t.Fatalf("unexpected headers: %v", ds.Headers)
	}
	if len(ds.Rows) != cfg.Rows {
		t.Fatalf("expected %d rows, got %d", cfg.Rows, len(ds.Rows))
	}

	// every field has at least two observed levels
	for c := range ds.Headers {
		seen := map[string]bool{}
		for _, row := range ds.Rows {
			seen[row[c]] = true
		}
		if len(seen) < 2 {
			t.Errorf("column %s has a single level", ds.Headers[c])
		}
	}
}

func TestGenerateDataset_Deterministic(t *testing.T) {
	a, err := GenerateDataset(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateDataset(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i := range a.Rows {
		if strings.Join(a.Rows[i], ",") != strings.Join(b.Rows[i], ",") {
			t.Fatalf("row %d differs between identical seeds", i)
		}
	}
}

func TestGenerateDataset_SignalLinksGenesToClass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows = 900
	ds, err := GenerateDataset(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// SIX1 (gene index 0) is linked to "Aggressive"
	var linked, linkedOn, other, otherOn int
	for _, row := range ds.Rows {
		if row[0] == "Aggressive" {
			linked++
			if row[1] == "1" {
				linkedOn++
			}
		} else {
			other++
			if row[1] == "1" {
				otherOn++
			}
		}
	}
	rateLinked := float64(linkedOn) / float64(linked)
	rateOther := float64(otherOn) / float64(other)
	if rateLinked < rateOther+0.2 {
		t.Fatalf("expected linked expression rate to exceed others by a margin; linked=%.3f other=%.3f", rateLinked, rateOther)
	}
}

func TestGenerateDataset_RejectsBadConfig(t *testing.T) {
	bad := []Config{
		{Rows: 2, Genes: 1},
		{Rows: 10, Genes: 0},
		{Rows: 10, Genes: 1, BaseRate: 0.8, Signal: 0.5},
	}
	for _, cfg := range bad {
		if _, err := GenerateDataset(cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestGenerate_Table(t *testing.T) {
	tbl, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if tbl.ClassField() != ClassField {
		t.Fatalf("expected class field %q, got %q", ClassField, tbl.ClassField())
	}
	if got := len(tbl.MarkerFields()); got != 12 {
		t.Fatalf("expected 12 marker fields, got %d", got)
	}
}

func TestWriteCSVAndXLSX(t *testing.T) {
	ds, err := GenerateDataset(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "six.csv")
	if err := WriteCSV(csvPath, ds); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	raw, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(raw), "Aggressiveness,SIX1,") {
		t.Fatalf("unexpected csv header: %q", strings.SplitN(string(raw), "\n", 2)[0])
	}

	xlsxPath := filepath.Join(dir, "six.xlsx")
	if err := WriteXLSX(xlsxPath, ds); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if len(rows) != len(ds.Rows)+1 {
		t.Fatalf("expected %d xlsx rows, got %d", len(ds.Rows)+1, len(rows))
	}
}
