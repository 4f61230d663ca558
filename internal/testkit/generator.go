package testkit

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"gomca/domain/table"
)

// Dataset is a synthetic aggressiveness × SIX-gene expression table.
//
// Columns:
// - Aggressiveness (Aggressive, Moderately Aggressive, Hypo Aggressive)
// - SIX1..SIX<Genes> ("0" not expressed, "1" expressed)
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// AggressivenessLevels in clinical order
var AggressivenessLevels = []string{"Aggressive", "Moderately Aggressive", "Hypo Aggressive"}

// ClassField is the header of the class column
const ClassField = "Aggressiveness"

type Config struct {
	Rows  int
	Seed  int64
	Genes int

	// Expression probability of a gene that is not linked to the sample's class
	BaseRate float64
	// Added to BaseRate when gene i is linked to class i mod 3
	Signal float64
}

func DefaultConfig() Config {
	return Config{
		Rows:     90,
		Seed:     42,
		Genes:    12,
		BaseRate: 0.3,
		Signal:   0.45,
	}
}

// GenerateDataset draws a dataset. The first rows cycle through every class
// and both expression states so no field is ever degenerate.
func GenerateDataset(cfg Config) (*Dataset, error) {
	if cfg.Rows < len(AggressivenessLevels) {
		return nil, fmt.Errorf("rows must be >= %d", len(AggressivenessLevels))
	}
	if cfg.Genes <= 0 {
		return nil, fmt.Errorf("genes must be > 0")
	}
	if p := cfg.BaseRate + cfg.Signal; cfg.BaseRate < 0 || p > 1 {
		return nil, fmt.Errorf("base rate %.2f + signal %.2f must stay within [0, 1]", cfg.BaseRate, cfg.Signal)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	headers := make([]string, 0, cfg.Genes+1)
	headers = append(headers, ClassField)
	for g := 1; g <= cfg.Genes; g++ {
		headers = append(headers, "SIX"+strconv.Itoa(g))
	}

	rows := make([][]string, cfg.Rows)
	for i := range rows {
		class := rng.Intn(len(AggressivenessLevels))
		if i < len(AggressivenessLevels) {
			class = i
		}

		row := make([]string, 0, len(headers))
		row = append(row, AggressivenessLevels[class])
		for g := 0; g < cfg.Genes; g++ {
			p := cfg.BaseRate
			if g%len(AggressivenessLevels) == class {
				p += cfg.Signal
			}
			expressed := rng.Float64() < p
			switch i {
			case 0:
				expressed = false
			case 1:
				expressed = true
			}
			if expressed {
				row = append(row, "1")
			} else {
				row = append(row, "0")
			}
		}
		rows[i] = row
	}

	return &Dataset{Headers: headers, Rows: rows}, nil
}

// Table converts the dataset into a categorical table with a declared class level set
func (ds *Dataset) Table() (*table.CategoricalTable, error) {
	fields := make([]table.Field, len(ds.Headers))
	for i, h := range ds.Headers {
		fields[i] = table.Field{Name: h}
		if h == ClassField {
			fields[i].Levels = AggressivenessLevels
		}
	}
	return table.New(fields, ds.Rows, table.WithClassField(ClassField))
}

// Generate draws a dataset and returns it as a table
func Generate(cfg Config) (*table.CategoricalTable, error) {
	ds, err := GenerateDataset(cfg)
	if err != nil {
		return nil, err
	}
	return ds.Table()
}

func WriteCSV(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.Headers); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func WriteXLSX(path string, ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	// Ensure Sheet1 exists and is active.
	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}

	for i, h := range ds.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r := 0; r < len(ds.Rows); r++ {
		rowIdx := r + 2
		for c, v := range ds.Rows[r] {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
