package excel

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gomca/domain/table"
	"gomca/internal"
	apperrors "gomca/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is read when no sheet is configured
const DefaultSheet = "Sheet1"

const byteOrderMark = "\ufeff"

// DataReader reads categorical tables from Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// Option configures a DataReader
type Option func(*DataReader)

// WithSheet selects the worksheet of an xlsx file
func WithSheet(sheet string) Option {
	return func(r *DataReader) {
		if sheet != "" {
			r.sheet = sheet
		}
	}
}

// WithLogger replaces the default logger
func WithLogger(logger *internal.Logger) Option {
	return func(r *DataReader) { r.logger = logger }
}

// NewDataReader creates a reader; the file type follows the extension
func NewDataReader(filePath string, opts ...Option) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	r := &DataReader{filePath: filePath, fileType: fileType, sheet: DefaultSheet, logger: internal.DefaultLogger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the file path
func (r *DataReader) Name() string { return r.filePath }

// Load reads the file into a categorical table. The first row holds field names.
func (r *DataReader) Load(ctx context.Context) (*table.CategoricalTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return table.FromRows(data.Headers, data.Rows)
}

// ReadData reads the raw header and rows
func (r *DataReader) ReadData() (*Data, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, apperrors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported file type: %s", r.fileType))
	}
}

func (r *DataReader) readExcelData() (*Data, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read %s", r.sheet)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", r.sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

func (r *DataReader) readCSVData() (*Data, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV parses CSV text with a header row
func ReadCSV(in io.Reader) (*Data, error) {
	reader := csv.NewReader(skipByteOrderMark(in))
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "failed to read CSV", Cause: err}
	}
	return (&DataReader{fileType: "csv", logger: internal.DefaultLogger}).processRows(rows)
}

// skipByteOrderMark drops a leading UTF-8 BOM so a quoted first header still parses
func skipByteOrderMark(in io.Reader) io.Reader {
	br := bufio.NewReader(in)
	if lead, err := br.Peek(len(byteOrderMark)); err == nil && string(lead) == byteOrderMark {
		br.Discard(len(byteOrderMark))
	}
	return br
}

func (r *DataReader) processRows(rows [][]string) (*Data, error) {
	if len(rows) < 1 || len(rows[0]) == 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s file has no header row", strings.ToUpper(r.fileType)))
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	// Excel's "CSV UTF-8" export starts the file with a byte-order mark
	headers[0] = strings.TrimSpace(strings.TrimPrefix(headers[0], byteOrderMark))

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		data = append(data, row)
	}

	r.logger.Debug("[DataReader] %s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(data))
	return &Data{Headers: headers, Rows: data}, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
