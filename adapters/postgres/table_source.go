package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gomca/domain/table"
	"gomca/internal"
	apperrors "gomca/internal/errors"

	"github.com/jmoiron/sqlx"
)

// QuerySource loads a categorical table from the result set of a SQL query.
// Column names become field names; every value is read as text.
type QuerySource struct {
	db     sqlx.QueryerContext
	query  string
	args   []interface{}
	label  string
	logger *internal.Logger
}

// NewQuerySource creates a table source over query
func NewQuerySource(db sqlx.QueryerContext, query string, args ...interface{}) *QuerySource {
	return &QuerySource{
		db:     db,
		query:  query,
		args:   args,
		label:  "postgres:" + firstLine(query),
		logger: internal.DefaultLogger,
	}
}

// Name returns a label derived from the query
func (s *QuerySource) Name() string { return s.label }

// Load runs the query and converts every row
func (s *QuerySource) Load(ctx context.Context) (*table.CategoricalTable, error) {
	start := time.Now()
	rows, err := s.db.QueryxContext(ctx, s.query, s.args...)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to run table query", err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, apperrors.DatabaseError("failed to read result columns", err)
	}

	var records [][]string
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, apperrors.DatabaseError(fmt.Sprintf("failed to scan row %d", len(records)), err)
		}
		records = append(records, textRecord(values))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError("failed to iterate rows", err)
	}

	s.logger.Debug("[QuerySource] %d rows × %d columns in %.2fms", len(records), len(headers), float64(time.Since(start).Nanoseconds())/1e6)
	return table.FromRows(headers, records)
}

// textRecord converts driver values to level labels. NULL becomes "" and is
// then rejected by the table as a missing value.
func textRecord(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case []byte:
			out[i] = string(x)
		case string:
			out[i] = x
		case int64:
			out[i] = strconv.FormatInt(x, 10)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		case time.Time:
			out[i] = x.UTC().Format(time.RFC3339)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

// maxLabelBytes caps the query text kept in a source label
const maxLabelBytes = 60

// firstLine returns the first line of q, cut on a rune boundary
func firstLine(q string) string {
	q = strings.TrimSpace(q)
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		q = strings.TrimSpace(q[:i])
	}
	if len(q) > maxLabelBytes {
		cut := maxLabelBytes
		for cut > 0 && !utf8.RuneStart(q[cut]) {
			cut--
		}
		q = q[:cut]
	}
	return q
}
