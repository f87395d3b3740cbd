package codec

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vault/domain"
)

// ── CSV codec ──────────────────────────────────────────────
// Two-line files: a header row of column names and one record row.
// Values are inferred back to number/bool on parse, so a numeric column
// round-trips as float64 rather than text.

type csvCodec struct{}

func init() { Register(csvCodec{}) }

// CSV returns the CSV row codec.
func CSV() domain.Codec { return csvCodec{} }

func (csvCodec) ID() string            { return "csv" }
func (csvCodec) FileExtension() string { return "csv" }
func (csvCodec) MIMEType() string      { return "text/csv" }

func (csvCodec) Parse(text string) (domain.Row, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv row: %w", err)
	}
	if len(records) != 2 {
		return nil, fmt.Errorf("parse csv row: expected header and one record, got %d line(s)", len(records))
	}

	headers, values := records[0], records[1]
	if len(values) != len(headers) {
		return nil, fmt.Errorf("parse csv row: %d header(s) but %d value(s)", len(headers), len(values))
	}

	row := make(domain.Row, len(headers))
	for i, h := range headers {
		if v := inferValue(values[i]); v != nil {
			row[h] = v
		}
	}
	return row, nil
}

func (csvCodec) Stringify(row domain.Row) (string, error) {
	cols := make([]string, 0, len(row))
	for col, v := range row {
		if v == nil {
			continue
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	values := make([]string, len(cols))
	for i, col := range cols {
		values[i] = formatValue(row[col])
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return "", fmt.Errorf("stringify csv row: %w", err)
	}
	if err := w.Write(values); err != nil {
		return "", fmt.Errorf("stringify csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("stringify csv row: %w", err)
	}
	return buf.String(), nil
}

// inferValue tries to parse a string as a number or bool.
func inferValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	case bool:
		return strconv.FormatBool(n)
	case string:
		return n
	default:
		return fmt.Sprint(v)
	}
}
