// Package table turns CSV artifacts into JSON records for the realtime API.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrNoHeader        = errors.New("table: missing header row")
	ErrEmptyColumn     = errors.New("table: empty column name")
	ErrDuplicateColumn = errors.New("table: duplicate column name")
)

// Options controls CSV parsing.
type Options struct {
	// Comma is the field delimiter, ',' when zero. Many exports use ';'.
	Comma rune
	// InferTypes turns integer, float and boolean cells into JSON numbers
	// and booleans instead of strings.
	InferTypes bool
}

// Table is a parsed CSV file: a header and rows of cells aligned to it.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ReadCSVFile parses the CSV file at path.
func ReadCSVFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses CSV data with a mandatory header row. Empty cells become nil.
func ReadCSV(r io.Reader, opts Options) (*Table, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = 0 // every row must match the header width

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, err
	}

	seen := make(map[string]struct{}, len(header))
	columns := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			return nil, fmt.Errorf("%w at position %d", ErrEmptyColumn, i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = struct{}{}
		columns[i] = name
	}

	t := &Table{Columns: columns}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		cells := make([]any, len(row))
		for i, raw := range row {
			cells[i] = convert(raw, opts.InferTypes)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func convert(raw string, infer bool) any {
	if raw == "" {
		return nil
	}
	if !infer {
		return raw
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		// NaN and Inf have no JSON form; they are missing values
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Records returns one Record per row sharing the table's column order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = Record{columns: t.Columns, values: row}
	}
	return out
}

// Record is a row that marshals to a JSON object with keys in column order.
type Record struct {
	columns []string
	values  []any
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Batches splits records into consecutive chunks of at most size records.
func Batches[T any](records []T, size int) [][]T {
	if size <= 0 || len(records) <= size {
		if len(records) == 0 {
			return nil
		}
		return [][]T{records}
	}

	out := make([][]T, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}
