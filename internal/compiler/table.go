package compiler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepsim/internal/ir"
)

// LoadTable reads a time-indexed table file into an ir.Array of ir.Object
// rows. Row i drives timestep i+1.
//
// Supported formats, by extension:
//   - .csv: header row, then one record per line. Cells are inferred as
//     Int, then Float, then String; an empty cell is Null.
//   - .json: an array of objects.
//   - .yaml, .yml: a sequence of mappings.
func LoadTable(path string) (ir.Array, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeTableFailed, Message: fmt.Sprintf("read table: %v", err)}
	}

	var rows ir.Array
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = parseCSV(data)
	case ".json":
		rows, err = parseJSONTable(data)
	case ".yaml", ".yml":
		rows, err = parseYAMLTable(data)
	default:
		err = fmt.Errorf("unsupported table format %q", ext)
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeTableFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return rows, nil
}

func parseCSV(data []byte) (ir.Array, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return ir.Array{}, nil
	}
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if h == "" {
			return nil, fmt.Errorf("empty column name in header")
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
	}

	rows := ir.Array{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(ir.Object, len(header))
		for i, h := range header {
			row[h] = inferCell(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// inferCell types a CSV cell: Int, then finite Float, then String.
func inferCell(s string) ir.Value {
	if s == "" {
		return ir.Null{}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return ir.Float(f)
	}
	return ir.String(s)
}

func parseJSONTable(data []byte) (ir.Array, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	return checkRows(v)
}

func parseYAMLTable(data []byte) (ir.Array, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return ir.Array{}, nil
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, err
	}
	return checkRows(v)
}

func checkRows(v ir.Value) (ir.Array, error) {
	rows, ok := v.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("table must be a list of rows, got %s", ir.TypeName(v))
	}
	for i, row := range rows {
		if _, ok := row.(ir.Object); !ok {
			return nil, fmt.Errorf("row %d must be an object, got %s", i, ir.TypeName(row))
		}
	}
	return rows, nil
}
