package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Row gives typed, by-name access to the cells of one data row.
// Lookups of columns missing from the header, or beyond the end of a short
// row, behave as an empty cell.
type Row struct {
	// Record is the 1-based record number, header = 1. Blank lines and
	// quoted line breaks make it differ from the line in the file.
	Record int
	Cells  []string
	idx    HeaderIndex
}

// NewRow binds cells to a header index.
func NewRow(cells []string, idx HeaderIndex, record int) Row {
	return Row{Record: record, Cells: cells, idx: idx}
}

// Has reports whether the header defines col.
func (r Row) Has(col string) bool {
	_, ok := r.idx[strings.ToLower(col)]
	return ok
}

// Raw returns the untrimmed cell for col.
func (r Row) Raw(col string) string {
	pos, ok := r.idx[strings.ToLower(col)]
	if !ok || pos >= len(r.Cells) {
		return ""
	}
	return r.Cells[pos]
}

// Text returns the trimmed cell for col.
func (r Row) Text(col string) string {
	return strings.TrimSpace(r.Raw(col))
}

// Lower returns the trimmed, lowercased cell for col.
func (r Row) Lower(col string) string {
	return strings.ToLower(r.Text(col))
}

// Float returns the cell as float64, or def when blank or invalid.
func (r Row) Float(col string, def float64) float64 {
	if f, ok := ParseFloat(r.Raw(col)); ok {
		return f
	}
	return def
}

// FloatPtr returns the cell as *float64, or nil when blank or invalid.
func (r Row) FloatPtr(col string) *float64 {
	if f, ok := ParseFloat(r.Raw(col)); ok {
		return &f
	}
	return nil
}

// Int returns the cell as int, or def when blank or invalid.
func (r Row) Int(col string, def int) int {
	if i, ok := ParseInt(r.Raw(col)); ok {
		return i
	}
	return def
}

// IntPtr returns the cell as *int, or nil when blank or invalid.
func (r Row) IntPtr(col string) *int {
	if i, ok := ParseInt(r.Raw(col)); ok {
		return &i
	}
	return nil
}

// Bool reports whether the cell is "true".
func (r Row) Bool(col string) bool {
	return ParseBool(r.Raw(col))
}

// List splits the cell on sep.
func (r Row) List(col, sep string) []string {
	return SplitList(r.Raw(col), sep)
}

// PadRow returns row extended with empty strings up to width.
// Rows already at least width long are returned unchanged.
func PadRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// CheckColumns returns an error naming every required column missing from idx.
// The identifier column is always required.
func CheckColumns(def EntityDefinition, idx HeaderIndex) error {
	var missing []string
	if def.Info.IDColumn != "" {
		if _, ok := idx[strings.ToLower(def.Info.IDColumn)]; !ok {
			missing = append(missing, def.Info.IDColumn)
		}
	}
	for _, spec := range def.FieldSpecs {
		if !spec.Required || strings.EqualFold(spec.Name, def.Info.IDColumn) {
			continue
		}
		if _, ok := idx[strings.ToLower(spec.Name)]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required column %s", strings.Join(missing, ", "))
	}
	return nil
}

// MapRows turns parsed rows (header first) into records using def.
//
// Short rows are padded to the header width. Blank rows are ignored, rows
// without an identifier are skipped, and rows whose filter column is not
// "true" are filtered out. Output order follows input order.
func MapRows(rows [][]string, def EntityDefinition) (MapResult, error) {
	var res MapResult
	if len(rows) == 0 {
		return res, fmt.Errorf("empty file: no header row")
	}

	header := rows[0]
	idx := MakeHeaderIndex(header)
	if err := CheckColumns(def, idx); err != nil {
		return res, err
	}

	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		res.Total++

		row := NewRow(PadRow(cells, len(header)), idx, i+2)

		if def.Info.IDColumn != "" && row.Text(def.Info.IDColumn) == "" {
			res.Skipped++
			continue
		}
		if def.Info.FilterColumn != "" && !row.Bool(def.Info.FilterColumn) {
			res.Filtered++
			continue
		}

		rec, err := def.Build(row)
		if err != nil {
			res.Failed = append(res.Failed, FailedRow{Record: row.Record, Reason: err.Error(), Data: cells})
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is a rule-mapped row whose JSON encoding keeps field order.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the record as an object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MapRow applies specs to row. Numeric fields marked Omit are left out of
// the record when blank or invalid; otherwise they default to 0.
func MapRow(row Row, specs []FieldSpec) Record {
	rec := make(Record, 0, len(specs))
	for _, spec := range specs {
		key := spec.OutputKey()
		switch spec.Type {
		case FieldLower:
			rec = append(rec, Field{key, row.Lower(spec.Name)})
		case FieldFloat:
			if f, ok := ParseFloat(row.Raw(spec.Name)); ok {
				rec = append(rec, Field{key, f})
			} else if !spec.Omit {
				rec = append(rec, Field{key, 0.0})
			}
		case FieldInt:
			if i, ok := ParseInt(row.Raw(spec.Name)); ok {
				rec = append(rec, Field{key, i})
			} else if !spec.Omit {
				rec = append(rec, Field{key, 0})
			}
		case FieldBool:
			rec = append(rec, Field{key, row.Bool(spec.Name)})
		default:
			rec = append(rec, Field{key, row.Text(spec.Name)})
		}
	}
	return rec
}

// RuleBuilder returns a BuildFunc that maps rows with MapRow.
func RuleBuilder(specs []FieldSpec) BuildFunc {
	return func(row Row) (any, error) {
		return MapRow(row, specs), nil
	}
}

// RecordID returns a string identifier stored under key in a Record.
func RecordID(key string) IDFunc {
	return func(record any) string {
		rec, ok := record.(Record)
		if !ok {
			return ""
		}
		v, _ := rec.Get(key)
		switch v := v.(type) {
		case string:
			return v
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
}
