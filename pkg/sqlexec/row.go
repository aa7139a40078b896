package sqlexec

import (
	"bytes"
	"encoding/json"
)

// Row is one result row. Columns keeps the select-list order.
type Row struct {
	Columns []string
	Values  map[string]any
}

func NewRow(columns []string, values []any) Row {
	row := Row{Columns: columns, Values: make(map[string]any, len(columns))}
	for i, col := range columns {
		if i < len(values) {
			row.Values[col] = values[i]
		}
	}
	return row
}

// Get returns the value of the first of names present in the row.
func (r Row) Get(names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := r.Values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
