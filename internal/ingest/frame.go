package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"energy_harmonizer/internal/model"
)

// ToFrame converts a table written by export.WriteCSV back into a frame. The
// first column must be DateTime. Empty cells are missing, numeric cells are
// numbers and everything else is text.
func ToFrame(t model.SourceTable, name string) (model.Frame, error) {
	if len(t.Header) == 0 || t.Header[0] != model.ColDateTime {
		return model.Frame{}, &model.MissingColumnError{Table: t.ID, Column: model.ColDateTime}
	}
	f := model.Frame{
		Name:    name,
		Columns: append([]string(nil), t.Header[1:]...),
		Rows:    make([]model.Record, 0, len(t.Rows)),
	}
	for i, row := range t.Rows {
		ts, err := time.Parse(model.DateTimeLayout, strings.TrimSpace(row[0]))
		if err != nil {
			return model.Frame{}, &model.DataIntegrityError{
				Table:  t.ID,
				Column: model.ColDateTime,
				Row:    i + 1,
				Reason: fmt.Sprintf("invalid timestamp %q", row[0]),
			}
		}
		values := make([]model.Value, len(f.Columns))
		for j := range f.Columns {
			if j+1 >= len(row) {
				values[j] = model.Missing()
				continue
			}
			values[j] = cellValue(row[j+1])
		}
		f.Rows = append(f.Rows, model.Record{DateTime: ts, Values: values})
	}
	return f, nil
}

func cellValue(s string) model.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Missing()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return model.Num(v)
	}
	return model.Text(s)
}

// ReadFrame reads a delimited UTF-8 file written by export.WriteCSV.
func ReadFrame(path string, delimiter rune) (model.Frame, error) {
	t, err := ReadFile(path, NewTableParser(delimiter, "utf-8"), Source{})
	if err != nil {
		return model.Frame{}, err
	}
	return ToFrame(t, "merged")
}
