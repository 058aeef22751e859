package model

import (
	"math"
	"sort"
	"strconv"
	"time"
)

type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
)

// Value is a single cell of a Frame. The zero Value is missing.
type Value struct {
	kind ValueKind
	num  float64
	text string
}

// Num returns a numeric value. NaN becomes missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a text value. The empty string becomes missing.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

func Missing() Value { return Value{} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric content of v.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return math.NaN(), false
	}
	return v.num, true
}

// String renders v for delimited output. Missing values render empty.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Interface returns nil, a float64 or a string.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	default:
		return nil
	}
}

// Record is one row of a Frame.
type Record struct {
	DateTime time.Time
	Values   []Value
}

// Frame is a table keyed by a DateTime column. Columns excludes the key.
type Frame struct {
	Name    string
	Columns []string
	Rows    []Record
}

func (f Frame) Len() int { return len(f.Rows) }

// ColumnIndex returns the position of name among the non-key columns, or -1.
func (f Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of row i in column name; missing if the column is unknown.
func (f Frame) Value(i int, name string) Value {
	j := f.ColumnIndex(name)
	if j < 0 || j >= len(f.Rows[i].Values) {
		return Missing()
	}
	return f.Rows[i].Values[j]
}

// Header returns the full header including the DateTime key.
func (f Frame) Header() []string {
	return append([]string{ColDateTime}, f.Columns...)
}

// SortedByDateTime returns a copy of f with rows stably sorted ascending by DateTime.
func (f Frame) SortedByDateTime() Frame {
	out := Frame{Name: f.Name, Columns: append([]string(nil), f.Columns...), Rows: make([]Record, len(f.Rows))}
	copy(out.Rows, f.Rows)
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].DateTime.Before(out.Rows[j].DateTime)
	})
	return out
}

// DistinctDateTimes returns the sorted set of DateTimes present in f.
func (f Frame) DistinctDateTimes() []time.Time {
	seen := make(map[int64]bool, len(f.Rows))
	var out []time.Time
	for _, r := range f.Rows {
		k := r.DateTime.UnixNano()
		if !seen[k] {
			seen[k] = true
			out = append(out, r.DateTime)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// TimeRange returns the first and last DateTime of a sorted frame.
func (f Frame) TimeRange() (TimeRange, bool) {
	if len(f.Rows) == 0 {
		return TimeRange{}, false
	}
	return TimeRange{Start: f.Rows[0].DateTime, End: f.Rows[len(f.Rows)-1].DateTime}, true
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}
