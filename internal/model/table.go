package model

import (
	"math"
	"strconv"
	"time"
)

// DateTimeLayout is the naive timestamp format used in delimited output.
const DateTimeLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar date format used in delimited output.
const DateLayout = "2006-01-02"

// SourceTable is one raw extract as handed over by a reader: an ordered
// header, string cells, and the caller-supplied provenance.
type SourceTable struct {
	// ID identifies the table in errors and logs (usually the file path).
	ID   string
	Type DatasetType
	// Year is the provenance year. Zero means rows carry their own YEAR column.
	Year int
	// Parameter is the weather parameter identifier. Empty for other types.
	Parameter string
	Header    []string
	Rows      [][]string
}

// ColumnIndex returns the position of name in the header, or -1.
func (t SourceTable) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row i, column j. Short rows read as empty.
func (t SourceTable) Cell(i, j int) string {
	if j < 0 || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Consolidated is implemented by every normalized table.
type Consolidated interface {
	DatasetType() DatasetType
	Len() int
}

// ConsumptionRow is one customer's hourly usage for one calendar day.
// Missing hourly values are NaN.
type ConsumptionRow struct {
	Customer        string
	Area            string
	IsPrivatePerson bool
	Date            time.Time
	Year            int
	Hours           [HoursPerDay]float64
}

// NonMissing counts the hourly values that are present.
func (r ConsumptionRow) NonMissing() int {
	n := 0
	for _, v := range r.Hours {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

type ConsumptionTable struct {
	Rows []ConsumptionRow
}

func (ConsumptionTable) DatasetType() DatasetType { return DatasetConsumption }
func (t ConsumptionTable) Len() int               { return len(t.Rows) }

// ToSourceTable renders the table back into canonical raw form. Rows keep
// their own YEAR column, so the returned table has Year 0.
func (t ConsumptionTable) ToSourceTable(id string) SourceTable {
	out := SourceTable{
		ID:     id,
		Type:   DatasetConsumption,
		Header: ConsumptionColumns(),
		Rows:   make([][]string, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		flag := "0"
		if r.IsPrivatePerson {
			flag = "1"
		}
		rec := []string{r.Customer, r.Area, flag, r.Date.Format(DateLayout), strconv.Itoa(r.Year)}
		for _, v := range r.Hours {
			rec = append(rec, Num(v).String())
		}
		out.Rows = append(out.Rows, rec)
	}
	return out
}

type PriceRow struct {
	DateTime time.Time
	Price    float64
}

type PriceTable struct {
	Rows []PriceRow
}

func (PriceTable) DatasetType() DatasetType { return DatasetPrice }
func (t PriceTable) Len() int               { return len(t.Rows) }

// Frame returns the table keyed by DateTime with a single Price column.
func (t PriceTable) Frame() Frame {
	f := Frame{Name: "price", Columns: []string{ColPrice}, Rows: make([]Record, len(t.Rows))}
	for i, r := range t.Rows {
		f.Rows[i] = Record{DateTime: r.DateTime, Values: []Value{Num(r.Price)}}
	}
	return f
}

// WeatherSample is one observation of a weather parameter. Value is NaN when missing.
type WeatherSample struct {
	DateTime time.Time
	Value    float64
	Quality  string
}

// WeatherSeries is the concatenated observations of one parameter across years.
type WeatherSeries struct {
	Parameter   string
	Measurement string
	Samples     []WeatherSample
}

type WeatherTable struct {
	Series []WeatherSeries
}

func (WeatherTable) DatasetType() DatasetType { return DatasetWeather }

func (t WeatherTable) Len() int {
	n := 0
	for _, s := range t.Series {
		n += len(s.Samples)
	}
	return n
}

// ValidatedRow is a consumption row after masking and imputation.
type ValidatedRow struct {
	ConsumptionRow
	// MissingCount is the number of hours missing in the source row.
	MissingCount int
	// MaskedCount is the number of hours masked as out of range.
	MaskedCount int
	// DailyTotal is the sum of the imputed hourly values, NaN when unresolved.
	DailyTotal float64
	// Unresolved is set when no valid hourly value was left to impute from.
	Unresolved bool
}

type ValidatedTable struct {
	Rows []ValidatedRow
}

func (t ValidatedTable) Len() int { return len(t.Rows) }

// LongRow is one hour of one customer's consumption.
type LongRow struct {
	DateTime        time.Time
	Customer        string
	Area            string
	IsPrivatePerson bool
	Power           float64
	DailyPower      float64
	DailyMissing    int
}

type LongTable struct {
	Rows []LongRow
}

func (t LongTable) Len() int { return len(t.Rows) }

// LongColumns is the column order of a long consumption frame.
var LongColumns = []string{
	ColCustomer, ColArea, ColIsPrivatePerson,
	ColPowerConsumption, ColOneDayPower, ColOneDayPowerNaN,
}

// Frame returns the table keyed by DateTime.
func (t LongTable) Frame() Frame {
	f := Frame{Name: "consumption", Columns: append([]string(nil), LongColumns...), Rows: make([]Record, len(t.Rows))}
	for i, r := range t.Rows {
		flag := 0.0
		if r.IsPrivatePerson {
			flag = 1
		}
		f.Rows[i] = Record{
			DateTime: r.DateTime,
			Values: []Value{
				Text(r.Customer),
				Text(r.Area),
				Num(flag),
				Num(r.Power),
				Num(r.DailyPower),
				Num(float64(r.DailyMissing)),
			},
		}
	}
	return f
}
