// Package weather aligns per-parameter weather series on one DateTime axis.
package weather

import (
	"time"

	"energy_harmonizer/internal/model"
)

// FrameName is the name of the frame returned by Combine.
const FrameName = "weather"

type Options struct {
	// Resolution floors sample timestamps before aggregation. Zero keeps
	// timestamps as they are.
	Resolution time.Duration
	// KeepQuality adds a quality column per parameter.
	KeepQuality bool
}

// ColumnName is the combined-frame column of a parameter's measurement.
func ColumnName(measurement, parameter string) string {
	return measurement + "_P" + parameter
}

// QualityColumnName is the combined-frame column of a parameter's quality flag.
func QualityColumnName(parameter string) string {
	return ColumnName(model.ColQuality, parameter)
}

// Combine builds one frame with a column per series, in series order. When
// several samples of a parameter fall on the same DateTime the first
// non-missing one wins.
func Combine(table model.WeatherTable, opts Options) (model.Frame, error) {
	f := model.Frame{Name: FrameName}
	owner := make(map[string]string)
	addColumn := func(name, parameter string) (int, error) {
		if prev, ok := owner[name]; ok {
			return 0, &model.MergeKeyCollisionError{Column: name, Left: "P" + prev, Right: "P" + parameter}
		}
		owner[name] = parameter
		f.Columns = append(f.Columns, name)
		return len(f.Columns) - 1, nil
	}

	type columns struct{ value, quality int }
	cols := make([]columns, len(table.Series))
	for i, s := range table.Series {
		var err error
		if cols[i].value, err = addColumn(ColumnName(s.Measurement, s.Parameter), s.Parameter); err != nil {
			return model.Frame{}, err
		}
		cols[i].quality = -1
		if opts.KeepQuality {
			if cols[i].quality, err = addColumn(QualityColumnName(s.Parameter), s.Parameter); err != nil {
				return model.Frame{}, err
			}
		}
	}

	index := make(map[int64]int)
	row := func(dt time.Time) []model.Value {
		k := dt.UnixNano()
		i, ok := index[k]
		if !ok {
			i = len(f.Rows)
			index[k] = i
			f.Rows = append(f.Rows, model.Record{DateTime: dt, Values: make([]model.Value, len(f.Columns))})
		}
		return f.Rows[i].Values
	}

	for i, s := range table.Series {
		for _, sample := range s.Samples {
			dt := sample.DateTime
			if opts.Resolution > 0 {
				dt = dt.Truncate(opts.Resolution)
			}
			values := row(dt)
			if values[cols[i].value].IsMissing() {
				values[cols[i].value] = model.Num(sample.Value)
			}
			if q := cols[i].quality; q >= 0 && values[q].IsMissing() {
				values[q] = model.Text(sample.Quality)
			}
		}
	}
	return f.SortedByDateTime(), nil
}
