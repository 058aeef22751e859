// Package clean masks out-of-range hourly consumption values and imputes
// masked or missing cells with the mean of the row's remaining valid values.
package clean

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"energy_harmonizer/internal/model"
)

var ErrInvalidThresholds = errors.New("invalid validation thresholds")

// Thresholds bounds hourly consumption values per customer type.
type Thresholds struct {
	// Residential is the upper bound for rows of private persons.
	Residential float64
	// Commercial is the upper bound for every other row.
	Commercial float64
	// MinNonNaN is the number of present hourly values a row needs to be kept.
	MinNonNaN int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Residential: 0.03, Commercial: 1.0, MinNonNaN: 12}
}

func (th Thresholds) Validate() error {
	switch {
	case math.IsNaN(th.Residential) || th.Residential < 0:
		return fmt.Errorf("%w: residential bound %v", ErrInvalidThresholds, th.Residential)
	case math.IsNaN(th.Commercial) || th.Commercial < 0:
		return fmt.Errorf("%w: commercial bound %v", ErrInvalidThresholds, th.Commercial)
	case th.MinNonNaN < 1 || th.MinNonNaN > model.HoursPerDay:
		return fmt.Errorf("%w: min_non_nan %d not in 1..%d", ErrInvalidThresholds, th.MinNonNaN, model.HoursPerDay)
	}
	return nil
}

// Bound returns the upper bound that applies to row.
func (th Thresholds) Bound(row model.ConsumptionRow) float64 {
	if row.IsPrivatePerson {
		return th.Residential
	}
	return th.Commercial
}

// Report summarizes what Validate did to a table.
type Report struct {
	RowsIn       int
	RowsDropped  int
	CellsMasked  int
	CellsImputed int
	Unresolved   []model.ImputationUnresolved
}

// Validate drops sparse rows, masks out-of-range values and imputes the gaps.
// Rows left without any valid value are kept with their cells missing and
// listed in the report.
func Validate(table model.ConsumptionTable, th Thresholds) (model.ValidatedTable, Report, error) {
	if err := th.Validate(); err != nil {
		return model.ValidatedTable{}, Report{}, err
	}

	rep := Report{RowsIn: len(table.Rows)}
	out := model.ValidatedTable{Rows: make([]model.ValidatedRow, 0, len(table.Rows))}
	for i, row := range table.Rows {
		if row.NonMissing() < th.MinNonNaN {
			rep.RowsDropped++
			continue
		}

		vr := validateRow(row, th.Bound(row))
		rep.CellsMasked += vr.MaskedCount
		if vr.Unresolved {
			rep.Unresolved = append(rep.Unresolved, model.ImputationUnresolved{
				Row:      i + 1,
				Customer: row.Customer,
				Date:     row.Date,
			})
		} else {
			rep.CellsImputed += vr.MissingCount + vr.MaskedCount
		}
		out.Rows = append(out.Rows, vr)
	}
	return out, rep, nil
}

func validateRow(row model.ConsumptionRow, bound float64) model.ValidatedRow {
	vr := model.ValidatedRow{ConsumptionRow: row}

	valid := make([]float64, 0, model.HoursPerDay)
	for h, v := range row.Hours {
		switch {
		case math.IsNaN(v):
			vr.MissingCount++
		case v < 0 || v > bound:
			vr.Hours[h] = math.NaN()
			vr.MaskedCount++
		default:
			valid = append(valid, v)
		}
	}

	if len(valid) == 0 {
		vr.Unresolved = true
		vr.DailyTotal = math.NaN()
		return vr
	}

	mean := stat.Mean(valid, nil)
	for h, v := range vr.Hours {
		if math.IsNaN(v) {
			vr.Hours[h] = mean
		}
	}
	vr.DailyTotal = floats.Sum(vr.Hours[:])
	return vr
}
