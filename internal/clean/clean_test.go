package clean

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy_harmonizer/internal/model"
)

var day = time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)

// makeRow builds a consumption row; hours beyond the given values are NaN.
func makeRow(customer string, private bool, values ...float64) model.ConsumptionRow {
	r := model.ConsumptionRow{Customer: customer, Area: "A", IsPrivatePerson: private, Date: day, Year: 2021}
	for h := range r.Hours {
		r.Hours[h] = math.NaN()
		if h < len(values) {
			r.Hours[h] = values[h]
		}
	}
	return r
}

func fullRow(customer string, private bool, v float64) model.ConsumptionRow {
	values := make([]float64, model.HoursPerDay)
	for i := range values {
		values[i] = v
	}
	return makeRow(customer, private, values...)
}

func TestValidate_ResidentialScenario(t *testing.T) {
	nan := math.NaN()
	row := makeRow("c1", true, 0.01, 0.01, -0.01, nan, 0.02, nan)
	th := Thresholds{Residential: 0.03, Commercial: 1, MinNonNaN: 3}

	out, rep, err := Validate(model.ConsumptionTable{Rows: []model.ConsumptionRow{row}}, th)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)

	mean := (0.01 + 0.01 + 0.02) / 3
	got := out.Rows[0]
	assert.InDelta(t, 0.01, got.Hours[0], 1e-12)
	assert.InDelta(t, mean, got.Hours[2], 1e-12)
	assert.InDelta(t, mean, got.Hours[3], 1e-12)
	assert.InDelta(t, 0.02, got.Hours[4], 1e-12)
	assert.InDelta(t, mean, got.Hours[23], 1e-12)
	assert.Equal(t, 20, got.MissingCount)
	assert.Equal(t, 1, got.MaskedCount)
	assert.InDelta(t, 0.04+21*mean, got.DailyTotal, 1e-9)
	assert.False(t, got.Unresolved)

	assert.Equal(t, 1, rep.RowsIn)
	assert.Equal(t, 1, rep.CellsMasked)
	assert.Equal(t, 21, rep.CellsImputed)
	assert.Empty(t, rep.Unresolved)

	// input is untouched
	assert.InDelta(t, -0.01, row.Hours[2], 1e-12)
}

func TestValidate_ThresholdByCustomerType(t *testing.T) {
	th := Thresholds{Residential: 0.03, Commercial: 1, MinNonNaN: 1}
	home := makeRow("home", true, 0.5, 0.01)
	shop := makeRow("shop", false, 0.5, 0.01, 1.0, 1.5)

	out, _, err := Validate(model.ConsumptionTable{Rows: []model.ConsumptionRow{home, shop}}, th)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)

	assert.InDelta(t, 0.01, out.Rows[0].Hours[0], 1e-12, "0.5 exceeds residential bound")
	assert.InDelta(t, 0.5, out.Rows[1].Hours[0], 1e-12, "0.5 is within commercial bound")
	assert.InDelta(t, 1.0, out.Rows[1].Hours[2], 1e-12, "bound is inclusive")
	assert.InDelta(t, (0.5+0.01+1.0)/3, out.Rows[1].Hours[3], 1e-12)
}

func TestValidate_DropsSparseRows(t *testing.T) {
	th := Thresholds{Residential: 1, Commercial: 1, MinNonNaN: 3}
	rows := []model.ConsumptionRow{
		makeRow("keep", true, 0.1, 0.2, 0.3),
		makeRow("drop", true, 0.1, 0.2),
		makeRow("empty", false),
	}
	out, rep, err := Validate(model.ConsumptionTable{Rows: rows}, th)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "keep", out.Rows[0].Customer)
	assert.Equal(t, 2, rep.RowsDropped)
}

func TestValidate_Unresolved(t *testing.T) {
	th := Thresholds{Residential: 0.03, Commercial: 1, MinNonNaN: 2}
	row := makeRow("c9", true, 0.5, 0.7, -1)

	out, rep, err := Validate(model.ConsumptionTable{Rows: []model.ConsumptionRow{fullRow("ok", true, 0.01), row}}, th)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)

	got := out.Rows[1]
	assert.True(t, got.Unresolved)
	assert.Equal(t, model.HoursPerDay-3, got.MissingCount)
	assert.Equal(t, 3, got.MaskedCount)
	assert.True(t, math.IsNaN(got.DailyTotal))
	for h := range got.Hours {
		assert.True(t, math.IsNaN(got.Hours[h]), "hour %d", h)
	}

	require.Len(t, rep.Unresolved, 1)
	assert.Equal(t, 2, rep.Unresolved[0].Row)
	assert.Equal(t, "c9", rep.Unresolved[0].Customer)
	assert.Contains(t, rep.Unresolved[0].Error(), "2021-05-01")
	assert.Equal(t, 3, rep.CellsMasked)
}

func TestValidate_NoNegativeOrMissingAfterImputation(t *testing.T) {
	th := DefaultThresholds()
	th.MinNonNaN = 1
	nan := math.NaN()
	rows := []model.ConsumptionRow{
		makeRow("a", true, 0.02, nan, -3, 0.5, 0.01),
		makeRow("b", false, 2, 0.3, nan, nan, 0.9, -0.2, 0),
		fullRow("c", false, 0.7),
	}
	out, _, err := Validate(model.ConsumptionTable{Rows: rows}, th)
	require.NoError(t, err)
	for _, r := range out.Rows {
		require.False(t, r.Unresolved)
		for h, v := range r.Hours {
			assert.False(t, math.IsNaN(v), "%s hour %d", r.Customer, h)
			assert.GreaterOrEqual(t, v, 0.0, "%s hour %d", r.Customer, h)
		}
	}
	assert.Equal(t, 0, out.Rows[2].MissingCount)
	assert.InDelta(t, 24*0.7, out.Rows[2].DailyTotal, 1e-9)
}

func TestValidate_MissingCountExcludesMasked(t *testing.T) {
	th := Thresholds{Residential: 0.03, Commercial: 1, MinNonNaN: 1}
	values := make([]float64, model.HoursPerDay)
	for h := range values {
		values[h] = 0.01
	}
	values[1] = math.NaN()
	values[5] = 0.9
	values[6] = -0.1

	out, rep, err := Validate(model.ConsumptionTable{Rows: []model.ConsumptionRow{makeRow("c1", true, values...)}}, th)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)

	assert.Equal(t, 1, out.Rows[0].MissingCount)
	assert.Equal(t, 2, out.Rows[0].MaskedCount)
	assert.Equal(t, 2, rep.CellsMasked)
	assert.Equal(t, 3, rep.CellsImputed)
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
		ok   bool
	}{
		{"defaults", DefaultThresholds(), true},
		{"negative residential", Thresholds{Residential: -1, Commercial: 1, MinNonNaN: 1}, false},
		{"nan commercial", Thresholds{Residential: 1, Commercial: math.NaN(), MinNonNaN: 1}, false},
		{"zero min", Thresholds{Residential: 1, Commercial: 1, MinNonNaN: 0}, false},
		{"min above day", Thresholds{Residential: 1, Commercial: 1, MinNonNaN: 25}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidThresholds))
		})
	}

	_, _, err := Validate(model.ConsumptionTable{}, Thresholds{})
	assert.True(t, errors.Is(err, ErrInvalidThresholds))
}
