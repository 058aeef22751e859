package weather

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy_harmonizer/internal/model"
)

var t0 = time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

func sample(minutes int, v float64, quality string) model.WeatherSample {
	return model.WeatherSample{DateTime: at(minutes), Value: v, Quality: quality}
}

func TestCombine_ColumnsPerParameter(t *testing.T) {
	table := model.WeatherTable{Series: []model.WeatherSeries{
		{Parameter: "4", Measurement: "Wind Speed", Samples: []model.WeatherSample{sample(60, 3, "G"), sample(0, 2, "G")}},
		{Parameter: "26", Measurement: "Air Temperature", Samples: []model.WeatherSample{sample(0, 14.5, "Y")}},
		{Parameter: "27", Measurement: "Air Temperature", Samples: []model.WeatherSample{sample(120, 16, "G")}},
	}}

	f, err := Combine(table, Options{})
	require.NoError(t, err)
	assert.Equal(t, FrameName, f.Name)
	assert.Equal(t, []string{"DateTime", "Wind Speed_P4", "Air Temperature_P26", "Air Temperature_P27"}, f.Header())
	require.Equal(t, 3, f.Len())

	assert.Equal(t, []time.Time{at(0), at(60), at(120)}, f.DistinctDateTimes())
	assert.Equal(t, at(0), f.Rows[0].DateTime)
	v, ok := f.Value(0, "Air Temperature_P26").Float()
	require.True(t, ok)
	assert.InDelta(t, 14.5, v, 1e-12)
	assert.True(t, f.Value(0, "Air Temperature_P27").IsMissing())
	assert.True(t, f.Value(2, "Wind Speed_P4").IsMissing())
}

func TestCombine_FirstNonMissingWithinResolution(t *testing.T) {
	table := model.WeatherTable{Series: []model.WeatherSeries{
		{Parameter: "4", Measurement: "Wind Speed", Samples: []model.WeatherSample{
			sample(0, math.NaN(), ""),
			sample(20, 5, "G"),
			sample(40, 7, "Y"),
			sample(60, 1, "G"),
		}},
		{Parameter: "1", Measurement: "Air Temperature", Samples: []model.WeatherSample{sample(0, 10, "G")}},
	}}

	f, err := Combine(table, Options{Resolution: time.Hour, KeepQuality: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Wind Speed_P4", "Quality_P4", "Air Temperature_P1", "Quality_P1"}, f.Columns)
	require.Equal(t, 2, f.Len())

	v, ok := f.Value(0, "Wind Speed_P4").Float()
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-12)
	assert.Equal(t, "G", f.Value(0, "Quality_P4").String())
	assert.Equal(t, "G", f.Value(0, "Quality_P1").String())

	exact, err := Combine(table, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, exact.Len())
	assert.True(t, exact.Value(0, "Wind Speed_P4").IsMissing())
}

func TestCombine_DuplicateParameter(t *testing.T) {
	table := model.WeatherTable{Series: []model.WeatherSeries{
		{Parameter: "4", Measurement: "Wind Speed"},
		{Parameter: "4", Measurement: "Wind Speed"},
	}}
	_, err := Combine(table, Options{})
	assert.True(t, errors.Is(err, model.ErrMergeKeyCollision))
}

func TestCombine_Empty(t *testing.T) {
	f, err := Combine(model.WeatherTable{}, Options{Resolution: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, []string{"DateTime"}, f.Header())
}
