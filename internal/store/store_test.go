package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy_harmonizer/internal/model"
)

func makeFrame(values []float64, startTime time.Time, interval time.Duration) model.Frame {
	f := model.Frame{Name: "merged", Columns: []string{"Price"}}
	for i, v := range values {
		f.Rows = append(f.Rows, model.Record{
			DateTime: startTime.Add(time.Duration(i) * interval),
			Values:   []model.Value{model.Num(v)},
		})
	}
	return f
}

func price(r model.Record) float64 {
	v, _ := r.Values[0].Float()
	return v
}

var (
	runID     = "run-1"
	startTime = time.Date(2021, 11, 21, 12, 0, 0, 0, time.UTC)
	hour      = time.Hour
)

func TestStore_PutAndGet(t *testing.T) {
	s := New()
	s.Put(runID, makeFrame([]float64{100, 200, 300, 400, 500}, startTime, hour))

	assert.Equal(t, 5, s.RowCount(runID))
	assert.Equal(t, 0, s.RowCount("nonexistent"))

	f, ok := s.Get(runID)
	require.True(t, ok)
	assert.Equal(t, []string{"Price"}, f.Columns)

	_, ok = s.Get("nonexistent")
	assert.False(t, ok)
}

func TestStore_TimeRange(t *testing.T) {
	s := New()
	s.Put(runID, makeFrame([]float64{100, 200, 300}, startTime, hour))

	tr, ok := s.TimeRange(runID)
	require.True(t, ok)
	assert.Equal(t, startTime, tr.Start)
	assert.Equal(t, startTime.Add(2*hour), tr.End)

	_, ok = s.TimeRange("nonexistent")
	assert.False(t, ok)

	s.Put("empty", model.Frame{})
	_, ok = s.TimeRange("empty")
	assert.False(t, ok)
}

func TestStore_RowsInRange(t *testing.T) {
	s := New()
	s.Put(runID, makeFrame([]float64{100, 200, 300, 400, 500}, startTime, hour))

	// hour 1 to hour 3 (exclusive)
	result := s.RowsInRange(runID, startTime.Add(hour), startTime.Add(3*hour))
	require.Len(t, result, 2)
	assert.InDelta(t, 200.0, price(result[0]), 0.001)
	assert.InDelta(t, 300.0, price(result[1]), 0.001)

	result = s.RowsInRange(runID, startTime.Add(10*hour), startTime.Add(11*hour))
	assert.Empty(t, result)

	result = s.RowsInRange("nonexistent", startTime, startTime.Add(hour))
	assert.Empty(t, result)
}

func TestStore_RowsAt(t *testing.T) {
	s := New()
	f := makeFrame([]float64{100, 200, 300}, startTime, hour)
	// second customer row sharing hour 1
	f.Rows = append(f.Rows, model.Record{DateTime: startTime.Add(hour), Values: []model.Value{model.Num(250)}})
	s.Put(runID, f)

	rows := s.RowsAt(runID, startTime.Add(hour))
	require.Len(t, rows, 2)
	assert.InDelta(t, 200.0, price(rows[0]), 0.001)
	assert.InDelta(t, 250.0, price(rows[1]), 0.001)

	// between rows returns the most recent before
	rows = s.RowsAt(runID, startTime.Add(150*time.Minute))
	require.Len(t, rows, 1)
	assert.InDelta(t, 300.0, price(rows[0]), 0.001)

	assert.Empty(t, s.RowsAt(runID, startTime.Add(-hour)))
}

func TestStore_PutUnsorted(t *testing.T) {
	s := New()
	f := model.Frame{Columns: []string{"Price"}, Rows: []model.Record{
		{DateTime: startTime.Add(2 * hour), Values: []model.Value{model.Num(300)}},
		{DateTime: startTime, Values: []model.Value{model.Num(100)}},
		{DateTime: startTime.Add(hour), Values: []model.Value{model.Num(200)}},
	}}
	s.Put(runID, f)

	result := s.RowsInRange(runID, startTime, startTime.Add(3*hour))
	require.Len(t, result, 3)
	assert.InDelta(t, 100.0, price(result[0]), 0.001)
	assert.InDelta(t, 200.0, price(result[1]), 0.001)
	assert.InDelta(t, 300.0, price(result[2]), 0.001)

	// the caller's frame is left as it was
	assert.Equal(t, startTime.Add(2*hour), f.Rows[0].DateTime)
}

func TestStore_Runs(t *testing.T) {
	s := New()
	clock := startTime
	s.now = func() time.Time { return clock }

	s.Put("b", makeFrame([]float64{1}, startTime, hour))
	clock = clock.Add(time.Minute)
	s.Put("a", makeFrame([]float64{1, 2}, startTime, hour))

	runs := s.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)
	assert.Equal(t, 2, runs[1].Rows)
	assert.Equal(t, []string{"DateTime", "Price"}, runs[1].Columns)

	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Len(t, s.Runs(), 1)
}

func TestStore_GlobalTimeRange(t *testing.T) {
	s := New()

	_, ok := s.GlobalTimeRange()
	assert.False(t, ok)

	// run a: 12:00 – 13:00
	// run b: 11:00 – 14:00
	s.Put("a", makeFrame([]float64{100, 200}, startTime, hour))
	s.Put("b", makeFrame([]float64{300, 400}, startTime.Add(-hour), 3*hour))

	tr, ok := s.GlobalTimeRange()
	require.True(t, ok)
	assert.Equal(t, startTime.Add(-hour), tr.Start)
	assert.Equal(t, startTime.Add(2*hour), tr.End)
}
