// Package report summarizes a harmonized dataset: when consumption happens,
// what it costs and how it follows the weather.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"energy_harmonizer/internal/model"
)

type Options struct {
	// TempColumn selects the temperature column. Empty picks the first
	// "Air Temperature" column.
	TempColumn string
	// BucketWidth is the temperature bucket width in °C.
	BucketWidth float64
	// ShiftWindow is how many hours load may move to a cheaper hour.
	ShiftWindow int
}

func DefaultOptions() Options {
	return Options{BucketWidth: 5, ShiftWindow: 4}
}

type HourlyBucket struct {
	KWh  float64
	Cost float64
	Rows int
}

type TempBucket struct {
	TempMin, TempMax float64
	KWh              float64
	Hours            int
}

// Correlation is the Pearson correlation between hourly total consumption
// and one weather column.
type Correlation struct {
	Column string
	R      float64
	N      int
}

type ShiftResult struct {
	CurrentCost float64
	OptimalCost float64
	Savings     float64
}

type Report struct {
	TimeRange    model.TimeRange
	Rows         int
	Customers    int
	TotalKWh     float64
	Hourly       [model.HoursPerDay]HourlyBucket
	AvgPrice     float64
	WeightedCost float64
	TempColumn   string
	TempBuckets  []TempBucket
	Correlations []Correlation
	Shift        ShiftResult
}

// hourTotal is the consumption of every customer at one DateTime.
type hourTotal struct {
	at      time.Time
	kwh     float64
	price   float64
	hasKWh  bool
	hasCost bool
	weather []float64
}

// Analyze builds a report from a merged frame. The frame needs a
// Power_Consumption column; Price and weather columns are optional.
func Analyze(f model.Frame, opts Options) (Report, error) {
	consumption := f.ColumnIndex(model.ColPowerConsumption)
	if consumption < 0 {
		return Report{}, &model.MissingColumnError{Table: f.Name, Column: model.ColPowerConsumption}
	}
	if opts.BucketWidth <= 0 {
		opts.BucketWidth = DefaultOptions().BucketWidth
	}
	price := f.ColumnIndex(model.ColPrice)
	customer := f.ColumnIndex(model.ColCustomer)

	var weatherCols []int
	for j, c := range f.Columns {
		if isWeatherColumn(c) {
			weatherCols = append(weatherCols, j)
		}
	}
	temp := tempColumn(f, opts.TempColumn)

	r := Report{Rows: f.Len()}
	r.TimeRange, _ = f.TimeRange()
	if temp >= 0 {
		r.TempColumn = f.Columns[temp]
	}

	customers := make(map[string]bool)
	totals := hourlyTotals(f.SortedByDateTime(), consumption, price, weatherCols)
	for _, row := range f.Rows {
		if customer >= 0 && !row.Values[customer].IsMissing() {
			customers[row.Values[customer].String()] = true
		}
	}
	r.Customers = len(customers)

	var priceSum float64
	var priceN int
	tempIdx := -1
	for k, j := range weatherCols {
		if j == temp {
			tempIdx = k
		}
	}
	buckets := make(map[int]*TempBucket)
	for _, t := range totals {
		if t.hasCost {
			priceSum += t.price
			priceN++
		}
		if !t.hasKWh {
			continue
		}
		r.TotalKWh += t.kwh
		b := &r.Hourly[t.at.Hour()]
		b.KWh += t.kwh
		b.Rows++
		if t.hasCost {
			b.Cost += t.kwh * t.price
			r.WeightedCost += t.kwh * t.price
		}
		if tempIdx >= 0 && !math.IsNaN(t.weather[tempIdx]) {
			idx := int(math.Floor(t.weather[tempIdx] / opts.BucketWidth))
			tb, ok := buckets[idx]
			if !ok {
				tb = &TempBucket{TempMin: float64(idx) * opts.BucketWidth, TempMax: float64(idx+1) * opts.BucketWidth}
				buckets[idx] = tb
			}
			tb.KWh += t.kwh
			tb.Hours++
		}
	}
	r.AvgPrice = safeDivide(priceSum, float64(priceN))

	indices := make([]int, 0, len(buckets))
	for idx := range buckets {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		r.TempBuckets = append(r.TempBuckets, *buckets[idx])
	}

	for k, j := range weatherCols {
		if c, ok := correlate(totals, k); ok {
			c.Column = f.Columns[j]
			r.Correlations = append(r.Correlations, c)
		}
	}

	if price >= 0 {
		r.Shift = shiftPotential(totals, opts.ShiftWindow)
	}
	return r, nil
}

// isWeatherColumn matches "<Measurement>_P<parameter>" with a numeric
// parameter id, quality columns excluded.
func isWeatherColumn(name string) bool {
	i := strings.LastIndex(name, "_P")
	if i <= 0 || i+2 == len(name) || strings.HasPrefix(name, model.ColQuality) {
		return false
	}
	for _, c := range name[i+2:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func tempColumn(f model.Frame, name string) int {
	if name != "" {
		return f.ColumnIndex(name)
	}
	for j, c := range f.Columns {
		if strings.HasPrefix(c, "Air Temperature") && isWeatherColumn(c) {
			return j
		}
	}
	return -1
}

// hourlyTotals sums consumption over customers per DateTime. Price and
// weather are shared by all rows at a DateTime; the first non-missing value
// is used.
func hourlyTotals(f model.Frame, consumption, price int, weatherCols []int) []hourTotal {
	var totals []hourTotal
	for _, row := range f.Rows {
		if len(totals) == 0 || !totals[len(totals)-1].at.Equal(row.DateTime) {
			w := make([]float64, len(weatherCols))
			for k := range w {
				w[k] = math.NaN()
			}
			totals = append(totals, hourTotal{at: row.DateTime, weather: w})
		}
		t := &totals[len(totals)-1]
		if v, ok := row.Values[consumption].Float(); ok {
			t.kwh += v
			t.hasKWh = true
		}
		if price >= 0 && !t.hasCost {
			if v, ok := row.Values[price].Float(); ok {
				t.price, t.hasCost = v, true
			}
		}
		for k, j := range weatherCols {
			if math.IsNaN(t.weather[k]) {
				if v, ok := row.Values[j].Float(); ok {
					t.weather[k] = v
				}
			}
		}
	}
	return totals
}

func correlate(totals []hourTotal, k int) (Correlation, bool) {
	var x, y []float64
	for _, t := range totals {
		if !t.hasKWh || math.IsNaN(t.weather[k]) {
			continue
		}
		x = append(x, t.kwh)
		y = append(y, t.weather[k])
	}
	if len(x) < 3 || stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return Correlation{}, false
	}
	return Correlation{R: stat.Correlation(x, y, nil), N: len(x)}, true
}

// shiftPotential prices every hour's consumption at the cheapest hour of the
// same day within ±window hours.
func shiftPotential(totals []hourTotal, window int) ShiftResult {
	type day struct {
		kwh    [model.HoursPerDay]float64
		prices [model.HoursPerDay]float64
		priced [model.HoursPerDay]bool
	}
	days := make(map[string]*day)
	for _, t := range totals {
		key := t.at.Format(model.DateLayout)
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
		}
		h := t.at.Hour()
		if t.hasKWh {
			d.kwh[h] += t.kwh
		}
		if t.hasCost {
			d.prices[h], d.priced[h] = t.price, true
		}
	}

	var r ShiftResult
	for _, d := range days {
		for h := 0; h < model.HoursPerDay; h++ {
			if d.kwh[h] <= 0 || !d.priced[h] {
				continue
			}
			r.CurrentCost += d.kwh[h] * d.prices[h]
			best := d.prices[h]
			for c := max(h-window, 0); c <= min(h+window, model.HoursPerDay-1); c++ {
				if d.priced[c] && d.prices[c] < best {
					best = d.prices[c]
				}
			}
			r.OptimalCost += d.kwh[h] * best
		}
	}
	r.Savings = r.CurrentCost - r.OptimalCost
	return r
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
