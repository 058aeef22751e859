package normalize

import (
	"fmt"
	"strings"

	"energy_harmonizer/internal/model"
)

// weatherHeaders maps SMHI archive headers to canonical names.
var weatherHeaders = map[string]string{
	"Datum":                  model.ColWeatherDate,
	"Representativt dygn":    model.ColWeatherDate,
	"Tid (UTC)":              model.ColWeatherTime,
	"Kvalitet":               model.ColQuality,
	"Från Datum Tid (UTC)":   "From Date Time (UTC)",
	"Till Datum Tid (UTC)":   "To Date Time (UTC)",
	"Vindhastighet":          "Wind Speed",
	"Lufttemperatur":         "Air Temperature",
	"Molnmängd":              "Cloud Amount",
	"Relativ Luftfuktighet":  "Relative Humidity",
	"Nederbördsmängd":        "Precipitation",
	"Daggpunktstemperatur":   "Dew Point Temperature",
	"Total molnmängd":        "Cloud Amount",
	"Byvind":                 "Gust Wind",

	"Lufttryck reducerat havsytans nivå": "Air Pressure",
}

// nonMeasurement lists canonical weather columns that never hold the measurement.
var nonMeasurement = map[string]bool{
	model.ColWeatherDate:   true,
	model.ColWeatherTime:   true,
	model.ColQuality:       true,
	model.ColDateTime:      true,
	"From Date Time (UTC)": true,
	"To Date Time (UTC)":   true,
}

// Weather normalizes per-parameter weather tables into one series per
// parameter, in order of first appearance. Tables of the same parameter are
// concatenated in input order.
func (n *Normalizer) Weather(tables []model.SourceTable) (model.WeatherTable, error) {
	parts, err := eachTable(n.opts.Workers, tables, n.weatherTable)
	if err != nil {
		return model.WeatherTable{}, err
	}

	var out model.WeatherTable
	index := make(map[string]int)
	for i, p := range parts {
		j, ok := index[p.Parameter]
		if !ok {
			index[p.Parameter] = len(out.Series)
			out.Series = append(out.Series, p)
			continue
		}
		if out.Series[j].Measurement != p.Measurement {
			return model.WeatherTable{}, &model.SchemaError{
				Table:       tables[i].ID,
				DatasetType: model.DatasetWeather,
				Column:      p.Measurement,
				Reason:      fmt.Sprintf("parameter %s already measures %q", p.Parameter, out.Series[j].Measurement),
			}
		}
		out.Series[j].Samples = append(out.Series[j].Samples, p.Samples...)
	}
	return out, nil
}

func canonicalWeatherHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if mapped, ok := weatherHeaders[h]; ok {
			h = mapped
		}
		out[i] = h
	}
	return out
}

// measurementColumn picks the first column that is neither a key, a quality
// flag nor an unnamed trailing column.
func measurementColumn(header []string) int {
	for i, h := range header {
		if h != "" && !nonMeasurement[h] {
			return i
		}
	}
	return -1
}

func (n *Normalizer) keepYear(tableYear, year int) bool {
	if tableYear != 0 && year != tableYear {
		return false
	}
	return n.years == nil || n.years[year]
}

func (n *Normalizer) weatherTable(t model.SourceTable) (model.WeatherSeries, error) {
	if err := checkType(t, model.DatasetWeather); err != nil {
		return model.WeatherSeries{}, err
	}
	if t.Parameter == "" {
		return model.WeatherSeries{}, &model.SchemaError{
			Table:       t.ID,
			DatasetType: model.DatasetWeather,
			Reason:      "weather table has no parameter identifier",
		}
	}

	header := canonicalWeatherHeader(t.Header)
	dateCol := findColumn(header, []string{model.ColWeatherDate})
	if dateCol < 0 {
		return model.WeatherSeries{}, &model.MissingColumnError{Table: t.ID, Column: model.ColWeatherDate}
	}
	valueCol := measurementColumn(header)
	if valueCol < 0 {
		return model.WeatherSeries{}, &model.MissingColumnError{Table: t.ID, Column: "measurement"}
	}
	// Daily parameters have no time column; their samples sit at midnight.
	timeCol := findColumn(header, []string{model.ColWeatherTime})
	qualityCol := findColumn(header, []string{model.ColQuality})

	series := model.WeatherSeries{Parameter: t.Parameter, Measurement: header[valueCol]}
	for i := range t.Rows {
		date, err := parseDate(t.Cell(i, dateCol))
		if err != nil {
			return model.WeatherSeries{}, &model.DataIntegrityError{Table: t.ID, Row: i + 1, Column: model.ColWeatherDate, Reason: err.Error()}
		}
		if timeCol >= 0 {
			offset, err := parseClock(t.Cell(i, timeCol))
			if err != nil {
				return model.WeatherSeries{}, &model.DataIntegrityError{Table: t.ID, Row: i + 1, Column: model.ColWeatherTime, Reason: err.Error()}
			}
			date = date.Add(offset)
		}
		if !n.keepYear(t.Year, date.Year()) {
			continue
		}

		sample := model.WeatherSample{DateTime: date, Value: parseNumber(t.Cell(i, valueCol))}
		if qualityCol >= 0 {
			sample.Quality = strings.TrimSpace(t.Cell(i, qualityCol))
		}
		series.Samples = append(series.Samples, sample)
	}
	return series, nil
}
