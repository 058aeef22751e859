package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"energy_harmonizer/internal/model"
)

const (
	rawValuePrefix = "VALUE_"
	rawFromDate    = "ID_FROM_DATE"
	hourPrefix     = "HOUR_"
)

// DetectVariant classifies a consumption header by the convention it uses.
func DetectVariant(header []string) model.SchemaVariant {
	for _, h := range header {
		h = strings.TrimSpace(h)
		if h == rawFromDate || strings.HasPrefix(h, rawValuePrefix) {
			return model.VariantValuePrefixed
		}
	}
	return model.VariantCanonical
}

// canonicalHeader remaps a value-prefixed header to the canonical one.
// Canonical headers pass through trimmed.
func canonicalHeader(header []string) []string {
	variant := DetectVariant(header)
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if variant == model.VariantValuePrefixed {
			switch {
			case h == rawFromDate:
				h = model.ColDate
			case strings.HasPrefix(h, rawValuePrefix):
				h = hourPrefix + strings.TrimPrefix(h, rawValuePrefix)
			}
		}
		out[i] = h
	}
	return out
}

// Consumption consolidates per-year consumption tables. Row order is kept:
// all rows of the first table, then the second, and so on.
func (n *Normalizer) Consumption(tables []model.SourceTable) (model.ConsumptionTable, error) {
	parts, err := eachTable(n.opts.Workers, tables, n.consumptionTable)
	if err != nil {
		return model.ConsumptionTable{}, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := model.ConsumptionTable{Rows: make([]model.ConsumptionRow, 0, total)}
	for _, p := range parts {
		out.Rows = append(out.Rows, p...)
	}
	return out, nil
}

type consumptionColumns struct {
	customer, area, private, date, year int
	hours                               [model.HoursPerDay]int
}

func locateConsumptionColumns(t model.SourceTable, header []string) (consumptionColumns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	require := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return -1, &model.MissingColumnError{Table: t.ID, Column: name}
		}
		return i, nil
	}

	var cols consumptionColumns
	var err error
	if cols.customer, err = require(model.ColCustomer); err != nil {
		return cols, err
	}
	if cols.area, err = require(model.ColArea); err != nil {
		return cols, err
	}
	if cols.private, err = require(model.ColIsPrivatePerson); err != nil {
		return cols, err
	}
	if cols.date, err = require(model.ColDate); err != nil {
		return cols, err
	}
	cols.year = -1
	if t.Year == 0 {
		if cols.year, err = require(model.ColYear); err != nil {
			return cols, err
		}
	}

	hourCount := 0
	for _, h := range header {
		if strings.HasPrefix(h, hourPrefix) {
			hourCount++
		}
	}
	if hourCount != model.HoursPerDay {
		return cols, &model.DataIntegrityError{
			Table:  t.ID,
			Reason: fmt.Sprintf("found %d hourly columns, want %d", hourCount, model.HoursPerDay),
		}
	}
	for h := 0; h < model.HoursPerDay; h++ {
		if cols.hours[h], err = require(model.HourColumn(h)); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

// checkRowWidth rejects a row that does not carry exactly one cell per
// header column. Cells past the header count as extra hourly values.
func checkRowWidth(t model.SourceTable, i, width int, cols consumptionColumns) error {
	row := t.Rows[i]
	if len(row) == width {
		return nil
	}
	hourly := max(len(row)-width, 0)
	for _, j := range cols.hours {
		if j < len(row) {
			hourly++
		}
	}
	reason := fmt.Sprintf("row has %d hourly values, want %d", hourly, model.HoursPerDay)
	if hourly == model.HoursPerDay {
		reason = fmt.Sprintf("row has %d cells, header has %d", len(row), width)
	}
	return &model.DataIntegrityError{Table: t.ID, Row: i + 1, Reason: reason}
}

func (n *Normalizer) consumptionTable(t model.SourceTable) ([]model.ConsumptionRow, error) {
	if err := checkType(t, model.DatasetConsumption); err != nil {
		return nil, err
	}
	header := canonicalHeader(t.Header)
	cols, err := locateConsumptionColumns(t, header)
	if err != nil {
		return nil, err
	}

	rows := make([]model.ConsumptionRow, 0, len(t.Rows))
	for i := range t.Rows {
		if err := checkRowWidth(t, i, len(header), cols); err != nil {
			return nil, err
		}
		date, err := parseDate(t.Cell(i, cols.date))
		if err != nil {
			return nil, &model.DataIntegrityError{Table: t.ID, Row: i + 1, Column: model.ColDate, Reason: err.Error()}
		}
		private, err := parseFlag(t.Cell(i, cols.private))
		if err != nil {
			return nil, &model.DataIntegrityError{Table: t.ID, Row: i + 1, Column: model.ColIsPrivatePerson, Reason: err.Error()}
		}
		year := t.Year
		if cols.year >= 0 {
			year, err = strconv.Atoi(strings.TrimSpace(t.Cell(i, cols.year)))
			if err != nil {
				return nil, &model.DataIntegrityError{Table: t.ID, Row: i + 1, Column: model.ColYear, Reason: err.Error()}
			}
		}

		row := model.ConsumptionRow{
			Customer:        strings.TrimSpace(t.Cell(i, cols.customer)),
			Area:            n.CanonicalArea(strings.TrimSpace(t.Cell(i, cols.area))),
			IsPrivatePerson: private,
			Date:            date,
			Year:            year,
		}
		for h, j := range cols.hours {
			row.Hours[h] = parseNumber(t.Cell(i, j))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
