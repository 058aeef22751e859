package normalize

import (
	"sort"
	"strings"

	"energy_harmonizer/internal/model"
)

// Prices concatenates price tables, reduces each to the canonical DateTime
// and Price columns, and sorts the result by DateTime. Any other column,
// including a stray index column written by an earlier export, is dropped.
func (n *Normalizer) Prices(tables []model.SourceTable) (model.PriceTable, error) {
	parts, err := eachTable(n.opts.Workers, tables, n.priceTable)
	if err != nil {
		return model.PriceTable{}, err
	}

	var out model.PriceTable
	for _, p := range parts {
		out.Rows = append(out.Rows, p...)
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].DateTime.Before(out.Rows[j].DateTime)
	})
	return out, nil
}

func findColumn(header []string, candidates []string) int {
	for _, c := range candidates {
		for i, h := range header {
			if strings.TrimSpace(h) == c {
				return i
			}
		}
	}
	return -1
}

func (n *Normalizer) priceTable(t model.SourceTable) ([]model.PriceRow, error) {
	if err := checkType(t, model.DatasetPrice); err != nil {
		return nil, err
	}
	tsCol := findColumn(t.Header, n.opts.PriceTimeColumns)
	if tsCol < 0 {
		return nil, &model.MissingColumnError{Table: t.ID, Column: model.ColDateTime}
	}
	priceCol := findColumn(t.Header, n.opts.PriceValueColumns)
	if priceCol < 0 {
		return nil, &model.MissingColumnError{Table: t.ID, Column: model.ColPrice}
	}

	rows := make([]model.PriceRow, 0, len(t.Rows))
	for i := range t.Rows {
		ts, err := parseTimestamp(t.Cell(i, tsCol))
		if err != nil {
			return nil, &model.DataIntegrityError{Table: t.ID, Row: i + 1, Column: model.ColDateTime, Reason: err.Error()}
		}
		rows = append(rows, model.PriceRow{DateTime: ts, Price: parseNumber(t.Cell(i, priceCol))})
	}
	return rows, nil
}
