// Package reshape turns wide daily consumption rows into hourly long rows.
package reshape

import (
	"sort"
	"time"

	"energy_harmonizer/internal/model"
)

// ToLong expands every validated row into one row per hour of the day. The
// hour's DateTime is the row's date plus the hour offset; customer fields and
// daily aggregates are copied to each of the 24 rows. The result is stably
// sorted by DateTime, so rows sharing an hour keep their input order.
func ToLong(t model.ValidatedTable) model.LongTable {
	out := model.LongTable{Rows: make([]model.LongRow, 0, len(t.Rows)*model.HoursPerDay)}
	for _, r := range t.Rows {
		for h, v := range r.Hours {
			out.Rows = append(out.Rows, model.LongRow{
				DateTime:        r.Date.Add(time.Duration(h) * time.Hour),
				Customer:        r.Customer,
				Area:            r.Area,
				IsPrivatePerson: r.IsPrivatePerson,
				Power:           v,
				DailyPower:      r.DailyTotal,
				DailyMissing:    r.MissingCount,
			})
		}
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].DateTime.Before(out.Rows[j].DateTime)
	})
	return out
}
