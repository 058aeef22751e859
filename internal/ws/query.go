package ws

import (
	"errors"
	"fmt"
	"time"

	"energy_harmonizer/internal/store"
)

var ErrUnknownRun = errors.New("unknown run")

// QueryRows answers a rows request against the store. With At set, the rows
// at the latest DateTime at or before At are returned and Start/End are
// ignored. Otherwise Start (inclusive) and End (exclusive) default to the
// whole run.
func QueryRows(st *store.Store, p RowsRequestPayload) (RowsPayload, error) {
	f, ok := st.Get(p.RunID)
	if !ok {
		return RowsPayload{}, fmt.Errorf("%w: %s", ErrUnknownRun, p.RunID)
	}

	if p.At != "" {
		at, err := time.Parse(time.RFC3339, p.At)
		if err != nil {
			return RowsPayload{}, fmt.Errorf("invalid at: %w", err)
		}
		out := RowsFromRecords(p.RunID, f.Header(), st.RowsAt(p.RunID, at))
		out.Total = st.RowCount(p.RunID)
		return out, nil
	}

	tr, _ := st.TimeRange(p.RunID)
	start, end := tr.Start, tr.End.Add(time.Nanosecond)
	for _, b := range []struct {
		name  string
		value string
		dst   *time.Time
	}{{"start", p.Start, &start}, {"end", p.End, &end}} {
		if b.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, b.value)
		if err != nil {
			return RowsPayload{}, fmt.Errorf("invalid %s: %w", b.name, err)
		}
		*b.dst = t
	}

	out := RowsFromRecords(p.RunID, f.Header(), st.RowsInRange(p.RunID, start, end))
	out.Total = st.RowCount(p.RunID)
	return out, nil
}
