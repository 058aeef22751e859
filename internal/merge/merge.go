// Package merge joins DateTime-keyed frames into one wide dataset.
package merge

import (
	"errors"

	"energy_harmonizer/internal/model"
)

// MergedName is the name of the frame returned by Merge.
const MergedName = "merged"

var ErrNoFrames = errors.New("merge: no frames given")

// Merge full-outer-joins frames on DateTime, left to right. Columns appear in
// input order; a key missing from an input leaves that input's columns
// missing. A key repeated within an input (one row per customer and hour)
// yields one output row per repetition. The result is sorted by DateTime,
// keeping join order among equal keys.
func Merge(frames ...model.Frame) (model.Frame, error) {
	if len(frames) == 0 {
		return model.Frame{}, ErrNoFrames
	}
	if err := checkColumns(frames); err != nil {
		return model.Frame{}, err
	}

	acc := frames[0]
	for _, f := range frames[1:] {
		acc = outerJoin(acc, f)
	}
	out := acc.SortedByDateTime()
	out.Name = MergedName
	return out, nil
}

func checkColumns(frames []model.Frame) error {
	owner := map[string]string{model.ColDateTime: "key"}
	for _, f := range frames {
		for _, c := range f.Columns {
			if prev, ok := owner[c]; ok {
				return &model.MergeKeyCollisionError{Column: c, Left: prev, Right: f.Name}
			}
			owner[c] = f.Name
		}
	}
	return nil
}

func missingValues(n int) []model.Value {
	return make([]model.Value, n)
}

func joinValues(left, right []model.Value) []model.Value {
	out := make([]model.Value, 0, len(left)+len(right))
	out = append(out, left...)
	return append(out, right...)
}

// padded returns the values of r with exactly n entries.
func padded(r model.Record, n int) []model.Value {
	if len(r.Values) == n {
		return r.Values
	}
	out := missingValues(n)
	copy(out, r.Values)
	return out
}

func outerJoin(left, right model.Frame) model.Frame {
	nl, nr := len(left.Columns), len(right.Columns)
	out := model.Frame{
		Name:    left.Name,
		Columns: append(append([]string(nil), left.Columns...), right.Columns...),
		Rows:    make([]model.Record, 0, len(left.Rows)+len(right.Rows)),
	}

	byKey := make(map[int64][]int, len(right.Rows))
	var order []int64
	for i, r := range right.Rows {
		k := r.DateTime.UnixNano()
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], i)
	}

	matched := make(map[int64]bool, len(byKey))
	for _, l := range left.Rows {
		k := l.DateTime.UnixNano()
		lv := padded(l, nl)
		idx, ok := byKey[k]
		if !ok {
			out.Rows = append(out.Rows, model.Record{DateTime: l.DateTime, Values: joinValues(lv, missingValues(nr))})
			continue
		}
		matched[k] = true
		for _, i := range idx {
			out.Rows = append(out.Rows, model.Record{DateTime: l.DateTime, Values: joinValues(lv, padded(right.Rows[i], nr))})
		}
	}

	for _, k := range order {
		if matched[k] {
			continue
		}
		for _, i := range byKey[k] {
			r := right.Rows[i]
			out.Rows = append(out.Rows, model.Record{DateTime: r.DateTime, Values: joinValues(missingValues(nl), padded(r, nr))})
		}
	}
	return out
}
