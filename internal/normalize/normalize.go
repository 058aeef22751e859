// Package normalize maps source-specific tables onto the canonical schema of
// their dataset type. Tables are normalized independently (and concurrently)
// and concatenated in input order.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"energy_harmonizer/internal/model"
)

// Options configures a Normalizer for a single run.
type Options struct {
	// AreaPrefixes maps a truncated area prefix to its canonical spelling.
	AreaPrefixes map[string]string
	// PriceTimeColumns lists accepted timestamp headers for price tables, by priority.
	PriceTimeColumns []string
	// PriceValueColumns lists accepted price headers for price tables, by priority.
	PriceValueColumns []string
	// Years restricts weather samples to these years. Empty keeps every year.
	Years []int
	// Workers bounds concurrent per-table work. Zero or less means unbounded.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		AreaPrefixes:      map[string]string{"Stens": "Stensö"},
		PriceTimeColumns:  []string{model.ColDateTime, "timestamp", "time_start", "Timestamp"},
		PriceValueColumns: []string{model.ColPrice, "value", "price", "EUR_per_kWh"},
	}
}

type areaRule struct {
	prefix    string
	canonical string
}

type Normalizer struct {
	opts      Options
	areaRules []areaRule
	years     map[int]bool
}

func New(opts Options) *Normalizer {
	n := &Normalizer{opts: opts}
	for prefix, canonical := range opts.AreaPrefixes {
		n.areaRules = append(n.areaRules, areaRule{prefix: prefix, canonical: canonical})
	}
	// Longest prefix wins; ties broken alphabetically so map order never matters.
	sort.Slice(n.areaRules, func(i, j int) bool {
		a, b := n.areaRules[i], n.areaRules[j]
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return a.prefix < b.prefix
	})
	if len(opts.Years) > 0 {
		n.years = make(map[int]bool, len(opts.Years))
		for _, y := range opts.Years {
			n.years[y] = true
		}
	}
	return n
}

// Normalize dispatches on the dataset type and consolidates tables, given
// oldest to newest, into one canonical table.
func (n *Normalizer) Normalize(dt model.DatasetType, tables []model.SourceTable) (model.Consolidated, error) {
	var (
		out model.Consolidated
		err error
	)
	switch dt {
	case model.DatasetConsumption:
		out, err = n.Consumption(tables)
	case model.DatasetPrice:
		out, err = n.Prices(tables)
	case model.DatasetWeather:
		out, err = n.Weather(tables)
	default:
		return nil, &model.SchemaError{DatasetType: dt, Reason: "unrecognized dataset type"}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CanonicalArea collapses known truncated spellings of an area name.
func (n *Normalizer) CanonicalArea(name string) string {
	for _, r := range n.areaRules {
		if strings.HasPrefix(name, r.prefix) {
			return r.canonical
		}
	}
	return name
}

func checkType(t model.SourceTable, want model.DatasetType) error {
	if t.Type != "" && t.Type != want {
		return &model.SchemaError{
			Table:       t.ID,
			DatasetType: t.Type,
			Reason:      fmt.Sprintf("table passed to %s normalization", want),
		}
	}
	return nil
}

// eachTable runs fn for every table, bounded by the configured worker count,
// and returns the results in input order. When several tables fail, the error
// of the earliest one is returned.
func eachTable[T any](workers int, tables []model.SourceTable, fn func(model.SourceTable) (T, error)) ([]T, error) {
	results := make([]T, len(tables))
	errs := make([]error, len(tables))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, t := range tables {
		g.Go(func() error {
			results[i], errs[i] = fn(t)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
