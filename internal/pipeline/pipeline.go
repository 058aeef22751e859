// Package pipeline runs the harmonization stages in order: consumption is
// normalized, validated and reshaped, weather and prices are normalized, and
// all three are merged on DateTime.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"energy_harmonizer/internal/clean"
	"energy_harmonizer/internal/logger"
	"energy_harmonizer/internal/merge"
	"energy_harmonizer/internal/model"
	"energy_harmonizer/internal/normalize"
	"energy_harmonizer/internal/reshape"
	"energy_harmonizer/internal/weather"
)

// Config is the per-run configuration.
type Config struct {
	Thresholds clean.Thresholds
	// WeatherParameters orders the weather columns. Tables of other
	// parameters are skipped. Empty keeps every parameter in input order.
	WeatherParameters []string
	// Years restricts weather samples. Empty keeps every year.
	Years             []int
	AreaPrefixes      map[string]string
	WeatherResolution time.Duration
	KeepQuality       bool
	// Workers bounds concurrent per-table normalization.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Thresholds:        clean.DefaultThresholds(),
		WeatherParameters: []string{"4", "19", "26", "27"},
		Years:             []int{2020, 2021, 2022, 2023},
		AreaPrefixes:      normalize.DefaultOptions().AreaPrefixes,
		WeatherResolution: time.Hour,
		Workers:           4,
	}
}

// Inputs are the source tables of one run, each list ordered oldest to newest.
type Inputs struct {
	Consumption []model.SourceTable
	Prices      []model.SourceTable
	Weather     []model.SourceTable
}

// GroupInputs sorts tables into Inputs by their dataset-type tag, keeping
// the order within each type. A table without a recognized tag is a
// SchemaError.
func GroupInputs(tables []model.SourceTable) (Inputs, error) {
	var in Inputs
	for _, t := range tables {
		if !t.Type.Valid() {
			return Inputs{}, &model.SchemaError{Table: t.ID, DatasetType: t.Type, Reason: "unrecognized dataset type"}
		}
		switch t.Type {
		case model.DatasetConsumption:
			in.Consumption = append(in.Consumption, t)
		case model.DatasetPrice:
			in.Prices = append(in.Prices, t)
		case model.DatasetWeather:
			in.Weather = append(in.Weather, t)
		}
	}
	return in, nil
}

// Result holds the final dataset and the intermediate tables of a run.
type Result struct {
	RunID        string
	Consolidated model.ConsumptionTable
	Validated    model.ValidatedTable
	Long         model.LongTable
	Weather      model.Frame
	Prices       model.PriceTable
	Merged       model.Frame
	Report       clean.Report
	Stages       []StageEvent
	Started      time.Time
	Duration     time.Duration
}

type Pipeline struct {
	cfg        Config
	log        logger.Logger
	observer   Observer
	normalizer *normalize.Normalizer
	now        func() time.Time
}

// New returns a pipeline for cfg. A nil observer is allowed.
func New(cfg Config, log logger.Logger, observer Observer) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if observer == nil {
		observer = Observers()
	}
	opts := normalize.DefaultOptions()
	if cfg.AreaPrefixes != nil {
		opts.AreaPrefixes = cfg.AreaPrefixes
	}
	opts.Years = cfg.Years
	opts.Workers = cfg.Workers
	return &Pipeline{
		cfg:        cfg,
		log:        log,
		observer:   observer,
		normalizer: normalize.New(opts),
		now:        time.Now,
	}
}

// run carries the state of one Run call.
type run struct {
	p      *Pipeline
	id     string
	log    logger.Logger
	result *Result
	mark   time.Time
}

func (r *run) begin() { r.mark = r.p.now() }

func (r *run) done(stage Stage, rowsIn, rowsOut int) {
	ev := StageEvent{
		RunID:    r.id,
		Stage:    stage,
		RowsIn:   rowsIn,
		RowsOut:  rowsOut,
		Duration: r.p.now().Sub(r.mark),
	}
	r.result.Stages = append(r.result.Stages, ev)
	r.log.WithFields(map[string]interface{}{
		"stage":    string(stage),
		"rows_in":  rowsIn,
		"rows_out": rowsOut,
	}).Info("stage completed")
	r.p.observer.OnStageCompleted(ev)
}

func (r *run) fail(stage Stage, err error) (*Result, error) {
	err = stageError(stage, err)
	r.log.WithField("stage", string(stage)).Errorf("run failed: %v", err)
	r.p.observer.OnRunFailed(RunInfo{RunID: r.id, Started: r.result.Started}, err)
	return nil, err
}

// Run executes every stage. The first structural error aborts the run and is
// returned as a *StageError.
func (p *Pipeline) Run(in Inputs) (*Result, error) {
	r := &run{p: p, id: uuid.NewString()}
	r.log = p.log.WithField("run_id", r.id)
	r.result = &Result{RunID: r.id, Started: p.now()}

	r.log.WithFields(map[string]interface{}{
		"consumption_tables": len(in.Consumption),
		"price_tables":       len(in.Prices),
		"weather_tables":     len(in.Weather),
	}).Info("run started")
	p.observer.OnRunStarted(RunInfo{RunID: r.id, Started: r.result.Started})

	if len(in.Consumption) == 0 {
		return r.fail(StageNormalizeConsumption, ErrNoConsumption)
	}

	r.begin()
	consolidated, err := normalizeAs[model.ConsumptionTable](p.normalizer, model.DatasetConsumption, in.Consumption)
	if err != nil {
		return r.fail(StageNormalizeConsumption, err)
	}
	r.result.Consolidated = consolidated
	r.done(StageNormalizeConsumption, sourceRows(in.Consumption), consolidated.Len())

	r.begin()
	validated, report, err := clean.Validate(consolidated, p.cfg.Thresholds)
	if err != nil {
		return r.fail(StageValidate, err)
	}
	r.result.Validated, r.result.Report = validated, report
	for _, u := range report.Unresolved {
		r.log.WithFields(map[string]interface{}{
			"customer": u.Customer,
			"date":     u.Date.Format(model.DateLayout),
		}).Warnf("imputation unresolved: %v", u)
	}
	r.done(StageValidate, consolidated.Len(), validated.Len())

	r.begin()
	long := reshape.ToLong(validated)
	r.result.Long = long
	r.done(StageReshape, validated.Len(), long.Len())

	frames := []model.Frame{long.Frame()}

	if len(in.Weather) > 0 {
		r.begin()
		tables := p.selectWeather(r.log, in.Weather)
		wt, err := normalizeAs[model.WeatherTable](p.normalizer, model.DatasetWeather, tables)
		if err != nil {
			return r.fail(StageNormalizeWeather, err)
		}
		wt = p.orderSeries(r.log, wt)
		r.done(StageNormalizeWeather, sourceRows(tables), wt.Len())

		r.begin()
		wf, err := weather.Combine(wt, weather.Options{Resolution: p.cfg.WeatherResolution, KeepQuality: p.cfg.KeepQuality})
		if err != nil {
			return r.fail(StageCombineWeather, err)
		}
		r.result.Weather = wf
		r.done(StageCombineWeather, wt.Len(), wf.Len())
		if len(wt.Series) > 0 {
			frames = append(frames, wf)
		}
	}

	if len(in.Prices) > 0 {
		r.begin()
		prices, err := normalizeAs[model.PriceTable](p.normalizer, model.DatasetPrice, in.Prices)
		if err != nil {
			return r.fail(StageNormalizePrices, err)
		}
		r.result.Prices = prices
		r.done(StageNormalizePrices, sourceRows(in.Prices), prices.Len())
		frames = append(frames, prices.Frame())
	}

	r.begin()
	merged, err := merge.Merge(frames...)
	if err != nil {
		return r.fail(StageMerge, err)
	}
	r.result.Merged = merged
	rowsIn := 0
	for _, f := range frames {
		rowsIn += f.Len()
	}
	r.done(StageMerge, rowsIn, merged.Len())

	r.result.Duration = p.now().Sub(r.result.Started)
	summary := Summary{
		RunID:        r.id,
		Rows:         merged.Len(),
		Columns:      merged.Header(),
		RowsDropped:  report.RowsDropped,
		CellsMasked:  report.CellsMasked,
		CellsImputed: report.CellsImputed,
		Unresolved:   len(report.Unresolved),
		Duration:     r.result.Duration,
	}
	r.log.WithFields(map[string]interface{}{
		"rows":     summary.Rows,
		"columns":  len(summary.Columns),
		"duration": summary.Duration.String(),
	}).Info("run completed")
	p.observer.OnRunCompleted(summary)
	return r.result, nil
}

// normalizeAs dispatches tables through the normalizer by dataset type and
// returns the canonical table as T.
func normalizeAs[T model.Consolidated](n *normalize.Normalizer, dt model.DatasetType, tables []model.SourceTable) (T, error) {
	var zero T
	out, err := n.Normalize(dt, tables)
	if err != nil {
		return zero, err
	}
	t, ok := out.(T)
	if !ok {
		return zero, &model.SchemaError{DatasetType: dt, Reason: fmt.Sprintf("normalized to %T", out)}
	}
	return t, nil
}

func sourceRows(tables []model.SourceTable) int {
	n := 0
	for _, t := range tables {
		n += len(t.Rows)
	}
	return n
}

// selectWeather drops tables of parameters that are not configured.
func (p *Pipeline) selectWeather(log logger.Logger, tables []model.SourceTable) []model.SourceTable {
	if len(p.cfg.WeatherParameters) == 0 {
		return tables
	}
	wanted := make(map[string]bool, len(p.cfg.WeatherParameters))
	for _, param := range p.cfg.WeatherParameters {
		wanted[param] = true
	}
	kept := make([]model.SourceTable, 0, len(tables))
	for _, t := range tables {
		if !wanted[t.Parameter] {
			log.WithFields(map[string]interface{}{
				"table":     t.ID,
				"parameter": t.Parameter,
			}).Warn("skipping weather table of unconfigured parameter")
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// orderSeries sorts series into configured parameter order.
func (p *Pipeline) orderSeries(log logger.Logger, wt model.WeatherTable) model.WeatherTable {
	if len(p.cfg.WeatherParameters) == 0 {
		return wt
	}
	byParam := make(map[string]model.WeatherSeries, len(wt.Series))
	for _, s := range wt.Series {
		byParam[s.Parameter] = s
	}
	var out model.WeatherTable
	for _, param := range p.cfg.WeatherParameters {
		s, ok := byParam[param]
		if !ok {
			log.WithField("parameter", param).Warn("no weather data for configured parameter")
			continue
		}
		out.Series = append(out.Series, s)
	}
	return out
}
