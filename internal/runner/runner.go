// Package runner loads the configured source files, runs the pipeline,
// keeps the merged dataset in the store and writes the configured outputs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"energy_harmonizer/internal/config"
	"energy_harmonizer/internal/export"
	"energy_harmonizer/internal/ingest"
	"energy_harmonizer/internal/logger"
	"energy_harmonizer/internal/model"
	"energy_harmonizer/internal/pipeline"
	"energy_harmonizer/internal/store"
)

var ErrRunInProgress = errors.New("a run is already in progress")

type Runner struct {
	cfg      *config.Config
	store    *store.Store
	log      logger.Logger
	observer pipeline.Observer

	mu sync.Mutex // held for the duration of a run

	// newPostgres is replaced in tests.
	newPostgres func(ctx context.Context, dsn, table string, log logger.Logger) (postgresSink, error)
}

type postgresSink interface {
	export.Sink
	Close()
}

// New returns a runner for cfg. st and observer may be nil.
func New(cfg *config.Config, st *store.Store, log logger.Logger, observer pipeline.Observer) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	if st == nil {
		st = store.New()
	}
	return &Runner{
		cfg:      cfg,
		store:    st,
		log:      log.WithField("component", "runner"),
		observer: observer,
		newPostgres: func(ctx context.Context, dsn, table string, log logger.Logger) (postgresSink, error) {
			return export.NewPostgresSink(ctx, dsn, table, log)
		},
	}
}

func (r *Runner) Store() *store.Store {
	return r.store
}

// Run executes one run synchronously. It returns ErrRunInProgress when
// another run holds the runner.
func (r *Runner) Run(ctx context.Context) (*pipeline.Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.run(ctx)
}

// Trigger starts a run in the background. Progress and the outcome are
// reported to the observer only.
func (r *Runner) Trigger(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer r.mu.Unlock()
		if _, err := r.run(ctx); err != nil {
			r.log.Errorf("background run failed: %v", err)
		}
	}()
	return nil
}

func (r *Runner) run(ctx context.Context) (*pipeline.Result, error) {
	in, err := r.LoadInputs(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(r.cfg.PipelineConfig(), r.log, r.observer)
	res, err := p.Run(in)
	if err != nil {
		return nil, err
	}

	r.store.Put(res.RunID, res.Merged)
	r.evict()

	if err := r.writeOutputs(ctx, res); err != nil {
		return res, fmt.Errorf("run %s: %w", res.RunID, err)
	}
	return res, nil
}

// evict drops the oldest stored runs beyond server.max_runs.
func (r *Runner) evict() {
	runs := r.store.Runs()
	for i := 0; i < len(runs)-r.cfg.Server.MaxRuns; i++ {
		r.store.Delete(runs[i].ID)
		r.log.WithField("run_id", runs[i].ID).Debug("evicted stored run")
	}
}

// LoadInputs reads every configured source file with the parser of its
// dataset type. Files are parsed concurrently; each type keeps its
// configured order.
func (r *Runner) LoadInputs(ctx context.Context) (pipeline.Inputs, error) {
	in := r.cfg.Input
	weather := ingest.NewSMHIParser()
	weather.Delimiter = config.Delimiter(in.WeatherDelimiter, ingest.SMHIDelimiter)
	weather.Encoding = in.WeatherEncoding
	parsers := map[model.DatasetType]ingest.Parser{
		model.DatasetConsumption: ingest.NewTableParser(config.Delimiter(in.ConsumptionDelimiter, ','), in.Encoding),
		model.DatasetPrice:       ingest.NewTableParser(config.Delimiter(in.PriceDelimiter, ','), in.PriceEncoding),
		model.DatasetWeather:     weather,
	}

	files := in.Files()
	types := make([]model.DatasetType, len(files))
	for i, f := range files {
		dt, err := model.ParseDatasetType(f.Type)
		if err != nil {
			return pipeline.Inputs{}, fmt.Errorf("input %s: %w", f.Path, err)
		}
		types[i] = dt
	}

	tables := make([]model.SourceTable, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Pipeline.Workers, 1))
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := ingest.ReadFile(f.Path, parsers[types[i]], ingest.Source{
				Type:      types[i],
				Year:      f.Year,
				Parameter: f.Parameter,
			})
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.Inputs{}, fmt.Errorf("loading inputs: %w", err)
	}

	out, err := pipeline.GroupInputs(tables)
	if err != nil {
		return pipeline.Inputs{}, err
	}
	r.log.WithFields(map[string]interface{}{
		"consumption_files": len(out.Consumption),
		"price_files":       len(out.Prices),
		"weather_files":     len(out.Weather),
	}).Debug("inputs loaded")
	return out, nil
}

// writeOutputs writes the merged frame to every configured sink and the
// intermediate tables to their optional paths.
func (r *Runner) writeOutputs(ctx context.Context, res *pipeline.Result) error {
	out := r.cfg.Output
	delim := config.Delimiter(out.Delimiter, export.DefaultDelimiter)
	log := r.log.WithField("run_id", res.RunID)

	if out.ConsolidatedPath != "" {
		table := res.Consolidated.ToSourceTable("consolidated")
		err := export.WriteFile(out.ConsolidatedPath, func(w io.Writer) error {
			return export.WriteTable(w, table, delim)
		})
		if err != nil {
			return err
		}
		log.WithField("path", out.ConsolidatedPath).Info("wrote consolidated table")
	}
	if out.WeatherPath != "" && res.Weather.Len() > 0 {
		if err := (export.CSVSink{Path: out.WeatherPath, Delimiter: delim}).Write(ctx, res.Weather); err != nil {
			return err
		}
		log.WithField("path", out.WeatherPath).Info("wrote weather table")
	}

	var sinks []export.Sink
	if out.CSVPath != "" {
		sinks = append(sinks, export.CSVSink{Path: out.CSVPath, Delimiter: delim})
	}
	if out.XLSXPath != "" {
		sinks = append(sinks, export.XLSXSink{Path: out.XLSXPath, Sheet: out.XLSXSheet})
	}
	if out.PostgresDSN != "" {
		pg, err := r.newPostgres(ctx, out.PostgresDSN, out.PostgresTable, r.log)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		if ps, ok := pg.(*export.PostgresSink); ok {
			ps.Replace = out.PostgresReplace
		}
		sinks = append(sinks, pg)
	}

	for _, s := range sinks {
		if err := s.Write(ctx, res.Merged); err != nil {
			return err
		}
	}
	log.WithField("sinks", len(sinks)).Info("outputs written")
	return nil
}
