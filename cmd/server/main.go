package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"energy_harmonizer/internal/config"
	"energy_harmonizer/internal/export"
	"energy_harmonizer/internal/ingest"
	"energy_harmonizer/internal/logger"
	"energy_harmonizer/internal/metrics"
	"energy_harmonizer/internal/pipeline"
	"energy_harmonizer/internal/runner"
	"energy_harmonizer/internal/store"
	"energy_harmonizer/internal/ws"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	runOnStart := flag.Bool("run", false, "start a run as soon as the server is up")
	loadPath := flag.String("load", "", "harmonized CSV to serve before the first run")
	flag.Parse()

	boot := logger.New("info", "text")
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatalf("Invalid configuration: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	lg := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	lg.Infof("Configuration loaded from %s", *configPath)

	hub := ws.NewHub(lg)
	m := metrics.New()
	dataStore := store.New()
	if *loadPath != "" {
		f, err := ingest.ReadFrame(*loadPath, config.Delimiter(cfg.Output.Delimiter, export.DefaultDelimiter))
		if err != nil {
			lg.Fatalf("Failed to load %s: %v", *loadPath, err)
		}
		dataStore.Put(filepath.Base(*loadPath), f)
		lg.Infof("Loaded %d rows from %s", f.Len(), *loadPath)
	}
	r := runner.New(cfg, dataStore, lg, pipeline.Observers(ws.NewBridge(hub), m))

	mux := newMux(lg, r, dataStore, ws.NewHandler(hub, r, dataStore), m.Handler())
	if _, err := os.Stat(*frontendDir); err == nil {
		lg.Infof("Serving frontend from %s", *frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(*frontendDir)))
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		lg.Infof("Starting server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalf("Server failed: %v", err)
		}
	}()

	if *runOnStart {
		if err := r.Trigger(ctx); err != nil {
			lg.Warnf("Initial run not started: %v", err)
		}
	}

	<-ctx.Done()
	lg.Info("Shutdown signal received, cleaning up...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Errorf("Shutdown failed: %v", err)
	}
}

// Triggerer starts background runs.
type Triggerer interface {
	Trigger(ctx context.Context) error
}

func newMux(lg logger.Logger, r Triggerer, st *store.Store, wsHandler, metricsHandler http.Handler) *http.ServeMux {
	lg = lg.WithField("component", "http")
	respond := func(w http.ResponseWriter, status int, v any) {
		writeJSON(lg, w, status, v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("GET /metrics", metricsHandler)
	mux.Handle("/ws", wsHandler)

	mux.HandleFunc("POST /runs", func(w http.ResponseWriter, _ *http.Request) {
		// the run outlives the request
		if err := r.Trigger(context.Background()); err != nil {
			if errors.Is(err, runner.ErrRunInProgress) {
				respond(w, http.StatusConflict, ws.ErrorPayload{Message: err.Error()})
				return
			}
			respond(w, http.StatusInternalServerError, ws.ErrorPayload{Message: err.Error()})
			return
		}
		respond(w, http.StatusAccepted, map[string]string{"status": "started"})
	})

	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ws.RunsFromStore(st))
	})

	mux.HandleFunc("GET /runs/{id}/rows", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		rows, err := ws.QueryRows(st, ws.RowsRequestPayload{
			RunID: req.PathValue("id"),
			Start: q.Get("start"),
			End:   q.Get("end"),
			At:    q.Get("at"),
		})
		switch {
		case errors.Is(err, ws.ErrUnknownRun):
			respond(w, http.StatusNotFound, ws.ErrorPayload{Message: err.Error()})
		case err != nil:
			respond(w, http.StatusBadRequest, ws.ErrorPayload{Message: err.Error()})
		default:
			respond(w, http.StatusOK, rows)
		}
	})
	return mux
}

func writeJSON(lg logger.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lg.Errorf("Error encoding response: %v", err)
	}
}
