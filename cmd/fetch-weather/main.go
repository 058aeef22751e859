// fetch-weather downloads the corrected SMHI observation archives of a
// station, one file per parameter, ready to be listed under input.weather.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"energy_harmonizer/internal/fetch"
	"energy_harmonizer/internal/logger"
)

func main() {
	station := flag.String("station", fetch.KalmarStation, "SMHI station id")
	params := flag.String("parameters", strings.Join(fetch.DefaultWeatherParameters, ","), "comma-separated SMHI parameter ids")
	dir := flag.String("dir", "data/weather", "output directory")
	baseURL := flag.String("base-url", fetch.SMHIBaseURL, "SMHI API base URL")
	rps := flag.Float64("rps", 1, "maximum requests per second")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	lg := logger.New(*level, "text")
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		lg.Fatalf("Creating %s: %v", *dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(*rps, lg)
	for _, p := range strings.Split(*params, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		data, err := client.SMHIArchive(ctx, *baseURL, p, *station)
		if err != nil {
			lg.Fatalf("Fetching: %v", err)
		}
		path := filepath.Join(*dir, fmt.Sprintf("Weather_P%s_full.csv", p))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			lg.Fatalf("Writing %s: %v", path, err)
		}
		lg.WithFields(map[string]interface{}{
			"parameter": p,
			"bytes":     len(data),
		}).Infof("Saved %s", path)
	}
}
