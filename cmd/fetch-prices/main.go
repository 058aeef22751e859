// fetch-prices downloads hourly day-ahead spot prices for a Nordic bidding
// zone and writes a "timestamp,value" CSV (UTC, EUR/MWh) that the price
// normalizer reads directly. An existing output file is resumed from its
// latest timestamp.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"energy_harmonizer/internal/export"
	"energy_harmonizer/internal/fetch"
	"energy_harmonizer/internal/logger"
)

func main() {
	region := flag.String("region", "SE4", "bidding zone")
	startDate := flag.String("start", "2023-01-01", "start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "end date (YYYY-MM-DD), defaults to yesterday")
	output := flag.String("output", "data/electricity_prices.csv", "output CSV path")
	baseURL := flag.String("base-url", fetch.SpotBaseURL, "spot price API base URL")
	rps := flag.Float64("rps", 2, "maximum requests per second")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	lg := logger.New(*level, "text")

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	if *endDate != "" {
		end, err = time.Parse("2006-01-02", *endDate)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
	}

	existing, err := fetch.LoadSpotPrices(*output)
	if err != nil {
		log.Fatalf("Reading existing prices: %v", err)
	}
	if n := len(existing); n > 0 {
		latest := existing[n-1].Timestamp.Truncate(24 * time.Hour)
		if latest.After(start) {
			start = latest
			lg.Infof("Resuming from %s", start.Format("2006-01-02"))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Infof("Fetching %s spot prices from %s to %s", *region, start.Format("2006-01-02"), end.Format("2006-01-02"))
	prices, err := fetch.NewClient(*rps, lg).SpotPrices(ctx, *baseURL, *region, start, end)
	if err != nil {
		lg.Fatalf("Fetching prices: %v", err)
	}

	all := fetch.Dedupe(append(existing, prices...))
	err = export.WriteFile(*output, func(w io.Writer) error {
		return fetch.WriteSpotPrices(w, all)
	})
	if err != nil {
		lg.Fatalf("Writing prices: %v", err)
	}
	lg.Infof("Wrote %d prices to %s (%d new)", len(all), *output, len(all)-len(existing))
}
