// dataset-report summarizes a harmonized CSV: hourly distribution of
// consumption and cost, consumption by temperature, weather correlations and
// the saving available from shifting load to cheaper hours.
package main

import (
	"flag"
	"log"
	"os"

	"energy_harmonizer/internal/config"
	"energy_harmonizer/internal/export"
	"energy_harmonizer/internal/ingest"
	"energy_harmonizer/internal/report"
)

func main() {
	input := flag.String("input", "data/harmonized.csv", "harmonized CSV written by harmonize")
	delimiter := flag.String("delimiter", string(export.DefaultDelimiter), "field delimiter of the input")
	tempColumn := flag.String("temp-column", "", "temperature column (default: first Air Temperature column)")
	tempBucket := flag.Float64("temp-bucket", 5, "temperature bucket width in °C")
	shiftWindow := flag.Int("shift-window", 4, "max hours to shift load")
	flag.Parse()

	f, err := ingest.ReadFrame(*input, config.Delimiter(*delimiter, export.DefaultDelimiter))
	if err != nil {
		log.Fatalf("Reading %s: %v", *input, err)
	}
	if f.Len() == 0 {
		log.Fatal("No data loaded")
	}

	r, err := report.Analyze(f, report.Options{
		TempColumn:  *tempColumn,
		BucketWidth: *tempBucket,
		ShiftWindow: *shiftWindow,
	})
	if err != nil {
		log.Fatalf("Analyzing %s: %v", *input, err)
	}
	report.Print(os.Stdout, r)
}
