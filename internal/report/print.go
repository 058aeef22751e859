package report

import (
	"fmt"
	"io"

	"energy_harmonizer/internal/model"
)

// Print writes r as plain-text tables.
func Print(w io.Writer, r Report) {
	days := r.TimeRange.End.Sub(r.TimeRange.Start).Hours()/24 + 1
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Harmonized Dataset Report")
	fmt.Fprintf(w, "  Data: %s to %s (%.0f days)   Rows: %d   Customers: %d\n",
		r.TimeRange.Start.Format(model.DateLayout), r.TimeRange.End.Format(model.DateLayout), days, r.Rows, r.Customers)
	fmt.Fprintf(w, "  Consumption: %s\n", formatKWh(r.TotalKWh))
	if r.AvgPrice != 0 || r.WeightedCost != 0 {
		weighted := safeDivide(r.WeightedCost, r.TotalKWh)
		fmt.Fprintf(w, "  Avg price: %.2f   Consumption-weighted price: %.2f   Ratio: %.2fx\n",
			r.AvgPrice, weighted, safeDivide(weighted, r.AvgPrice))
	}
	fmt.Fprintln(w)
	printHourlyTable(w, r.Hourly, r.TotalKWh)

	if len(r.TempBuckets) > 0 {
		fmt.Fprintln(w)
		printTempTable(w, r.TempColumn, r.TempBuckets)
	}
	if len(r.Correlations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Correlation with hourly consumption:")
		for _, c := range r.Correlations {
			fmt.Fprintf(w, "    %-28s r=%+.3f (n=%d)\n", c.Column, c.R, c.N)
		}
	}
	if r.Shift.CurrentCost > 0 {
		fmt.Fprintln(w)
		printShiftResult(w, r.Shift)
	}
	fmt.Fprintln(w)
}

func printHourlyTable(w io.Writer, hourly [model.HoursPerDay]HourlyBucket, totalKWh float64) {
	fmt.Fprintln(w, "  Hourly Distribution:")
	fmt.Fprintf(w, "   %4s │ %10s │ %10s │ %10s │ %5s\n", "Hour", "kWh", "Avg Price", "Cost", "Share")
	fmt.Fprintf(w, "  ──────┼────────────┼────────────┼────────────┼──────\n")

	var maxCostHour int
	var maxCost float64
	for h, b := range hourly {
		if b.Cost > maxCost {
			maxCost = b.Cost
			maxCostHour = h
		}
	}

	for h, b := range hourly {
		if b.Rows == 0 {
			continue
		}
		marker := ""
		if h == maxCostHour && maxCost > 0 {
			marker = " ← expensive"
		}
		fmt.Fprintf(w, "     %02d │ %10.3f │ %10.2f │ %10.2f │ %4.1f%%%s\n",
			h, b.KWh, safeDivide(b.Cost, b.KWh), b.Cost, safeDivide(b.KWh, totalKWh)*100, marker)
	}
}

func printTempTable(w io.Writer, column string, buckets []TempBucket) {
	fmt.Fprintf(w, "  Consumption by %s:\n", column)
	fmt.Fprintf(w, "   %16s │ %7s │ %10s │ %9s\n", "Temp Range", "Hours", "kWh", "kWh/h")
	fmt.Fprintf(w, "  ─────────────────┼─────────┼────────────┼──────────\n")
	for _, b := range buckets {
		fmt.Fprintf(w, "   %4.0f to %3.0f °C  │ %7d │ %10.3f │ %9.3f\n",
			b.TempMin, b.TempMax, b.Hours, b.KWh, safeDivide(b.KWh, float64(b.Hours)))
	}
}

func printShiftResult(w io.Writer, r ShiftResult) {
	fmt.Fprintln(w, "  Shift Potential:")
	fmt.Fprintf(w, "    Current cost:  %.2f\n", r.CurrentCost)
	fmt.Fprintf(w, "    Optimal cost:  %.2f\n", r.OptimalCost)
	fmt.Fprintf(w, "    Savings:       %.2f (%.1f%%)\n", r.Savings, safeDivide(r.Savings, r.CurrentCost)*100)
}

func formatKWh(kwh float64) string {
	if kwh >= 1000 {
		return fmt.Sprintf("%.2f MWh", kwh/1000)
	}
	return fmt.Sprintf("%.2f kWh", kwh)
}
