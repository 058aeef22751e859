package fetch

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SpotBaseURL serves day-ahead spot prices per bidding zone in EUR/MWh, UTC.
const SpotBaseURL = "https://spot.utilitarian.io/electricity"

// SpotPrice is one hourly spot price.
type SpotPrice struct {
	Timestamp time.Time
	Value     float64
}

// number accepts a JSON number or a numeric string.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %s: %w", b, err)
	}
	*n = number(f)
	return nil
}

type spotEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Value     number    `json:"value"`
}

// SpotURL returns the price URL of one region and day.
func SpotURL(base, region string, day time.Time) string {
	return fmt.Sprintf("%s/%s/%d/%02d/%02d/", strings.TrimRight(base, "/"), region, day.Year(), int(day.Month()), day.Day())
}

// ParseSpotPrices decodes one day of spot prices.
func ParseSpotPrices(data []byte) ([]SpotPrice, error) {
	var entries []spotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	out := make([]SpotPrice, len(entries))
	for i, e := range entries {
		out[i] = SpotPrice{Timestamp: e.Timestamp.UTC(), Value: float64(e.Value)}
	}
	return out, nil
}

// SpotPrices fetches every day from start to end inclusive for region.
func (c *Client) SpotPrices(ctx context.Context, base, region string, start, end time.Time) ([]SpotPrice, error) {
	var all []SpotPrice
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		data, err := c.Get(ctx, SpotURL(base, region, day))
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", region, day.Format("2006-01-02"), err)
		}
		prices, err := ParseSpotPrices(data)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", region, day.Format("2006-01-02"), err)
		}
		c.log.Debugf("%s %s: %d prices", region, day.Format("2006-01-02"), len(prices))
		all = append(all, prices...)
	}
	return Dedupe(all), nil
}

// Dedupe sorts prices by timestamp and keeps the first price of every hour.
func Dedupe(prices []SpotPrice) []SpotPrice {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Timestamp.Before(prices[j].Timestamp)
	})
	out := prices[:0]
	for i, p := range prices {
		if i > 0 && p.Timestamp.Equal(prices[i-1].Timestamp) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// WriteSpotPrices writes prices as "timestamp,value" CSV.
func WriteSpotPrices(w io.Writer, prices []SpotPrice) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "value"}); err != nil {
		return err
	}
	for _, p := range prices {
		if err := cw.Write([]string{p.Timestamp.Format(time.RFC3339), strconv.FormatFloat(p.Value, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadSpotPrices reads a file written by WriteSpotPrices. A missing file
// yields no prices.
func LoadSpotPrices(path string) ([]SpotPrice, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(bufio.NewReader(f)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var out []SpotPrice
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		out = append(out, SpotPrice{Timestamp: ts, Value: v})
	}
	return out, nil
}
