package fetch

import (
	"context"
	"fmt"
	"strings"
)

const (
	// SMHIBaseURL is the SMHI open data meteorological observations API.
	SMHIBaseURL = "https://opendata-download-metobs.smhi.se/api/version/1.0"
	// KalmarStation is the station the default parameters are fetched for.
	KalmarStation = "66420"
)

// DefaultWeatherParameters are the SMHI parameters for wind speed (4) and the
// air temperature minima and maxima (19, 26, 27).
var DefaultWeatherParameters = []string{"4", "19", "26", "27"}

// SMHIURL returns the corrected-archive CSV URL of a parameter at a station.
func SMHIURL(base, parameter, station string) string {
	return fmt.Sprintf("%s/parameter/%s/station/%s/period/corrected-archive/data.csv",
		strings.TrimRight(base, "/"), parameter, station)
}

// SMHIArchive downloads the full corrected archive of one parameter as raw
// CSV, preamble included.
func (c *Client) SMHIArchive(ctx context.Context, base, parameter, station string) ([]byte, error) {
	data, err := c.Get(ctx, SMHIURL(base, parameter, station))
	if err != nil {
		return nil, fmt.Errorf("parameter %s station %s: %w", parameter, station, err)
	}
	return data, nil
}
