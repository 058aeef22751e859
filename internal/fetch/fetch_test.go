package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	c := NewClient(1000, nil)
	c.Backoff = time.Millisecond
	return c
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient()
	c.MaxRetries = 2
	_, err := c.Get(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testClient().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient().Get(ctx, "http://127.0.0.1:1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpotURL(t *testing.T) {
	day := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "https://spot.utilitarian.io/electricity/SE4/2023/01/05/", SpotURL(SpotBaseURL, "SE4", day))
}

func TestParseSpotPrices(t *testing.T) {
	data := []byte(`[
		{"timestamp": "2023-01-01T01:00:00Z", "value": "12.5"},
		{"timestamp": "2023-01-01T00:00:00+00:00", "value": 10}
	]`)
	prices, err := ParseSpotPrices(data)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.InDelta(t, 12.5, prices[0].Value, 1e-9)
	assert.InDelta(t, 10.0, prices[1].Value, 1e-9)

	_, err = ParseSpotPrices([]byte(`[{"timestamp": "2023-01-01T00:00:00Z", "value": "n/a"}]`))
	assert.Error(t, err)
}

func TestClient_SpotPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/SE4/2023/01/01/":
			w.Write([]byte(`[{"timestamp":"2023-01-01T01:00:00Z","value":"2"},{"timestamp":"2023-01-01T00:00:00Z","value":"1"}]`))
		case "/SE4/2023/01/02/":
			// overlaps the previous day
			w.Write([]byte(`[{"timestamp":"2023-01-01T01:00:00Z","value":"9"},{"timestamp":"2023-01-02T00:00:00Z","value":"3"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	prices, err := testClient().SpotPrices(context.Background(), srv.URL, "SE4", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{prices[0].Value, prices[1].Value, prices[2].Value})
}

func TestWriteAndLoadSpotPrices(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []SpotPrice{{Timestamp: t0, Value: 40.5}, {Timestamp: t0.Add(time.Hour), Value: -1}}

	var buf bytes.Buffer
	require.NoError(t, WriteSpotPrices(&buf, prices))
	assert.Equal(t, "timestamp,value\n2023-01-01T00:00:00Z,40.5\n2023-01-01T01:00:00Z,-1\n", buf.String())

	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	loaded, err := LoadSpotPrices(path)
	require.NoError(t, err)
	assert.Equal(t, prices, loaded)

	missing, err := LoadSpotPrices(filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSMHIArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parameter/4/station/66420/period/corrected-archive/data.csv", r.URL.Path)
		w.Write([]byte("Datum;Tid (UTC);Vindhastighet;Kvalitet\n"))
	}))
	defer srv.Close()

	data, err := testClient().SMHIArchive(context.Background(), srv.URL, "4", KalmarStation)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Vindhastighet")
}
