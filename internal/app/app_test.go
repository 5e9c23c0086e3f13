package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stockbars/internal/archive"
	"stockbars/internal/bars"
	"stockbars/internal/config"
	"stockbars/internal/fetcher"
	"stockbars/internal/provider/cache"
	"stockbars/internal/provider/eastmoneyadapter"
	"stockbars/internal/provider/ratelimit"
)

const klineBody = `{"rc":0,"data":{"code":"002050","market":0,"name":"三花智控","klines":[
	"2025-01-03,24.10,24.60,24.90,24.00,98765,240000000.00,3.73,2.07,0.50,0.28",
	"2025-01-02,24.50,24.10,24.80,23.90,123456,300000000.00,3.67,-1.63,-0.40,0.35"]}}`

func testConfig(t *testing.T, baseURL string) config.Config {
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "stock_data")
	cfg.Provider.BaseURL = baseURL
	return cfg
}

func TestNew_FetchesThroughEastmoney(t *testing.T) {
	// Arrange
	secIDs := make(chan string, 1)
	referers := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secIDs <- r.URL.Query().Get("secid")
		referers <- r.Header.Get("Referer")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klineBody))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, srv.URL)
	cfg.Archive.SQLitePath = filepath.Join(t.TempDir(), "archive.db")
	a, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	// Act
	res, err := a.Fetcher.Fetch(context.Background(), fetcher.Request{Symbol: "002050.SZ", Start: "20250101", End: "20250105"})

	// Assert
	require.NoError(t, err)
	require.Equal(t, "0.002050", <-secIDs)
	require.Equal(t, "https://quote.eastmoney.com/", <-referers)
	require.Equal(t, []string{"20250102", "20250103"}, bars.Dates(res.Records))
	require.Equal(t, filepath.Join(cfg.DataDir, "002050.SZ.json"), res.Path)

	sq, ok := a.Archive.(*archive.SQLite)
	require.True(t, ok)
	archived, err := sq.Bars(context.Background(), "002050.SZ")
	require.NoError(t, err)
	require.Len(t, archived, 2)
}

func TestNew_ProviderChain(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")

	a, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	require.IsType(t, &eastmoneyadapter.Adapter{}, a.Provider)
	require.IsType(t, &archive.Noop{}, a.Archive)

	cfg.Provider.MinRequestIntervalSec = 1
	a, err = New(cfg, nil, Options{})
	require.NoError(t, err)
	require.IsType(t, &ratelimit.MinInterval{}, a.Provider)

	cfg.Provider.MaxRequestsPerMinute = 60
	cfg.Provider.CacheTTLSeconds = 30
	a, err = New(cfg, nil, Options{})
	require.NoError(t, err)
	require.IsType(t, &ratelimit.TokenBucketProvider{}, a.Provider, "query cache is opt-in")

	a, err = New(cfg, nil, Options{QueryCache: true})
	require.NoError(t, err)
	c, ok := a.Provider.(*cache.Provider)
	require.True(t, ok)
	require.IsType(t, &ratelimit.TokenBucketProvider{}, c.P)
	require.Equal(t, "eastmoney", a.Provider.Name())
}

func TestNew_CreatesDataDir(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	_, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	require.DirExists(t, cfg.DataDir)
}
