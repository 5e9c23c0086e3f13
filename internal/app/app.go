// Package app assembles the provider chain, cache store and archive from a
// loaded config. Both binaries build through it.
package app

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"stockbars/internal/archive"
	"stockbars/internal/config"
	"stockbars/internal/fetcher"
	"stockbars/internal/httpx"
	"stockbars/internal/provider"
	"stockbars/internal/provider/cache"
	"stockbars/internal/provider/eastmoney"
	"stockbars/internal/provider/eastmoneyadapter"
	"stockbars/internal/provider/ratelimit"
	"stockbars/internal/store"
)

type App struct {
	Config   config.Config
	Store    *store.Store
	Archive  archive.Recorder
	Provider provider.Provider
	Fetcher  *fetcher.Fetcher
}

// Options tweak how the provider chain is decorated.
type Options struct {
	// QueryCache enables the in-memory TTL cache. Only useful for processes
	// that serve more than one fetch.
	QueryCache bool
}

// New wires everything cfg describes and runs the store's directory setup.
// Close must be called to release the archive.
func New(cfg config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	st := store.New(cfg.DataDir, store.ParseKeyMode(cfg.CacheKey))
	if err := st.Setup(); err != nil {
		return nil, err
	}

	p, err := newProvider(cfg.Provider, opts)
	if err != nil {
		return nil, err
	}

	var rec archive.Recorder = archive.NewNoop()
	if cfg.Archive.SQLitePath != "" {
		sq, err := archive.NewSQLite(cfg.Archive.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		log.Info("sqlite archive opened", zap.String("path", cfg.Archive.SQLitePath))
		rec = sq
	}

	f := fetcher.New(p, st,
		fetcher.WithArchive(rec),
		fetcher.WithLogger(log.Named("fetcher")),
		fetcher.WithAdjust(cfg.Provider.Adjust),
	)
	return &App{Config: cfg, Store: st, Archive: rec, Provider: p, Fetcher: f}, nil
}

func (a *App) Close() error {
	return a.Archive.Close()
}

func newProvider(cfg config.Provider, opts Options) (provider.Provider, error) {
	timeout := cfg.RequestTimeoutSec
	if timeout <= 0 { timeout = 15 }
	httpClient := httpx.New(time.Duration(timeout) * time.Second)

	clientOpts := []eastmoney.EastmoneyAPIClientOption{
		eastmoney.WithHTTPClient(httpClient),
		eastmoney.WithHeader(http.Header{"Referer": []string{"https://quote.eastmoney.com/"}}),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, eastmoney.WithBaseURL(cfg.BaseURL))
	}
	if cfg.UT != "" {
		clientOpts = append(clientOpts, eastmoney.WithUT(cfg.UT))
	}
	client, err := eastmoney.NewEastmoneyAPIClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("eastmoney client: %w", err)
	}

	var p provider.Provider = eastmoneyadapter.New(eastmoneyadapter.Config{}, client)
	if cfg.MaxRequestsPerMinute > 0 {
		p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.PerMinute(cfg.MaxRequestsPerMinute, cfg.Burst)}
	} else if cfg.MinRequestIntervalSec > 0 {
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.MinRequestIntervalSec) * time.Second}
	}
	if opts.QueryCache && cfg.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(cfg.CacheTTLSeconds) * time.Second, MaxItems: cfg.CacheMaxItems}
	}
	return p, nil
}
