// Package fetcher runs one fetch-merge-save cycle: provider rows are
// normalized into bars, merged into the symbol's cache file and written back.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"stockbars/internal/archive"
	"stockbars/internal/bars"
	"stockbars/internal/provider"
	"stockbars/internal/store"
)

const (
	DefaultMonths = 6
	daysPerMonth  = 30
)

// ErrInvalidRequest is returned for requests rejected before any provider
// call is made.
var ErrInvalidRequest = errors.New("invalid request")

// Request selects a symbol and a window. Start and End (YYYYMMDD) take
// precedence over Months when both are set.
type Request struct {
	Symbol string
	Months int
	Start  string
	End    string
}

type Result struct {
	Symbol  string
	Start   string // resolved window, YYYYMMDD
	End     string
	Path    string
	Records []bars.Record // full merged set as saved
	Fetched int           // normalized rows returned by the provider
	Added   int           // rows appended to the cache
	RunID   string
}

type Fetcher struct {
	provider provider.Provider
	store    *store.Store
	archive  archive.Recorder
	log      *zap.Logger
	now      func() time.Time
	adjust   string
}

type Option func(*Fetcher)

func WithArchive(r archive.Recorder) Option {
	return func(f *Fetcher) {
		if r != nil {
			f.archive = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithAdjust sets the price adjustment passed to the provider: "" (none),
// "qfq" or "hfq".
func WithAdjust(adjust string) Option {
	return func(f *Fetcher) { f.adjust = adjust }
}

func New(p provider.Provider, st *store.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		provider: p,
		store:    st,
		archive:  archive.NewNoop(),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ParseDateRange splits "YYYYMMDD-YYYYMMDD" into its bounds. Both dates must
// be valid and start must not be after end.
func ParseDateRange(s string) (start, end string, err error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return "", "", fmt.Errorf("%w: date range %q is not YYYYMMDD-YYYYMMDD", ErrInvalidRequest, s)
	}
	if err := validateRange(start, end); err != nil {
		return "", "", err
	}
	return start, end, nil
}

func validateRange(start, end string) error {
	if start == "" || end == "" {
		return fmt.Errorf("%w: start and end must be set together", ErrInvalidRequest)
	}
	s, err := time.Parse(bars.DateLayout, start)
	if err != nil {
		return fmt.Errorf("%w: start %q is not YYYYMMDD", ErrInvalidRequest, start)
	}
	e, err := time.Parse(bars.DateLayout, end)
	if err != nil {
		return fmt.Errorf("%w: end %q is not YYYYMMDD", ErrInvalidRequest, end)
	}
	if s.After(e) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRequest, start, end)
	}
	return nil
}

// Window resolves the date range for req without calling the provider.
func (f *Fetcher) Window(req Request) (start, end string, err error) {
	if req.Start != "" || req.End != "" {
		if err := validateRange(req.Start, req.End); err != nil {
			return "", "", err
		}
		return req.Start, req.End, nil
	}
	months := req.Months
	if months <= 0 {
		months = DefaultMonths
	}
	now := f.now()
	from := now.AddDate(0, 0, -months*daysPerMonth)
	return from.Format(bars.DateLayout), now.Format(bars.DateLayout), nil
}

// Fetch runs one cycle for req. Nothing is written unless every step up to
// the save succeeds; an archive failure is logged and ignored.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
	}
	start, end, err := f.Window(req)
	if err != nil {
		return nil, err
	}

	startedAt := f.now()
	runID := archive.NewRunID()
	log := f.log.With(zap.String("symbol", symbol), zap.String("run_id", runID))

	q := provider.Query{Symbol: symbol, Start: start, End: end, Period: provider.PeriodDaily, Adjust: f.adjust}
	rows, err := f.provider.History(ctx, q)
	if err != nil {
		log.Error("provider request failed", zap.String("provider", f.provider.Name()), zap.Error(err))
		return nil, bars.NewError(bars.KindProvider, symbol, fmt.Errorf("%s history %s-%s: %w", f.provider.Name(), start, end, err))
	}
	incoming, err := bars.Normalize(q, f.provider.Schema(), rows)
	if err != nil {
		log.Warn("normalize failed", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, err
	}

	path := f.store.Path(symbol, incoming[0].Date, incoming[len(incoming)-1].Date)
	existing, err := f.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	merged := store.Merge(existing, incoming)
	if err := f.store.Save(path, merged); err != nil {
		log.Error("save failed", zap.String("path", path), zap.Error(err))
		return nil, bars.NewError(bars.KindCacheWrite, symbol, err)
	}

	res := &Result{
		Symbol:  symbol,
		Start:   start,
		End:     end,
		Path:    path,
		Records: merged,
		Fetched: len(incoming),
		Added:   len(merged) - len(existing),
		RunID:   runID,
	}
	log.Info("fetch complete",
		zap.String("path", path),
		zap.String("start", start),
		zap.String("end", end),
		zap.Int("fetched", res.Fetched),
		zap.Int("added", res.Added),
		zap.Int("total", len(merged)),
	)

	run := archive.Run{
		ID:         runID,
		Symbol:     symbol,
		Start:      start,
		End:        end,
		Path:       path,
		Fetched:    res.Fetched,
		Added:      res.Added,
		StartedAt:  startedAt,
		FinishedAt: f.now(),
		Records:    incoming,
	}
	if err := f.archive.RecordRun(ctx, run); err != nil {
		log.Warn("archive run failed", zap.Error(err))
	}
	return res, nil
}
