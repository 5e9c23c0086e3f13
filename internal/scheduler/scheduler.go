// Package scheduler refreshes the cache for a fixed set of symbols on a cron
// schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stockbars/internal/fetcher"
)

// Fetcher runs one fetch cycle. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) (*fetcher.Result, error)
}

type Scheduler struct {
	cron    *cron.Cron
	fetcher Fetcher
	symbols []string
	months  int
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(f Fetcher, symbols []string, months int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		fetcher: f,
		symbols: symbols,
		months:  months,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a refresh of every symbol at spec (six fields, seconds first).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunNow(s.ctx) }); err != nil {
		return fmt.Errorf("register refresh %q: %w", spec, err)
	}
	return nil
}

// RunNow fetches each symbol in order. A failing symbol is logged and the
// rest still run; the joined failures are returned.
func (s *Scheduler) RunNow(ctx context.Context) error {
	var errs []error
	for _, sym := range s.symbols {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.fetcher.Fetch(ctx, fetcher.Request{Symbol: sym, Months: s.months})
		if err != nil {
			s.log.Error("scheduled fetch failed", zap.String("symbol", sym), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
			continue
		}
		s.log.Info("scheduled fetch done",
			zap.String("symbol", sym),
			zap.Int("added", res.Added),
			zap.Int("total", len(res.Records)),
		)
	}
	return errors.Join(errs...)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Strings("symbols", s.symbols))
}

// Stop cancels in-flight fetches and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
