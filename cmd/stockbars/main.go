package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockbars/internal/aggregate"
	"stockbars/internal/app"
	"stockbars/internal/config"
	"stockbars/internal/fetcher"
	"stockbars/internal/logger"
	"stockbars/internal/scheduler"
)

const usageText = `usage: stockbars <action> [flags]

actions:
  fetch      fetch daily bars for one symbol and merge them into the cache
  schedule   refresh the configured symbols on the configured cron schedule

flags:
  -s, --symbol string       ticker (default %q)
  -m, --months int          lookback months (default %d)
  -d, --date_range string   YYYYMMDD-YYYYMMDD, overrides --months
  -c, --config string       config file, JSON or YAML (default %q)
`

type options struct {
	action     string
	symbol     string
	symbolSet  bool
	months     int
	start      string
	end        string
	configPath string
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		printUsage(stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		printUsage(stderr)
		return 2
	}

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: config: %v\n", err)
		return 1
	}
	log, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "error: logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch opts.action {
	case "schedule":
		err = runSchedule(ctx, cfg, opts, log)
	default:
		err = runFetch(ctx, cfg, opts, log, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func parseArgs(args []string) (options, error) {
	opts := options{configPath: config.DefaultPath}
	if len(args) == 0 {
		return opts, usageError{"missing action"}
	}
	switch args[0] {
	case "fetch", "schedule":
		opts.action = args[0]
	case "-h", "-help", "--help", "help":
		return opts, flag.ErrHelp
	default:
		return opts, usageError{fmt.Sprintf("unknown action %q", args[0])}
	}

	var dateRange string
	fs := flag.NewFlagSet("stockbars "+opts.action, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.symbol, "symbol", config.DefaultSymbol, "ticker")
	fs.StringVar(&opts.symbol, "s", config.DefaultSymbol, "ticker")
	fs.IntVar(&opts.months, "months", config.DefaultMonths, "lookback months")
	fs.IntVar(&opts.months, "m", config.DefaultMonths, "lookback months")
	fs.StringVar(&dateRange, "date_range", "", "YYYYMMDD-YYYYMMDD")
	fs.StringVar(&dateRange, "d", "", "YYYYMMDD-YYYYMMDD")
	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "config file")
	fs.StringVar(&opts.configPath, "c", config.DefaultPath, "config file")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, err
		}
		return opts, usageError{err.Error()}
	}
	if fs.NArg() > 0 {
		return opts, usageError{fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "symbol" || f.Name == "s" {
			opts.symbolSet = true
		}
	})
	if opts.months <= 0 {
		return opts, usageError{fmt.Sprintf("months must be positive, got %d", opts.months)}
	}
	if dateRange != "" {
		start, end, err := fetcher.ParseDateRange(dateRange)
		if err != nil {
			return opts, usageError{err.Error()}
		}
		opts.start, opts.end = start, end
	}
	return opts, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, config.DefaultSymbol, config.DefaultMonths, config.DefaultPath)
}

func runFetch(ctx context.Context, cfg config.Config, opts options, log *zap.Logger, stdout io.Writer) error {
	a, err := app.New(cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Fetcher.Fetch(ctx, fetcher.Request{
		Symbol: opts.symbol,
		Months: opts.months,
		Start:  opts.start,
		End:    opts.end,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "fetched %d records (%d new) for %s, saved to %s\n", len(res.Records), res.Added, res.Symbol, res.Path)
	s := aggregate.Summarize(res.Records)
	pct := "n/a"
	if s.ChangePercent.Valid {
		pct = s.ChangePercent.Decimal.StringFixed(2) + "%"
	}
	fmt.Fprintf(stdout, "%s..%s close %s change %s (%s) high %s low %s\n",
		s.FirstDate, s.LastDate, s.LastClose, s.Change, pct, s.High, s.Low)
	return nil
}

func runSchedule(ctx context.Context, cfg config.Config, opts options, log *zap.Logger) error {
	a, err := app.New(cfg, log, app.Options{QueryCache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	symbols := cfg.Schedule.Symbols
	if opts.symbolSet || len(symbols) == 0 {
		symbols = []string{opts.symbol}
	}
	months := cfg.Schedule.Months
	if months <= 0 {
		months = opts.months
	}

	s := scheduler.New(a.Fetcher, symbols, months, log.Named("scheduler"))
	if err := s.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	if err := s.RunNow(ctx); err != nil {
		log.Warn("initial refresh had failures", zap.Error(err))
	}
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}
