package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"stockbars/internal/bars"
)

// SQLite writes runs and their bars to a SQLite database. Bars are upserted
// on (symbol, date), so the table always holds the latest values seen.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (or creates) the database at path and runs migrations.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetch_runs (
			id          TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			start_date  TEXT NOT NULL,
			end_date    TEXT NOT NULL,
			path        TEXT NOT NULL,
			fetched     INTEGER NOT NULL,
			added       INTEGER NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON fetch_runs(symbol, finished_at)`,

		`CREATE TABLE IF NOT EXISTS daily_bars (
			symbol         TEXT NOT NULL,
			date           TEXT NOT NULL,
			open           TEXT NOT NULL,
			high           TEXT NOT NULL,
			low            TEXT NOT NULL,
			close          TEXT NOT NULL,
			volume         INTEGER NOT NULL,
			turnover       TEXT NOT NULL,
			change_percent TEXT,
			run_id         TEXT NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and upserts its records in one transaction.
func (s *SQLite) RecordRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO fetch_runs
		(id, symbol, start_date, end_date, path, fetched, added, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Symbol, run.Start, run.End, run.Path, run.Fetched, run.Added,
		run.StartedAt.Unix(), run.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_bars
		(symbol, date, open, high, low, close, volume, turnover, change_percent, run_id)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low, close=excluded.close,
			volume=excluded.volume, turnover=excluded.turnover,
			change_percent=excluded.change_percent, run_id=excluded.run_id`)
	if err != nil {
		return fmt.Errorf("prepare bars: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Records {
		var pct any
		if r.ChangePercent.Valid {
			pct = r.ChangePercent.Decimal.String()
		}
		if _, err := stmt.ExecContext(ctx,
			run.Symbol, r.Date, r.Open.String(), r.High.String(), r.Low.String(), r.Close.String(),
			r.Volume, r.Turnover.String(), pct, run.ID,
		); err != nil {
			return fmt.Errorf("upsert bar %s: %w", r.Date, err)
		}
	}
	return tx.Commit()
}

// Bars returns every archived record for symbol in date order.
func (s *SQLite) Bars(ctx context.Context, symbol string) ([]bars.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, open, high, low, close, volume, turnover, change_percent
		FROM daily_bars WHERE symbol = ? ORDER BY date`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bars.Record
	for rows.Next() {
		var (
			r                                 bars.Record
			open, high, low, closeP, turnover string
			pct                               sql.NullString
		)
		if err := rows.Scan(&r.Date, &open, &high, &low, &closeP, &r.Volume, &turnover, &pct); err != nil {
			return nil, err
		}
		r.Open, err = decimal.NewFromString(open)
		if err == nil {
			r.High, err = decimal.NewFromString(high)
		}
		if err == nil {
			r.Low, err = decimal.NewFromString(low)
		}
		if err == nil {
			r.Close, err = decimal.NewFromString(closeP)
		}
		if err == nil {
			r.Turnover, err = decimal.NewFromString(turnover)
		}
		if err == nil && pct.Valid {
			var d decimal.Decimal
			d, err = decimal.NewFromString(pct.String)
			r.ChangePercent = decimal.NewNullDecimal(d)
		}
		if err != nil {
			return nil, fmt.Errorf("decode bar %s: %w", r.Date, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastRun returns the most recent run for symbol without its records.
func (s *SQLite) LastRun(ctx context.Context, symbol string) (Run, bool, error) {
	var (
		run               Run
		started, finished int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, symbol, start_date, end_date, path, fetched, added, started_at, finished_at
		FROM fetch_runs WHERE symbol = ? ORDER BY finished_at DESC, rowid DESC LIMIT 1`, symbol).
		Scan(&run.ID, &run.Symbol, &run.Start, &run.End, &run.Path, &run.Fetched, &run.Added, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	run.StartedAt = time.Unix(started, 0)
	run.FinishedAt = time.Unix(finished, 0)
	return run, true, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
