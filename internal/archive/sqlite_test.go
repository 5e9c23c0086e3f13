package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockbars/internal/bars"
)

func rec(date, closeP string, pct *string) bars.Record {
	r := bars.Record{
		Date:     date,
		Open:     decimal.RequireFromString("10"),
		High:     decimal.RequireFromString("11"),
		Low:      decimal.RequireFromString("9.5"),
		Close:    decimal.RequireFromString(closeP),
		Volume:   1200,
		Turnover: decimal.RequireFromString("123456.78"),
	}
	if pct != nil {
		r.ChangePercent = decimal.NewNullDecimal(decimal.RequireFromString(*pct))
	}
	return r
}

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_RecordRunAndReadBack(t *testing.T) {
	// Arrange
	s := openTemp(t)
	ctx := context.Background()
	pct := "1.25"
	now := time.Unix(1_700_000_000, 0)
	run := Run{
		ID:         NewRunID(),
		Symbol:     "002050.SZ",
		Start:      "20240101",
		End:        "20240105",
		Path:       "/tmp/002050.SZ.json",
		Fetched:    2,
		Added:      2,
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
		Records:    []bars.Record{rec("20240102", "10.50", &pct), rec("20240103", "10.70", nil)},
	}

	// Act
	err := s.RecordRun(ctx, run)

	// Assert
	require.NoError(t, err)
	got, err := s.Bars(ctx, "002050.SZ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "20240102", got[0].Date)
	require.True(t, got[0].Close.Equal(decimal.RequireFromString("10.5")))
	require.True(t, got[0].ChangePercent.Valid)
	require.True(t, got[0].ChangePercent.Decimal.Equal(decimal.RequireFromString("1.25")))
	require.False(t, got[1].ChangePercent.Valid)
	require.Equal(t, int64(1200), got[1].Volume)

	last, ok, err := s.LastRun(ctx, "002050.SZ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, run.ID, last.ID)
	require.Equal(t, 2, last.Added)
	require.Equal(t, now.Add(time.Second).Unix(), last.FinishedAt.Unix())
}

func TestSQLite_UpsertsBarsBySymbolAndDate(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.RecordRun(ctx, Run{
		ID: NewRunID(), Symbol: "600000.SH", Start: "20240101", End: "20240102",
		StartedAt: now, FinishedAt: now,
		Records: []bars.Record{rec("20240102", "7.00", nil)},
	}))
	require.NoError(t, s.RecordRun(ctx, Run{
		ID: NewRunID(), Symbol: "600000.SH", Start: "20240101", End: "20240103",
		StartedAt: now, FinishedAt: now,
		Records: []bars.Record{rec("20240102", "7.10", nil), rec("20240103", "7.20", nil)},
	}))

	got, err := s.Bars(ctx, "600000.SH")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].Close.Equal(decimal.RequireFromString("7.1")))

	other, err := s.Bars(ctx, "000001.SZ")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestSQLite_DuplicateRunIDFailsWithoutPartialWrite(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	id := NewRunID()
	now := time.Now()

	require.NoError(t, s.RecordRun(ctx, Run{ID: id, Symbol: "X", StartedAt: now, FinishedAt: now}))
	err := s.RecordRun(ctx, Run{
		ID: id, Symbol: "X", StartedAt: now, FinishedAt: now,
		Records: []bars.Record{rec("20240102", "1", nil)},
	})
	require.Error(t, err)

	got, err := s.Bars(ctx, "X")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, s.RecordRun(context.Background(), Run{
		ID: NewRunID(), Symbol: "X", StartedAt: now, FinishedAt: now,
		Records: []bars.Record{rec("20240102", "1", nil)},
	}))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Bars(context.Background(), "X")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestLastRun_None(t *testing.T) {
	s := openTemp(t)
	_, ok, err := s.LastRun(context.Background(), "nothing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNoop(t *testing.T) {
	var r Recorder = NewNoop()
	require.NoError(t, r.RecordRun(context.Background(), Run{}))
	require.NoError(t, r.Close())
}
