package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockbars/internal/provider"
)

type countingProvider struct {
	calls atomic.Int32
	rows  []provider.Row
	err   error
}

func (p *countingProvider) Name() string            { return "counting" }
func (p *countingProvider) Schema() provider.Schema { return provider.Schema{Date: "d"} }
func (p *countingProvider) History(_ context.Context, _ provider.Query) ([]provider.Row, error) {
	p.calls.Add(1)
	return p.rows, p.err
}

func TestProvider_HitWithinTTL(t *testing.T) {
	inner := &countingProvider{rows: []provider.Row{{"d": "2025-01-02"}}}
	c := &Provider{P: inner, TTL: time.Minute}
	q := provider.Query{Symbol: "002050.SZ", Start: "20250101", End: "20250110"}

	for i := 0; i < 3; i++ {
		rows, err := c.History(testContext(t), q)
		require.NoError(t, err)
		require.Len(t, rows, 1)
	}
	require.EqualValues(t, 1, inner.calls.Load())

	// a different window is a different key
	_, err := c.History(testContext(t), provider.Query{Symbol: "002050.SZ", Start: "20250101", End: "20250111"})
	require.NoError(t, err)
	require.EqualValues(t, 2, inner.calls.Load())
	require.Equal(t, "counting", c.Name())
	require.Equal(t, "d", c.Schema().Date)
}

func TestProvider_ZeroTTLPassesThrough(t *testing.T) {
	inner := &countingProvider{rows: []provider.Row{{"d": "2025-01-02"}}}
	c := &Provider{P: inner}
	q := provider.Query{Symbol: "X"}
	_, _ = c.History(testContext(t), q)
	_, _ = c.History(testContext(t), q)
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestProvider_ErrorsAndEmptyNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("down")}
	c := &Provider{P: inner, TTL: time.Minute}
	q := provider.Query{Symbol: "X"}

	_, err := c.History(testContext(t), q)
	require.Error(t, err)
	inner.err = nil
	rows, err := c.History(testContext(t), q)
	require.NoError(t, err)
	require.Empty(t, rows)
	_, _ = c.History(testContext(t), q)
	require.EqualValues(t, 3, inner.calls.Load())
}

func TestProvider_MaxItems(t *testing.T) {
	inner := &countingProvider{rows: []provider.Row{{"d": "2025-01-02"}}}
	c := &Provider{P: inner, TTL: time.Minute, MaxItems: 2}
	for _, s := range []string{"A", "B", "C", "D"} {
		_, err := c.History(testContext(t), provider.Query{Symbol: s})
		require.NoError(t, err)
	}
	require.LessOrEqual(t, len(c.items), 2)
	_, ok := c.items[provider.Query{Symbol: "D"}]
	require.True(t, ok, "the newest entry survives eviction")
}
