// Package aggregate derives period statistics from a record set.
package aggregate

import (
	"github.com/shopspring/decimal"

	"stockbars/internal/bars"
)

// Summary describes a record set. First and Last are chosen by date, not by
// position, since merged caches are not re-sorted.
type Summary struct {
	Count         int                 `json:"count"`
	FirstDate     string              `json:"first_date,omitempty"`
	LastDate      string              `json:"last_date,omitempty"`
	High          decimal.Decimal     `json:"high"`
	Low           decimal.Decimal     `json:"low"`
	FirstClose    decimal.Decimal     `json:"first_close"`
	LastClose     decimal.Decimal     `json:"last_close"`
	Change        decimal.Decimal     `json:"change"`
	ChangePercent decimal.NullDecimal `json:"change_percent"`
	Volume        int64               `json:"volume"`
}

var hundred = decimal.NewFromInt(100)

// Summarize returns the zero Summary for an empty set. ChangePercent is null
// when the first close is zero.
func Summarize(records []bars.Record) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}
	first, last := records[0], records[0]
	s.High, s.Low = records[0].High, records[0].Low
	for _, r := range records {
		s.Count++
		s.Volume += r.Volume
		if r.Date < first.Date { first = r }
		if r.Date > last.Date { last = r }
		if r.High.GreaterThan(s.High) { s.High = r.High }
		if r.Low.LessThan(s.Low) { s.Low = r.Low }
	}
	s.FirstDate, s.LastDate = first.Date, last.Date
	s.FirstClose, s.LastClose = first.Close, last.Close
	s.Change = last.Close.Sub(first.Close)
	if !first.Close.IsZero() {
		s.ChangePercent = decimal.NewNullDecimal(s.Change.Div(first.Close).Mul(hundred).Round(2))
	}
	return s
}

// Between keeps records whose date falls in [start, end]. Empty bounds are
// open. Input order is preserved.
func Between(records []bars.Record, start, end string) []bars.Record {
	out := make([]bars.Record, 0, len(records))
	for _, r := range records {
		if start != "" && r.Date < start { continue }
		if end != "" && r.Date > end { continue }
		out = append(out, r)
	}
	return out
}
