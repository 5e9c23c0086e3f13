// Package bars holds the canonical daily price record and the normalizer
// that turns provider rows into records.
package bars

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Cache files store prices as bare JSON numbers. Decoding accepts both
	// quoted and unquoted values regardless of this setting.
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout is the canonical form of Record.Date.
const DateLayout = "20060102"

// Record is one trading day for one symbol.
type Record struct {
	Date          string              `json:"date"`
	Open          decimal.Decimal     `json:"open"`
	High          decimal.Decimal     `json:"high"`
	Low           decimal.Decimal     `json:"low"`
	Close         decimal.Decimal     `json:"close"`
	Volume        int64               `json:"volume"`
	Turnover      decimal.Decimal     `json:"turnover"`
	ChangePercent decimal.NullDecimal `json:"change_percent"`
}

// Dates returns the dates of records in order.
func Dates(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Date
	}
	return out
}

// MaxDate returns the greatest date in records, or "" when empty.
// YYYYMMDD strings order the same way as the dates they encode.
func MaxDate(records []Record) string {
	latest := ""
	for _, r := range records {
		if r.Date > latest {
			latest = r.Date
		}
	}
	return latest
}
