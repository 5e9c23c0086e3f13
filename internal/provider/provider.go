package provider

import (
	"context"
)

// Period is the bar size requested from a provider. Only daily bars are
// fetched today.
type Period string

const PeriodDaily Period = "daily"

// Query selects a window of bars for one symbol. Start and End are
// inclusive YYYYMMDD dates.
type Query struct {
	Symbol string
	Start  string
	End    string
	Period Period
	// Adjust is the price adjustment mode: "" (none), "qfq" or "hfq".
	Adjust string
}

// Row is one raw bar as the provider returned it, keyed by the provider's
// own column names. Values are left as text; callers coerce them.
type Row map[string]string

// Schema names the provider column that carries each canonical bar field.
type Schema struct {
	Date          string
	Open          string
	High          string
	Low           string
	Close         string
	Volume        string
	Turnover      string
	ChangePercent string
}

//go:generate mockgen -package=providermock -destination=providermock/provider.go -source=provider.go Provider
type Provider interface {
	Name() string
	Schema() Schema
	History(ctx context.Context, q Query) ([]Row, error)
}
