package bars

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockbars/internal/provider"
)

var dateLayouts = []string{
	DateLayout,
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Normalize maps provider rows onto Records using schema, sorted ascending
// by date. Zero rows is a KindEmptyResult error; a required field that does
// not coerce is KindMalformed. A missing or non-numeric change percent
// becomes a null value instead of an error.
func Normalize(q provider.Query, schema provider.Schema, rows []provider.Row) ([]Record, error) {
	if len(rows) == 0 {
		return nil, NewError(KindEmptyResult, q.Symbol,
			fmt.Errorf("no rows between %s and %s", q.Start, q.End))
	}

	out := make([]Record, 0, len(rows))
	for i, row := range rows {
		r, err := normalizeRow(q.Symbol, schema, i, row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	// keep the first row seen for a date
	uniq := out[:0]
	for _, r := range out {
		if len(uniq) > 0 && uniq[len(uniq)-1].Date == r.Date {
			continue
		}
		uniq = append(uniq, r)
	}
	return uniq, nil
}

func normalizeRow(symbol string, schema provider.Schema, idx int, row provider.Row) (Record, error) {
	var r Record
	var err error

	if r.Date, err = NormalizeDate(row[schema.Date]); err != nil {
		return r, malformed(symbol, "row %d: %s: %v", idx, schema.Date, err)
	}

	fields := []struct {
		col string
		dst *decimal.Decimal
	}{
		{schema.Open, &r.Open},
		{schema.High, &r.High},
		{schema.Low, &r.Low},
		{schema.Close, &r.Close},
		{schema.Turnover, &r.Turnover},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(strings.TrimSpace(row[f.col]))
		if err != nil {
			return r, malformed(symbol, "row %d: %s %q: %v", idx, f.col, row[f.col], err)
		}
		*f.dst = d
	}

	vol, err := decimal.NewFromString(strings.TrimSpace(row[schema.Volume]))
	if err != nil {
		return r, malformed(symbol, "row %d: %s %q: %v", idx, schema.Volume, row[schema.Volume], err)
	}
	r.Volume = vol.IntPart()

	r.ChangePercent = optionalDecimal(row[schema.ChangePercent])
	return r, nil
}

// NormalizeDate accepts the date spellings providers use and returns the
// YYYYMMDD form.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

func optionalDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "--", "nan", "null", "none":
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
