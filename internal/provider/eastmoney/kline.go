package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
)

// Klt is the eastmoney bar size code.
type Klt int

const (
	KltDaily   Klt = 101
	KltWeekly  Klt = 102
	KltMonthly Klt = 103
)

// Fqt is the eastmoney price adjustment code.
type Fqt int

const (
	FqtNone    Fqt = 0
	FqtForward Fqt = 1 // qfq
	FqtBack    Fqt = 2 // hfq
)

// klineFields2 selects, in order: date, open, close, high, low, volume,
// amount, amplitude, change percent, change, turnover rate.
const klineFields2 = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"

const klineFieldCount = 11

// Kline is one bar as eastmoney encodes it. Values stay textual.
type Kline struct {
	Date          string
	Open          string
	Close         string
	High          string
	Low           string
	Volume        string
	Amount        string
	Amplitude     string
	ChangePercent string
	Change        string
	TurnoverRate  string
}

// KlineSeries is the decoded payload of a kline request.
type KlineSeries struct {
	Code   string
	Market int
	Name   string
	Klines []Kline
}

type klineResponse struct {
	RC   int `json:"rc"`
	Data *struct {
		Code   string   `json:"code"`
		Market int      `json:"market"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// GetKlines retrieves bars for secID between beg and end (YYYYMMDD,
// inclusive). An unknown instrument or an empty window yields a series with
// no klines, not an error.
func (c *EastmoneyAPIClient) GetKlines(ctx context.Context, secID string, klt Klt, fqt Fqt, beg, end string, opts ...EastmoneyAPIClientOption) (*KlineSeries, error) {
	var override = &EastmoneyAPIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      maps.Clone(c.query),
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	query.Set("secid", secID)
	query.Set("klt", strconv.Itoa(int(klt)))
	query.Set("fqt", strconv.Itoa(int(fqt)))
	query.Set("beg", beg)
	query.Set("end", end)
	query.Set("fields1", "f1,f2,f3,f4,f5,f6")
	query.Set("fields2", klineFields2)

	url := fmt.Sprintf("%s/api/qt/stock/kline/get?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusForbidden:
		return nil, fmt.Errorf("forbidden")

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}

	var body klineResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding kline response: %w", err)
	}

	series := &KlineSeries{}
	if body.Data == nil {
		return series, nil
	}
	series.Code = body.Data.Code
	series.Market = body.Data.Market
	series.Name = body.Data.Name
	series.Klines = make([]Kline, 0, len(body.Data.Klines))
	for i, line := range body.Data.Klines {
		// "2025-01-02,24.50,24.10,24.80,23.90,123456,300000000.00,3.67,-1.63,-0.40,0.35"
		f := strings.Split(line, ",")
		if len(f) < klineFieldCount {
			return nil, fmt.Errorf("decoding kline %d: want %d fields, got %d", i, klineFieldCount, len(f))
		}
		series.Klines = append(series.Klines, Kline{
			Date:          f[0],
			Open:          f[1],
			Close:         f[2],
			High:          f[3],
			Low:           f[4],
			Volume:        f[5],
			Amount:        f[6],
			Amplitude:     f[7],
			ChangePercent: f[8],
			Change:        f[9],
			TurnoverRate:  f[10],
		})
	}
	return series, nil
}

// SecID converts a ticker such as "002050.SZ", "600000.sh" or "000001" into
// an eastmoney secid ("0.002050", "1.600000"). Shanghai listings are market
// 1; Shenzhen and Beijing are market 0.
func SecID(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	code, exch, _ := strings.Cut(s, ".")
	if code == "" {
		return "", fmt.Errorf("empty symbol %q", symbol)
	}
	market := 0
	switch exch {
	case "SH", "SS":
		market = 1
	case "SZ", "BJ":
	case "":
		switch code[0] {
		case '5', '6', '9':
			market = 1
		}
	default:
		return "", fmt.Errorf("unsupported exchange %q in %q", exch, symbol)
	}
	return fmt.Sprintf("%d.%s", market, code), nil
}
