package eastmoneyadapter

import (
	"context"
	"fmt"
	"strings"

	"stockbars/internal/provider"
	"stockbars/internal/provider/eastmoney"
)

// Column names of the rows this adapter produces. They follow the A-share
// daily history table layout.
const (
	ColDate          = "日期"
	ColCode          = "股票代码"
	ColOpen          = "开盘"
	ColClose         = "收盘"
	ColHigh          = "最高"
	ColLow           = "最低"
	ColVolume        = "成交量"
	ColAmount        = "成交额"
	ColAmplitude     = "振幅"
	ColChangePercent = "涨跌幅"
	ColChange        = "涨跌额"
	ColTurnoverRate  = "换手率"
)

type Config struct {
	Name string // display name, default: eastmoney
}

type Adapter struct {
	cfg    Config
	client *eastmoney.EastmoneyAPIClient
}

func New(cfg Config, client *eastmoney.EastmoneyAPIClient) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "eastmoney"
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Schema() provider.Schema {
	return provider.Schema{
		Date:          ColDate,
		Open:          ColOpen,
		High:          ColHigh,
		Low:           ColLow,
		Close:         ColClose,
		Volume:        ColVolume,
		Turnover:      ColAmount,
		ChangePercent: ColChangePercent,
	}
}

// History fetches daily bars for q. The ticker's exchange suffix is only used
// to pick the eastmoney market.
func (a *Adapter) History(ctx context.Context, q provider.Query) ([]provider.Row, error) {
	secID, err := eastmoney.SecID(q.Symbol)
	if err != nil {
		return nil, err
	}
	klt, err := kltFor(q.Period)
	if err != nil {
		return nil, err
	}
	fqt, err := fqtFor(q.Adjust)
	if err != nil {
		return nil, err
	}

	series, err := a.client.GetKlines(ctx, secID, klt, fqt, q.Start, q.End)
	if err != nil {
		return nil, fmt.Errorf("%s klines %s: %w", a.cfg.Name, secID, err)
	}

	code := series.Code
	if code == "" {
		_, code, _ = strings.Cut(secID, ".")
	}
	rows := make([]provider.Row, 0, len(series.Klines))
	for _, k := range series.Klines {
		rows = append(rows, provider.Row{
			ColDate:          k.Date,
			ColCode:          code,
			ColOpen:          k.Open,
			ColClose:         k.Close,
			ColHigh:          k.High,
			ColLow:           k.Low,
			ColVolume:        k.Volume,
			ColAmount:        k.Amount,
			ColAmplitude:     k.Amplitude,
			ColChangePercent: k.ChangePercent,
			ColChange:        k.Change,
			ColTurnoverRate:  k.TurnoverRate,
		})
	}
	return rows, nil
}

func kltFor(p provider.Period) (eastmoney.Klt, error) {
	switch p {
	case provider.PeriodDaily, "":
		return eastmoney.KltDaily, nil
	}
	return 0, fmt.Errorf("unsupported period %q", p)
}

func fqtFor(adjust string) (eastmoney.Fqt, error) {
	switch strings.ToLower(strings.TrimSpace(adjust)) {
	case "":
		return eastmoney.FqtNone, nil
	case "qfq":
		return eastmoney.FqtForward, nil
	case "hfq":
		return eastmoney.FqtBack, nil
	}
	return 0, fmt.Errorf("unsupported adjust %q", adjust)
}
