package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// Aggregator implements contracts.MarketDataAggregator over the data.* tables
// ⭐ SSOT: 전략 입력 데이터 조립은 여기서만
type Aggregator struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	now    func() time.Time
}

// NewAggregator creates a new market data aggregator
func NewAggregator(pool *pgxpool.Pool, log *logger.Logger) *Aggregator {
	return &Aggregator{pool: pool, logger: log.Module("marketdata"), now: time.Now}
}

// GetFullMarketData loads price, trend, put chain and dividend data for one symbol.
// Missing parts stay nil. (nil, nil) means the symbol is unknown to every table.
func (a *Aggregator) GetFullMarketData(ctx context.Context, symbol string) (*contracts.AggregatedMarketData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	price, err := a.getPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load price for %s: %w", symbol, err)
	}
	trend, err := a.getTrend(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load trend for %s: %w", symbol, err)
	}
	options, err := a.getOptions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load options for %s: %w", symbol, err)
	}
	dividend, err := a.getDividend(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load dividend for %s: %w", symbol, err)
	}

	if price == nil && trend == nil && len(options) == 0 && dividend == nil {
		return nil, nil
	}

	asOf := a.now()
	if price != nil && !price.AsOf.IsZero() {
		asOf = price.AsOf
	}

	return &contracts.AggregatedMarketData{
		Symbol:   symbol,
		Price:    price,
		Trend:    trend,
		Options:  options,
		Dividend: dividend,
		AsOf:     asOf,
	}, nil
}

func (a *Aggregator) getPrice(ctx context.Context, symbol string) (*contracts.PriceSnapshot, error) {
	query := `
		SELECT price, sma20, sma50, sma200, rsi, macd, macd_signal,
		       high_52w, low_52w, volume, avg_volume, as_of
		FROM data.price_snapshots
		WHERE symbol = $1
	`

	var p contracts.PriceSnapshot
	err := a.pool.QueryRow(ctx, query, symbol).Scan(
		&p.Price, &p.SMA20, &p.SMA50, &p.SMA200, &p.RSI, &p.MACD, &p.MACDSignal,
		&p.High52W, &p.Low52W, &p.Volume, &p.AvgVolume, &p.AsOf,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *Aggregator) getTrend(ctx context.Context, symbol string) (*contracts.TrendAnalysis, error) {
	query := `SELECT direction, strength, confidence FROM data.trend_analysis WHERE symbol = $1`

	var (
		t         contracts.TrendAnalysis
		direction string
	)
	err := a.pool.QueryRow(ctx, query, symbol).Scan(&direction, &t.Strength, &t.Confidence)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d, ok := contracts.ParseTrendDirection(direction)
	if !ok {
		// 알 수 없는 방향은 추세 없음으로 처리 (전략이 건너뜀)
		a.logger.WithSymbol(symbol).WithField("direction", direction).Warn("Unknown trend direction, ignoring trend")
		return nil, nil
	}
	t.Direction = d
	return &t, nil
}

// getOptions returns unexpired puts ordered by expiry then strike
func (a *Aggregator) getOptions(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	query := `
		SELECT contract_type, strike, expiry, bid, ask, last,
		       delta, gamma, theta, vega, implied_volatility, open_interest, volume
		FROM data.option_quotes
		WHERE symbol = $1 AND contract_type = 'PUT' AND expiry >= $2::date
		ORDER BY expiry, strike
	`

	rows, err := a.pool.Query(ctx, query, symbol, a.now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []contracts.OptionContract
	for rows.Next() {
		var (
			o     contracts.OptionContract
			otype string
		)
		if err := rows.Scan(
			&otype, &o.Strike, &o.Expiry, &o.Bid, &o.Ask, &o.Last,
			&o.Delta, &o.Gamma, &o.Theta, &o.Vega, &o.ImpliedVolatility, &o.OpenInterest, &o.Volume,
		); err != nil {
			return nil, err
		}
		o.Type = contracts.OptionType(strings.ToUpper(otype))
		options = append(options, o)
	}
	return options, rows.Err()
}

func (a *Aggregator) getDividend(ctx context.Context, symbol string) (*contracts.DividendInfo, error) {
	query := `
		SELECT yield, annual_amount, frequency, last_ex_date, next_ex_date
		FROM data.dividends
		WHERE symbol = $1
	`

	var d contracts.DividendInfo
	err := a.pool.QueryRow(ctx, query, symbol).Scan(
		&d.Yield, &d.AnnualAmount, &d.Frequency, &d.LastExDate, &d.NextExDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
