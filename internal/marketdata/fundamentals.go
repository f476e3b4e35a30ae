package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
	"github.com/wonny/thetascan/pkg/redis"
)

// FundamentalsRepository implements contracts.FundamentalsProvider over data.fundamentals
// ⭐ SSOT: 재무 데이터 조회는 여기서만
type FundamentalsRepository struct {
	pool   *pgxpool.Pool
	cache  *redis.Cache // nil이면 캐시 없음
	logger *logger.Logger
}

// NewFundamentalsRepository creates a new fundamentals repository. cache may be nil.
func NewFundamentalsRepository(pool *pgxpool.Pool, cache *redis.Cache, log *logger.Logger) *FundamentalsRepository {
	return &FundamentalsRepository{pool: pool, cache: cache, logger: log.Module("fundamentals")}
}

// GetCompanyData returns the latest two periods. (nil, nil) when nothing is on file.
func (r *FundamentalsRepository) GetCompanyData(ctx context.Context, symbol string) (*contracts.CompanyFundamentals, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if r.cache != nil {
		var cached contracts.CompanyFundamentals
		hit, err := r.cache.Get(ctx, redis.FundamentalsKey(symbol), &cached)
		if err != nil {
			r.logger.WithSymbol(symbol).WithError(err).Warn("Fundamentals cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	query := `
		SELECT period_end, total_assets, cash, total_debt, long_term_debt,
		       current_assets, current_liabilities, shareholders_equity, retained_earnings,
		       total_liabilities, revenue, operating_income, net_income,
		       operating_cash_flow, shares_outstanding
		FROM data.fundamentals
		WHERE symbol = $1
		ORDER BY period_end DESC
		LIMIT 2
	`

	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query fundamentals for %s: %w", symbol, err)
	}
	defer rows.Close()

	var periods []contracts.FundamentalPeriod
	for rows.Next() {
		var p contracts.FundamentalPeriod
		if err := rows.Scan(
			&p.PeriodEnd, &p.TotalAssets, &p.Cash, &p.TotalDebt, &p.LongTermDebt,
			&p.CurrentAssets, &p.CurrentLiabilities, &p.ShareholdersEquity, &p.RetainedEarnings,
			&p.TotalLiabilities, &p.Revenue, &p.OperatingIncome, &p.NetIncome,
			&p.OperatingCashFlow, &p.SharesOutstanding,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fundamentals for %s: %w", symbol, err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fundamentals for %s: %w", symbol, err)
	}

	company := companyFromPeriods(symbol, periods)
	if company == nil {
		return nil, nil
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, redis.FundamentalsKey(symbol), company, redis.TTLDaily); err != nil {
			r.logger.WithSymbol(symbol).WithError(err).Warn("Fundamentals cache write failed")
		}
	}
	return company, nil
}

// companyFromPeriods expects periods newest first
func companyFromPeriods(symbol string, periods []contracts.FundamentalPeriod) *contracts.CompanyFundamentals {
	if len(periods) == 0 {
		return nil
	}
	c := &contracts.CompanyFundamentals{Symbol: symbol, Current: periods[0]}
	if len(periods) > 1 {
		prev := periods[1]
		c.Previous = &prev
	}
	return c
}
