package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
)

// Policy decides whether health records must be refreshed before a scan
type Policy struct {
	repo       contracts.HealthRepository
	staleAfter time.Duration
	now        func() time.Time
}

// NewPolicy creates a staleness policy; staleAfter <= 0 disables the age check
func NewPolicy(repo contracts.HealthRepository, staleAfter time.Duration) *Policy {
	return &Policy{repo: repo, staleAfter: staleAfter, now: time.Now}
}

// RefreshRequired is true when the store is empty or its newest record is older than the window
func (p *Policy) RefreshRequired(ctx context.Context) (bool, string, error) {
	count, err := p.repo.GetTotalCount(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to count health records: %w", err)
	}
	if count == 0 {
		return true, "no health records", nil
	}

	if p.staleAfter <= 0 {
		return false, "", nil
	}

	latest, err := p.repo.LatestRefresh(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to read latest refresh: %w", err)
	}
	if latest.IsZero() {
		return true, "no refresh timestamp", nil
	}

	if age := p.now().Sub(latest); age > p.staleAfter {
		return true, fmt.Sprintf("health records are %s old", age.Truncate(time.Minute)), nil
	}
	return false, "", nil
}
