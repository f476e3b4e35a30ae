package contracts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Recommendation is one cash-secured put candidate produced by a strategy
type Recommendation struct {
	ID             int64     `json:"id,omitempty"`
	ScanRunID      string    `json:"scan_run_id"`
	Symbol         string    `json:"symbol"`
	StrategyName   string    `json:"strategy_name"`
	Strike         float64   `json:"strike"`
	Expiry         time.Time `json:"expiry"`
	DaysToExpiry   int       `json:"days_to_expiry"`
	Premium        float64   `json:"premium"`
	Breakeven      float64   `json:"breakeven"`
	Confidence     float64   `json:"confidence"` // 0~1
	ExpectedGrowth float64   `json:"expected_growth"`
	FScore         *int      `json:"f_score,omitempty"`
	ZScore         *float64  `json:"z_score,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScanStatus is the lifecycle state of a scan run
type ScanStatus string

const (
	ScanRunning                   ScanStatus = "Running"
	ScanCompleted                 ScanStatus = "Completed"
	ScanCompletedWithErrors       ScanStatus = "CompletedWithErrors"
	ScanCancelled                 ScanStatus = "Cancelled"
	ScanFailed                    ScanStatus = "Failed"
	ScanCompletedNoHealthySymbols ScanStatus = "CompletedNoHealthySymbols"
)

// IsTerminal reports whether no further transition is allowed
func (s ScanStatus) IsTerminal() bool {
	return s != ScanRunning && s != ""
}

// ErrRunTerminal is returned when finishing a run that already finished
var ErrRunTerminal = errors.New("scan run already in a terminal state")

// ScanRun is the persisted record of one orchestrator execution
type ScanRun struct {
	ID                       string     `json:"id"`
	StartedAt                time.Time  `json:"started_at"`
	CompletedAt              *time.Time `json:"completed_at,omitempty"`
	Status                   ScanStatus `json:"status"`
	SymbolsScanned           int        `json:"symbols_scanned"`
	RecommendationsGenerated int        `json:"recommendations_generated"`
	ErrorSummary             string     `json:"error_summary,omitempty"`
}

// NewScanRun creates a run in the Running state
func NewScanRun(id string, startedAt time.Time) *ScanRun {
	return &ScanRun{ID: id, StartedAt: startedAt, Status: ScanRunning}
}

// Finish moves the run to a terminal status exactly once
func (r *ScanRun) Finish(status ScanStatus, at time.Time) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrRunTerminal, r.Status, status)
	}
	if !status.IsTerminal() {
		return fmt.Errorf("cannot finish run with non-terminal status %q", status)
	}
	r.Status = status
	r.CompletedAt = &at
	return nil
}

// Duration returns the elapsed time of a finished run, or zero
func (r *ScanRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// SummarizeErrors joins the first limit messages and caps the result at maxLen characters
func SummarizeErrors(errs []string, limit, maxLen int) string {
	if len(errs) == 0 {
		return ""
	}

	shown := errs
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	summary := strings.Join(shown, "; ")
	if extra := len(errs) - len(shown); extra > 0 {
		summary = fmt.Sprintf("%s (+%d more)", summary, extra)
	}

	if maxLen > 0 {
		runes := []rune(summary)
		if len(runes) > maxLen {
			if maxLen > 3 {
				summary = string(runes[:maxLen-3]) + "..."
			} else {
				summary = string(runes[:maxLen])
			}
		}
	}
	return summary
}
