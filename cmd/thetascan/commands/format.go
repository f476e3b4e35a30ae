package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════"
	ruleLight = "───────────────────────────────────────────────────────────"
)

// printHeader prints a formatted command header
func printHeader(title string, lines ...string) {
	fmt.Println()
	fmt.Println(ruleHeavy)
	fmt.Printf("  %s\n", title)
	fmt.Println(ruleLight)
	for _, l := range lines {
		fmt.Printf("  %s\n", l)
	}
	if len(lines) > 0 {
		fmt.Println(ruleLight)
	}
}

// printRun prints a finished scan run
func printRun(run *contracts.ScanRun) {
	fmt.Println()
	fmt.Printf("  Run ID          : %s\n", run.ID)
	fmt.Printf("  Status          : %s %s\n", statusIcon(run.Status), run.Status)
	fmt.Printf("  Symbols scanned : %d\n", run.SymbolsScanned)
	fmt.Printf("  Recommendations : %d\n", run.RecommendationsGenerated)
	if d := run.Duration(); d > 0 {
		fmt.Printf("  Duration        : %s\n", d.Round(time.Millisecond))
	}
	if run.ErrorSummary != "" {
		fmt.Printf("  Errors          : %s\n", run.ErrorSummary)
	}
	fmt.Println(ruleHeavy)
}

// printRecommendations prints recommendations as an aligned table
func printRecommendations(recs []contracts.Recommendation) {
	if len(recs) == 0 {
		fmt.Println("  (no recommendations)")
		return
	}
	fmt.Printf("  %-8s %-18s %10s %-10s %4s %8s %10s %6s %3s %6s\n",
		"SYMBOL", "STRATEGY", "STRIKE", "EXPIRY", "DTE", "PREMIUM", "BREAKEVEN", "CONF", "F", "Z")
	for _, r := range recs {
		fmt.Printf("  %-8s %-18s %10.2f %-10s %4d %8.2f %10.2f %6.3f %3s %6s\n",
			r.Symbol, r.StrategyName, r.Strike, r.Expiry.Format("2006-01-02"), r.DaysToExpiry,
			r.Premium, r.Breakeven, r.Confidence, intOrDash(r.FScore), floatOrDash(r.ZScore))
	}
}

// printHealth prints one symbol's health metrics
func printHealth(m contracts.FinancialHealthMetrics, passes bool) {
	verdict := "❌ FAIL"
	if passes {
		verdict = "✅ PASS"
	}
	fmt.Printf("  Symbol          : %s\n", m.Symbol)
	fmt.Printf("  Piotroski F     : %s\n", intOrDash(m.FScore))
	fmt.Printf("  Altman Z        : %s\n", floatOrDash(m.ZScore))
	fmt.Printf("  ROA             : %.4f\n", m.ROA)
	fmt.Printf("  Debt/Equity     : %.4f\n", m.DebtToEquity)
	fmt.Printf("  Current ratio   : %.4f\n", m.CurrentRatio)
	fmt.Printf("  Market cap (bn) : %.2f\n", m.MarketCapBillions)
	fmt.Printf("  Gate            : %s\n", verdict)
}

func statusIcon(s contracts.ScanStatus) string {
	switch s {
	case contracts.ScanCompleted:
		return "✅"
	case contracts.ScanCompletedWithErrors:
		return "⚠️"
	case contracts.ScanCancelled:
		return "⏹"
	case contracts.ScanFailed:
		return "❌"
	case contracts.ScanCompletedNoHealthySymbols:
		return "ℹ️"
	default:
		return "…"
	}
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// parseSymbols splits a comma separated flag value, uppercasing and dropping blanks
func parseSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
