package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/config"
	"github.com/wonny/thetascan/pkg/httputil"
	"github.com/wonny/thetascan/pkg/logger"
)

// TelegramNotifier posts a run summary when a scan finishes. Per-symbol progress is ignored.
type TelegramNotifier struct {
	httpClient *httputil.Client
	cfg        config.TelegramConfig
	logger     *logger.Logger
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg config.TelegramConfig, httpClient *httputil.Client, log *logger.Logger) *TelegramNotifier {
	return &TelegramNotifier{httpClient: httpClient, cfg: cfg, logger: log.Module("notify.telegram")}
}

func (t *TelegramNotifier) NotifyScanStarted(context.Context, string, int)                  {}
func (t *TelegramNotifier) NotifySymbolScanning(context.Context, contracts.SymbolProgress)  {}
func (t *TelegramNotifier) NotifySymbolCompleted(context.Context, contracts.SymbolProgress) {}
func (t *TelegramNotifier) NotifySymbolError(context.Context, contracts.SymbolProgress)     {}

func (t *TelegramNotifier) NotifyScanCompleted(ctx context.Context, run contracts.ScanRun) {
	if err := t.Send(ctx, FormatRunSummary(run)); err != nil {
		t.logger.WithField("run_id", run.ID).WithError(err).Warn("Failed to send Telegram summary")
	}
}

// Send posts one HTML message to the configured chat
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.cfg.BaseURL, "/"), t.cfg.BotToken)
	payload := map[string]string{
		"chat_id":    t.cfg.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	resp, err := t.httpClient.PostJSON(ctx, url, payload, nil)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := httputil.DecodeJSON(resp, &result); err != nil {
		return fmt.Errorf("telegram API error: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}

// FormatRunSummary renders a finished run as a Telegram HTML message
func FormatRunSummary(run contracts.ScanRun) string {
	var b strings.Builder

	icon := "✅"
	switch run.Status {
	case contracts.ScanCompletedWithErrors:
		icon = "⚠️"
	case contracts.ScanFailed:
		icon = "❌"
	case contracts.ScanCancelled:
		icon = "⏹"
	case contracts.ScanCompletedNoHealthySymbols:
		icon = "ℹ️"
	}

	b.WriteString(fmt.Sprintf("%s <b>Scan %s</b> | %s\n\n", icon, html.EscapeString(string(run.Status)), html.EscapeString(run.ID)))
	b.WriteString(fmt.Sprintf("Symbols scanned: %d\n", run.SymbolsScanned))
	b.WriteString(fmt.Sprintf("Recommendations: %d\n", run.RecommendationsGenerated))
	if d := run.Duration(); d > 0 {
		b.WriteString(fmt.Sprintf("Duration: %s\n", d.Round(time.Second)))
	}
	if run.ErrorSummary != "" {
		b.WriteString(fmt.Sprintf("\nErrors: %s\n", html.EscapeString(run.ErrorSummary)))
	}
	return b.String()
}
