package notify

import (
	"context"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// Event types published on the progress topic
const (
	EventScanStarted     = "scan_started"
	EventSymbolScanning  = "symbol_scanning"
	EventSymbolCompleted = "symbol_completed"
	EventSymbolError     = "symbol_error"
	EventScanCompleted   = "scan_completed"
)

// Publisher is satisfied by *kafka.Producer
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// ProgressEvent is the JSON payload of one progress message, keyed by run id
type ProgressEvent struct {
	Type            string               `json:"type"`
	RunID           string               `json:"run_id"`
	Symbol          string               `json:"symbol,omitempty"`
	Index           int                  `json:"index,omitempty"`
	Total           int                  `json:"total,omitempty"`
	Recommendations int                  `json:"recommendations,omitempty"`
	Message         string               `json:"message,omitempty"`
	Status          contracts.ScanStatus `json:"status,omitempty"`
	SymbolsScanned  int                  `json:"symbols_scanned,omitempty"`
	ErrorSummary    string               `json:"error_summary,omitempty"`
	At              time.Time            `json:"at"`
}

// KafkaNotifier streams scan progress to Kafka. Publish failures are logged, never returned.
// ⭐ SSOT: 진행 이벤트 발행은 여기서만
type KafkaNotifier struct {
	publisher Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewKafkaNotifier creates a new Kafka progress notifier
func NewKafkaNotifier(p Publisher, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{publisher: p, logger: log.Module("notify.kafka"), now: time.Now}
}

func (n *KafkaNotifier) NotifyScanStarted(ctx context.Context, runID string, totalSymbols int) {
	n.publish(ctx, ProgressEvent{Type: EventScanStarted, RunID: runID, Total: totalSymbols})
}

func (n *KafkaNotifier) NotifySymbolScanning(ctx context.Context, p contracts.SymbolProgress) {
	n.publish(ctx, fromProgress(EventSymbolScanning, p))
}

func (n *KafkaNotifier) NotifySymbolCompleted(ctx context.Context, p contracts.SymbolProgress) {
	n.publish(ctx, fromProgress(EventSymbolCompleted, p))
}

func (n *KafkaNotifier) NotifySymbolError(ctx context.Context, p contracts.SymbolProgress) {
	n.publish(ctx, fromProgress(EventSymbolError, p))
}

func (n *KafkaNotifier) NotifyScanCompleted(ctx context.Context, run contracts.ScanRun) {
	n.publish(ctx, ProgressEvent{
		Type:            EventScanCompleted,
		RunID:           run.ID,
		Status:          run.Status,
		SymbolsScanned:  run.SymbolsScanned,
		Recommendations: run.RecommendationsGenerated,
		ErrorSummary:    run.ErrorSummary,
	})
}

func (n *KafkaNotifier) publish(ctx context.Context, ev ProgressEvent) {
	ev.At = n.now()
	if err := n.publisher.Publish(ctx, ev.RunID, ev); err != nil {
		n.logger.WithFields(map[string]interface{}{
			"run_id": ev.RunID,
			"type":   ev.Type,
			"symbol": ev.Symbol,
		}).WithError(err).Warn("Failed to publish progress event")
	}
}

func fromProgress(eventType string, p contracts.SymbolProgress) ProgressEvent {
	return ProgressEvent{
		Type:            eventType,
		RunID:           p.RunID,
		Symbol:          p.Symbol,
		Index:           p.Index,
		Total:           p.Total,
		Recommendations: p.Recommendations,
		Message:         p.Message,
	}
}
