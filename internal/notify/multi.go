package notify

import (
	"context"

	"github.com/wonny/thetascan/internal/contracts"
)

// Multi fans every notification out to each notifier in order
type Multi []contracts.ProgressNotifier

// New returns the notifier for the given sinks: no-op for none, the sink itself for one
func New(notifiers ...contracts.ProgressNotifier) contracts.ProgressNotifier {
	var active Multi
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	switch len(active) {
	case 0:
		return contracts.NoopNotifier{}
	case 1:
		return active[0]
	default:
		return active
	}
}

func (m Multi) NotifyScanStarted(ctx context.Context, runID string, totalSymbols int) {
	for _, n := range m {
		n.NotifyScanStarted(ctx, runID, totalSymbols)
	}
}

func (m Multi) NotifySymbolScanning(ctx context.Context, p contracts.SymbolProgress) {
	for _, n := range m {
		n.NotifySymbolScanning(ctx, p)
	}
}

func (m Multi) NotifySymbolCompleted(ctx context.Context, p contracts.SymbolProgress) {
	for _, n := range m {
		n.NotifySymbolCompleted(ctx, p)
	}
}

func (m Multi) NotifySymbolError(ctx context.Context, p contracts.SymbolProgress) {
	for _, n := range m {
		n.NotifySymbolError(ctx, p)
	}
}

func (m Multi) NotifyScanCompleted(ctx context.Context, run contracts.ScanRun) {
	for _, n := range m {
		n.NotifyScanCompleted(ctx, run)
	}
}
