package audit

import (
	"log/slog"
	"sync"

	"github.com/topicforge/go-site-audit/models"
)

// reporter fans progress events into the caller's channel without
// blocking the pipeline: when the consumer lags, intermediate events
// are dropped. Terminal done/cancelled events are sent blocking so a
// draining consumer always observes one before the channel close,
// which remains the authoritative terminal signal.
type reporter struct {
	ch        chan<- models.AuditProgress
	closeOnce sync.Once
}

func newReporter(ch chan<- models.AuditProgress) *reporter {
	return &reporter{ch: ch}
}

func (r *reporter) emit(phase models.ProgressPhase, category string, percent float64, issues int) {
	if r.ch == nil {
		return
	}
	event := models.AuditProgress{
		Phase:           phase,
		CurrentCategory: category,
		PercentComplete: percent,
		IssuesFound:     issues,
	}
	if phase == models.ProgressDone || phase == models.ProgressCancelled {
		r.ch <- event
		return
	}
	select {
	case r.ch <- event:
	default:
		slog.Debug("progress event dropped, consumer lagging",
			slog.String("phase", string(phase)),
			slog.String("category", category),
		)
	}
}

func (r *reporter) close() {
	if r.ch == nil {
		return
	}
	r.closeOnce.Do(func() {
		close(r.ch)
	})
}
