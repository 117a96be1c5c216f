package core

import (
	"log/slog"
	"math/big"
	"sort"

	"launchpad/core/events"
	"launchpad/native/project"
	"launchpad/native/sale"
	"launchpad/observability/metrics"
)

func attributesOf(evt events.Event) map[string]string {
	payload, ok := evt.(events.Payload)
	if !ok || payload.Event() == nil {
		return nil
	}
	return payload.Event().Attributes
}

// observeEvent folds committed events into the launchpad counters.
func observeEvent(m *metrics.LaunchpadMetrics, evt events.Event) {
	attrs := attributesOf(evt)
	switch evt.EventType() {
	case sale.EventTypePurchased:
		m.ObservePurchase(attrs["settlement"])
	case sale.EventTypePackPurchased:
		m.ObservePurchase("pack")
	case sale.EventTypeBillSettled:
		m.ObserveCloseStep("distribute")
		for _, recipient := range []string{"royaltyFee", "superAdminFee", "sellerFee"} {
			if amount, ok := new(big.Int).SetString(attrs[recipient], 10); ok {
				m.ObserveProceeds(recipient, amount)
			}
		}
	case sale.EventTypeBillRefunded:
		m.ObserveCloseStep("refund")
	case sale.EventTypeSaleClosed:
		m.ObserveCloseStep("close")
	case project.EventTypeProjectPublished:
		m.ObserveProject(project.StatusStarted.String())
	case project.EventTypeProjectEnded:
		m.ObserveProject(project.StatusEnded.String())
	}
}

// logEvent writes a committed event at debug level with sorted attributes.
func logEvent(logger *slog.Logger, evt events.Event) {
	if logger == nil {
		return
	}
	attrs := attributesOf(evt)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2*len(keys)+2)
	args = append(args, slog.String("type", evt.EventType()))
	for _, k := range keys {
		args = append(args, slog.String(k, attrs[k]))
	}
	logger.Debug("event committed", args...)
}
