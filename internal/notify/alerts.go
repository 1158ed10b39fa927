package notify

import (
	"context"
	"fmt"

	"github.com/thermalcommons/coolmarket/internal/bus"
	"github.com/thermalcommons/coolmarket/internal/domain"
)

// WatchGridStress subscribes the notifier to grid stress changes and alerts
// when the grid enters the critical band. The bus delivers synchronously, so
// the callback only enqueues work; delivery happens on a fresh goroutine.
// The returned Subscription lets the caller detach the watcher.
func WatchGridStress(ctx context.Context, eventBus *bus.Bus, notifier *Notifier) bus.Subscription {
	return eventBus.Subscribe(bus.TopicGridStressChanged, func(_ bus.Topic, payload any) {
		sig, ok := payload.(domain.GridStressSignal)
		if !ok || sig.Level != domain.StressCritical {
			return
		}
		go func() {
			_ = notifier.Notify(ctx, EventGridCritical,
				"Grid stress critical",
				fmt.Sprintf("Grid stress reached %.2f; demand response is at maximum urgency until %s.",
					sig.Value, sig.EndsAt.Format("15:04:05 MST")))
		}()
	})
}
