// Package bus is a synchronous in-process publish/subscribe fan-out over a
// fixed topic set. Publish invokes every subscriber inline, in registration
// order: a slow subscriber blocks the publisher, so subscribers must be
// cheap forwarders, not long-running work. One Bus is constructed by the
// entry point and passed explicitly to everything that needs it.
package bus

import (
	"log/slog"
	"sync"
)

// Topic identifies an event stream on the bus.
type Topic string

const (
	TopicTradeExecuted     Topic = "trade_executed"
	TopicTelemetryUpdated  Topic = "telemetry_updated"
	TopicGridStressChanged Topic = "grid_stress_changed"
)

// Callback receives the topic and the event payload. Payload types per
// topic: TradeEvent for trade_executed, map[string]Telemetry (all buildings,
// one publish per tick) for telemetry_updated, GridStressSignal for
// grid_stress_changed.
type Callback func(topic Topic, payload any)

// Subscription identifies one registered callback so it can be removed.
// Unsubscribing an unknown or already-removed subscription is a no-op.
type Subscription struct {
	topic Topic
	id    uint64
}

type entry struct {
	id uint64
	cb Callback
}

// Bus delivers events synchronously to subscribers. Safe for concurrent
// subscribe/publish, though the simulator publishes from a single tick loop.
type Bus struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[Topic][]entry
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger.With(slog.String("component", "bus")),
		subs:   make(map[Topic][]entry),
	}
}

// Subscribe registers a callback for a topic and returns its subscription
// handle. Callbacks run in registration order on every publish.
func (b *Bus) Subscribe(topic Topic, cb Callback) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[topic] = append(b.subs[topic], entry{id: b.nextID, cb: cb})
	return Subscription{topic: topic, id: b.nextID}
}

// Unsubscribe removes a previously registered callback. Unknown handles are
// ignored. Callers own their subscriptions; there is no automatic teardown.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.subs[sub.topic]
	for i, e := range entries {
		if e.id == sub.id {
			b.subs[sub.topic] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every subscriber of topic, synchronously and
// in registration order. A panicking subscriber is recovered and logged; it
// never prevents delivery to the remaining subscribers or reaches the
// publisher.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.Lock()
	entries := make([]entry, len(b.subs[topic]))
	copy(entries, b.subs[topic])
	b.mu.Unlock()

	for _, e := range entries {
		b.deliver(topic, e, payload)
	}
}

func (b *Bus) deliver(topic Topic, e entry, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("subscriber panicked",
				slog.String("topic", string(topic)),
				slog.Any("panic", r),
			)
		}
	}()
	e.cb(topic, payload)
}
