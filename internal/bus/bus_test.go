package bus

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	b := newTestBus()

	var got []int
	b.Subscribe(TopicTradeExecuted, func(Topic, any) { got = append(got, 1) })
	b.Subscribe(TopicTradeExecuted, func(Topic, any) { got = append(got, 2) })
	b.Subscribe(TopicTradeExecuted, func(Topic, any) { got = append(got, 3) })

	b.Publish(TopicTradeExecuted, "payload")
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	b := newTestBus()

	var delivered bool
	b.Subscribe(TopicGridStressChanged, func(Topic, any) { panic("boom") })
	b.Subscribe(TopicGridStressChanged, func(Topic, any) { delivered = true })

	require.NotPanics(t, func() {
		b.Publish(TopicGridStressChanged, nil)
	})
	assert.True(t, delivered, "second subscriber must still receive the event")
}

func TestUnsubscribe(t *testing.T) {
	b := newTestBus()

	var count int
	sub := b.Subscribe(TopicTelemetryUpdated, func(Topic, any) { count++ })

	b.Publish(TopicTelemetryUpdated, nil)
	b.Unsubscribe(sub)
	b.Publish(TopicTelemetryUpdated, nil)
	assert.Equal(t, 1, count)

	// Unsubscribing the same handle again is a no-op.
	assert.NotPanics(t, func() { b.Unsubscribe(sub) })
}

func TestTopicsAreIndependent(t *testing.T) {
	b := newTestBus()

	var trades, telemetry int
	b.Subscribe(TopicTradeExecuted, func(Topic, any) { trades++ })
	b.Subscribe(TopicTelemetryUpdated, func(Topic, any) { telemetry++ })

	b.Publish(TopicTradeExecuted, nil)
	b.Publish(TopicTradeExecuted, nil)

	assert.Equal(t, 2, trades)
	assert.Zero(t, telemetry)
}

func TestPayloadPassedThrough(t *testing.T) {
	b := newTestBus()

	var got any
	b.Subscribe(TopicTradeExecuted, func(_ Topic, payload any) { got = payload })

	type ev struct{ ID string }
	b.Publish(TopicTradeExecuted, ev{ID: "trade-1"})
	assert.Equal(t, ev{ID: "trade-1"}, got)
}
