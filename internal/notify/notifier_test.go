package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermalcommons/coolmarket/internal/bus"
	"github.com/thermalcommons/coolmarket/internal/domain"
)

type fakeSender struct {
	mu     sync.Mutex
	name   string
	titles []string
	fail   bool
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("boom")
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.titles...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEventType(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventGridCritical}, testLogger())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, EventArchiveDone, "archive", "done"))
	assert.Empty(t, sender.sent())

	require.NoError(t, n.Notify(ctx, EventGridCritical, "critical", "grid"))
	assert.Equal(t, []string{"critical"}, sender.sent())
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "title", "body"))
	assert.Len(t, sender.sent(), 1)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventGridCritical}, testLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "halted", "body"))
	assert.Equal(t, []string{"halted"}, sender.sent())
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	bad := &fakeSender{name: "bad", fail: true}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.sent(), 1)
}

func TestWebhookSenderPostsJSON(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewWebhookSender(srv.URL)
	require.NoError(t, sender.Send(context.Background(), "Alert", "details"))
	assert.Contains(t, got, "**Alert**")
	assert.Contains(t, got, "details")
}

func TestWebhookSenderRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL).Send(context.Background(), "Alert", "details")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestWatchGridStressAlertsOnCritical(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())
	eventBus := bus.New(testLogger())

	WatchGridStress(context.Background(), eventBus, n)

	eventBus.Publish(bus.TopicGridStressChanged, domain.GridStressSignal{
		Level: domain.StressMedium, Value: 0.5,
	})
	eventBus.Publish(bus.TopicGridStressChanged, domain.GridStressSignal{
		Level: domain.StressCritical, Value: 1.0,
	})

	require.Eventually(t, func() bool {
		return len(sender.sent()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Grid stress critical", sender.sent()[0])
}
