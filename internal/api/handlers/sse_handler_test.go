package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/events"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/handlers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/middleware"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
)

// streamRecorder is a ResponseWriter that can be read while the handler is still writing
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   bytes.Buffer
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (r *streamRecorder) Header() http.Header { return r.header }
func (r *streamRecorder) WriteHeader(int)     {}
func (r *streamRecorder) Flush()              {}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(p)
}

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

type streamFixture struct {
	bus    *events.LocalEventBus
	rec    *streamRecorder
	cancel context.CancelFunc
	done   chan struct{}
}

func startStream(t *testing.T, target string, actor *entities.Actor) *streamFixture {
	t.Helper()
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })
	handler := handlers.NewSSEHandler(bus).WithHeartbeat(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)

	f := &streamFixture{bus: bus, rec: newStreamRecorder(), cancel: cancel, done: make(chan struct{})}
	go func() {
		handler.StreamBookingEvents(f.rec, req)
		close(f.done)
	}()

	// the greeting is written once every channel is subscribed
	require.Eventually(t, func() bool { return strings.Contains(f.rec.String(), "event: connected") }, time.Second, 5*time.Millisecond)
	return f
}

func (f *streamFixture) stop(t *testing.T) {
	t.Helper()
	f.cancel()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after cancel")
	}
}

func publish(t *testing.T, bus providers.EventBus, n *entities.Notification) {
	t.Helper()
	require.NoError(t, bus.Publish(context.Background(), providers.ChannelForType(n.Type), n))
}

func TestSSEHandler_StreamBookingEvents(t *testing.T) {
	t.Run("sets stream headers and greets the client", func(t *testing.T) {
		f := startStream(t, "/api/stream/bookings", nil)
		f.stop(t)

		assert.Equal(t, "text/event-stream", f.rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", f.rec.Header().Get("Cache-Control"))
	})

	t.Run("forwards events for the requested restaurant only", func(t *testing.T) {
		f := startStream(t, "/api/stream/bookings?restaurant=rest-1", nil)

		publish(t, f.bus, &entities.Notification{ID: "n-other", Type: entities.NotificationBookingCreated, RestaurantID: "rest-2"})
		publish(t, f.bus, &entities.Notification{ID: "n-1", Type: entities.NotificationBookingConfirmed, RestaurantID: "rest-1"})

		require.Eventually(t, func() bool { return strings.Contains(f.rec.String(), `"id":"n-1"`) }, time.Second, 5*time.Millisecond)
		f.stop(t)

		out := f.rec.String()
		assert.Contains(t, out, "event: bookingConfirmed\ndata: ")
		assert.NotContains(t, out, "n-other")
	})

	t.Run("customers only see their own events", func(t *testing.T) {
		f := startStream(t, "/api/stream/bookings", &customer)

		publish(t, f.bus, &entities.Notification{ID: "n-theirs", Type: entities.NotificationBookingCreated, RecipientID: "cust-2"})
		publish(t, f.bus, &entities.Notification{ID: "n-mine", Type: entities.NotificationBookingCreated, RecipientID: "cust-1"})

		require.Eventually(t, func() bool { return strings.Contains(f.rec.String(), "n-mine") }, time.Second, 5*time.Millisecond)
		f.stop(t)
		assert.NotContains(t, f.rec.String(), "n-theirs")
	})

	t.Run("sends heartbeats", func(t *testing.T) {
		f := startStream(t, "/api/stream/bookings", nil)
		require.Eventually(t, func() bool { return strings.Contains(f.rec.String(), "event: heartbeat") }, time.Second, 5*time.Millisecond)
		f.stop(t)
	})

	t.Run("drops subscriptions on disconnect", func(t *testing.T) {
		f := startStream(t, "/api/stream/bookings", nil)
		f.stop(t)

		channel := providers.ChannelForType(entities.NotificationBookingCreated)
		require.Eventually(t, func() bool { return f.bus.SubscriberCount(channel) == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("ends when the bus closes", func(t *testing.T) {
		f := startStream(t, "/api/stream/bookings", nil)
		require.NoError(t, f.bus.Close())

		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler kept streaming after the bus closed")
		}
		f.cancel()
	})
}
