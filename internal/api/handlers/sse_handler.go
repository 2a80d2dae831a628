package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/middleware"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
)

const defaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams booking events to connected clients
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   map[chan *entities.Notification]struct{}
	mu        sync.RWMutex
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeatInterval,
		clients:   make(map[chan *entities.Notification]struct{}),
	}
}

// WithHeartbeat overrides the heartbeat interval
func (h *SSEHandler) WithHeartbeat(interval time.Duration) *SSEHandler {
	h.heartbeat = interval
	return h
}

// streamFilter narrows the stream to one restaurant and, for customers, to their own bookings
type streamFilter struct {
	restaurantID string
	recipientID  string
}

func (f streamFilter) matches(event *entities.Notification) bool {
	if f.restaurantID != "" && event.RestaurantID != f.restaurantID {
		return false
	}
	if f.recipientID != "" && event.RecipientID != f.recipientID {
		return false
	}
	return true
}

// StreamBookingEvents handles GET /api/stream/bookings?restaurant={id}
func (h *SSEHandler) StreamBookingEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	filter := streamFilter{restaurantID: r.URL.Query().Get("restaurant")}
	if actor, ok := middleware.ActorFromContext(r.Context()); ok && actor.Role == entities.RoleCustomer {
		filter.recipientID = actor.ID
	}

	ctx := r.Context()
	logger := observability.ComponentLogger(ctx, "sse")

	clientChan := make(chan *entities.Notification, 50)
	h.registerClient(clientChan)
	defer h.unregisterClient(clientChan)

	var forwarders sync.WaitGroup
	for _, t := range entities.AllNotificationTypes() {
		channel := providers.ChannelForType(t)
		eventChan, err := h.eventBus.Subscribe(ctx, channel)
		if err != nil {
			logger.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to channel")
			respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			h.forwardEvents(ctx, eventChan, clientChan, filter)
		}()
	}

	// closes once the bus has dropped every subscription, e.g. on shutdown
	busClosed := make(chan struct{})
	go func() {
		forwarders.Wait()
		close(busClosed)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", map[string]interface{}{
		"restaurant": filter.restaurantID,
		"timestamp":  time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("restaurant", filter.restaurantID).Msg("Client disconnected from booking stream")
			return
		case <-busClosed:
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents copies matching events to the client, dropping them when it falls behind
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.Notification, clientChan chan<- *entities.Notification, filter streamFilter) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || !filter.matches(event) {
				continue
			}
			select {
			case clientChan <- event:
			default:
			}
		}
	}
}

func (h *SSEHandler) registerClient(clientChan chan *entities.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[clientChan] = struct{}{}
}

func (h *SSEHandler) unregisterClient(clientChan chan *entities.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, clientChan)
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.ComponentLogger(context.Background(), "sse").Error().Err(err).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
