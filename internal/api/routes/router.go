package routes

import (
	"net/http"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/handlers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/middleware"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	bookingHandler      *handlers.BookingHandler
	notificationHandler *handlers.NotificationHandler
	sseHandler          *handlers.SSEHandler
	sweepHandler        *handlers.SweepHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. sseHandler and sweepHandler are optional.
func NewRouter(
	bookingHandler *handlers.BookingHandler,
	notificationHandler *handlers.NotificationHandler,
	sseHandler *handlers.SSEHandler,
	sweepHandler *handlers.SweepHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		bookingHandler:      bookingHandler,
		notificationHandler: notificationHandler,
		sseHandler:          sseHandler,
		sweepHandler:        sweepHandler,
		allowedOrigins:      allowedOrigins,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Booking endpoints
	r.mux.HandleFunc("POST /api/bookings", r.bookingHandler.CreateBooking)
	r.mux.HandleFunc("GET /api/bookings", r.bookingHandler.ListBookings)
	r.mux.HandleFunc("GET /api/bookings/{id}", r.bookingHandler.GetBooking)
	r.mux.HandleFunc("PATCH /api/bookings/{id}/status", r.bookingHandler.TransitionBooking)
	r.mux.HandleFunc("DELETE /api/bookings/{id}", r.bookingHandler.DeleteBooking)

	// Notification inbox
	r.mux.HandleFunc("GET /api/notifications", r.notificationHandler.ListNotifications)
	r.mux.HandleFunc("GET /api/notifications/{id}", r.notificationHandler.GetNotification)
	r.mux.HandleFunc("PATCH /api/notifications/{id}/read", r.notificationHandler.MarkRead)
	r.mux.HandleFunc("DELETE /api/notifications/{id}", r.notificationHandler.DeleteNotification)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/bookings", r.sseHandler.StreamBookingEvents)
	}

	if r.sweepHandler != nil {
		r.mux.HandleFunc("POST /api/admin/sweep", r.sweepHandler.TriggerSweep)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ActorMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight never reaches the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
