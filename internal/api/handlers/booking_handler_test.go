package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/handlers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/middleware"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, actor entities.Actor, draft entities.BookingDraft) (*entities.Booking, error) {
	args := m.Called(ctx, actor, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, actor entities.Actor, id string) (*entities.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingService) ListBookings(ctx context.Context, actor entities.Actor, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

func (m *MockBookingService) TransitionBooking(ctx context.Context, id string, target entities.BookingStatus, actor entities.Actor) (*entities.Booking, error) {
	args := m.Called(ctx, id, target, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingService) DeleteBooking(ctx context.Context, actor entities.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

var (
	admin    = entities.Actor{ID: "staff-1", DisplayName: "Alice", Role: entities.RoleAdmin}
	customer = entities.Actor{ID: "cust-1", DisplayName: "Nguyen Van A", Role: entities.RoleCustomer}
)

func newRequest(t *testing.T, method, target string, body interface{}, actor *entities.Actor) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	return req
}

func sampleBooking() *entities.Booking {
	return entities.NewBooking("b-1", entities.BookingDraft{
		CustomerID:     "cust-1",
		RestaurantID:   "rest-1",
		TimeOfBooking:  "2024-06-01",
		TimeSlot:       "19:00",
		PeopleQuantity: 4,
		FullName:       "Nguyen Van A",
		NumberPhone:    "0900000000",
		Email:          "a@example.com",
	}, time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC))
}

func TestBookingHandler_CreateBooking(t *testing.T) {
	t.Run("creates booking", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)
		booking := sampleBooking()

		svc.On("CreateBooking", mock.Anything, customer, mock.MatchedBy(func(d entities.BookingDraft) bool {
			return d.RestaurantID == "rest-1" && d.PeopleQuantity == 4
		})).Return(booking, nil)

		req := newRequest(t, http.MethodPost, "/api/bookings", map[string]interface{}{
			"restaurant":     "rest-1",
			"timeOfBooking":  "2024-06-01",
			"timeSlot":       "19:00",
			"peopleQuantity": 4,
			"fullName":       "Nguyen Van A",
			"numberPhone":    "0900000000",
			"email":          "a@example.com",
		}, &customer)
		w := httptest.NewRecorder()

		handler.CreateBooking(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var got entities.Booking
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "b-1", got.ID)
		assert.Equal(t, entities.BookingStatusPending, got.Status)
		require.Len(t, got.StatusHistory, 1)
		assert.Equal(t, "Nguyen Van A", got.StatusHistory[0].UpdatedBy)
		svc.AssertExpectations(t)
	})

	t.Run("requires actor", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)
		w := httptest.NewRecorder()

		handler.CreateBooking(w, newRequest(t, http.MethodPost, "/api/bookings", map[string]string{}, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "CreateBooking")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		handler := handlers.NewBookingHandler(new(MockBookingService))
		req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString("{"))
		req = req.WithContext(middleware.WithActor(req.Context(), customer))
		w := httptest.NewRecorder()

		handler.CreateBooking(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)
		svc.On("CreateBooking", mock.Anything, customer, mock.Anything).
			Return(nil, apperrors.NewValidationError("fullName is required"))
		w := httptest.NewRecorder()

		handler.CreateBooking(w, newRequest(t, http.MethodPost, "/api/bookings", map[string]string{}, &customer))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "fullName is required")
	})
}

func TestBookingHandler_TransitionBooking(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "invalid transition is a conflict with both statuses",
			err:        apperrors.NewInvalidTransitionError("CONFIRMED", "PENDING"),
			wantStatus: http.StatusConflict,
			wantBody:   []string{`"current_status":"CONFIRMED"`, `"requested_status":"PENDING"`},
		},
		{
			name:       "concurrent update",
			err:        apperrors.NewConflictError("booking b-1 changed"),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "role policy",
			err:        apperrors.NewUnauthorizedError("customers cannot set status CONFIRMED"),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unknown booking",
			err:        apperrors.NewNotFoundError("booking not found: b-1"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store failure",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{"internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBookingService)
			handler := handlers.NewBookingHandler(svc)
			svc.On("TransitionBooking", mock.Anything, "b-1", entities.BookingStatusPending, admin).Return(nil, tt.err)

			req := newRequest(t, http.MethodPatch, "/api/bookings/b-1/status", map[string]string{"status": "PENDING"}, &admin)
			req.SetPathValue("id", "b-1")
			w := httptest.NewRecorder()

			handler.TransitionBooking(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			for _, fragment := range tt.wantBody {
				assert.Contains(t, w.Body.String(), fragment)
			}
		})
	}

	t.Run("applies transition", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)
		booking := sampleBooking()
		booking.Append(entities.BookingStatusCancelledByAdmin, "Alice", time.Now())
		svc.On("TransitionBooking", mock.Anything, "b-1", entities.BookingStatusCancelledByAdmin, admin).Return(booking, nil)

		req := newRequest(t, http.MethodPatch, "/api/bookings/b-1/status", map[string]string{"status": "CANCELLED_BY_ADMIN"}, &admin)
		req.SetPathValue("id", "b-1")
		w := httptest.NewRecorder()

		handler.TransitionBooking(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"CANCELLED_BY_ADMIN"`)
	})

	t.Run("status is required", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)
		req := newRequest(t, http.MethodPatch, "/api/bookings/b-1/status", map[string]string{}, &admin)
		req.SetPathValue("id", "b-1")
		w := httptest.NewRecorder()

		handler.TransitionBooking(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "TransitionBooking")
	})
}

func TestBookingHandler_ListBookings(t *testing.T) {
	svc := new(MockBookingService)
	handler := handlers.NewBookingHandler(svc)
	svc.On("ListBookings", mock.Anything, admin, repositories.BookingFilter{
		RestaurantID: "rest-1",
		Status:       entities.BookingStatusPending,
		Limit:        10,
		Offset:       20,
	}).Return([]*entities.Booking{sampleBooking()}, nil)

	w := httptest.NewRecorder()
	handler.ListBookings(w, newRequest(t, http.MethodGet, "/api/bookings?restaurant=rest-1&status=PENDING&limit=10&offset=20", nil, &admin))

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Bookings []entities.Booking `json:"bookings"`
		Count    int                `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	svc.AssertExpectations(t)

	t.Run("bad pagination", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListBookings(w, newRequest(t, http.MethodGet, "/api/bookings?limit=-1", nil, &admin))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBookingHandler_GetBooking(t *testing.T) {
	svc := new(MockBookingService)
	handler := handlers.NewBookingHandler(svc)
	svc.On("GetBooking", mock.Anything, customer, "b-1").Return(sampleBooking(), nil)

	req := newRequest(t, http.MethodGet, "/api/bookings/b-1", nil, &customer)
	req.SetPathValue("id", "b-1")
	w := httptest.NewRecorder()

	handler.GetBooking(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"b-1"`)
}

func TestBookingHandler_DeleteBooking(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)
		svc.On("DeleteBooking", mock.Anything, customer, "b-1").Return(nil)

		req := newRequest(t, http.MethodDelete, "/api/bookings/b-1", nil, &customer)
		req.SetPathValue("id", "b-1")
		w := httptest.NewRecorder()

		handler.DeleteBooking(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("someone else's booking is forbidden", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)
		svc.On("DeleteBooking", mock.Anything, customer, "b-2").
			Return(apperrors.NewUnauthorizedError("customers can only delete their own bookings"))

		req := newRequest(t, http.MethodDelete, "/api/bookings/b-2", nil, &customer)
		req.SetPathValue("id", "b-2")
		w := httptest.NewRecorder()

		handler.DeleteBooking(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing actor", func(t *testing.T) {
		svc := new(MockBookingService)
		handler := handlers.NewBookingHandler(svc)

		req := newRequest(t, http.MethodDelete, "/api/bookings/b-1", nil, nil)
		req.SetPathValue("id", "b-1")
		w := httptest.NewRecorder()

		handler.DeleteBooking(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "DeleteBooking")
	})
}
