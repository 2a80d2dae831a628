package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
	"github.com/zatekoja/Restaurantbookingdesign/backend/pkg/retry"
)

// DefaultSystemActor is the audit name of automatic transitions
const DefaultSystemActor = "system:sweeper"

// BookingService owns the booking lifecycle. Manual and automatic transitions
// both go through transition, so they share validation and the audit trail.
type BookingService struct {
	repo        repositories.BookingRepository
	systemActor string
	notifier BookingNotifier
	clock    providers.Clock
	validate *validator.Validate
	retryCfg retry.Config
	metrics  *observability.Metrics
	newID    func() string
}

// NewBookingService creates a new booking service
func NewBookingService(
	repo repositories.BookingRepository,
	notifier BookingNotifier,
	clock providers.Clock,
	metrics *observability.Metrics,
) *BookingService {
	return &BookingService{
		repo:        repo,
		systemActor: DefaultSystemActor,
		notifier:    notifier,
		clock:    clock,
		validate: newDraftValidator(),
		retryCfg: retry.ConflictConfig(),
		metrics:  metrics,
		newID:    func() string { return uuid.New().String() },
	}
}

// WithSystemActor reserves name for automatic transitions; manual callers may not use it
func (s *BookingService) WithSystemActor(name string) *BookingService {
	if name != "" {
		s.systemActor = name
	}
	return s
}

func newDraftValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// CreateBooking stores a new PENDING booking and emits bookingCreated.
// Customers always book for themselves.
func (s *BookingService) CreateBooking(ctx context.Context, actor entities.Actor, draft entities.BookingDraft) (*entities.Booking, error) {
	if actor.Role == entities.RoleCustomer {
		if draft.CustomerID == "" {
			draft.CustomerID = actor.ID
		}
		if draft.CustomerID != actor.ID {
			return nil, apperrors.NewUnauthorizedError("customers can only book for themselves")
		}
	}

	if err := s.validate.Struct(draft); err != nil {
		return nil, draftValidationError(err)
	}

	booking := entities.NewBooking(s.newID(), draft, s.clock.Now())
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.emit(ctx, entities.NotificationBookingCreated, booking)
	return booking, nil
}

func draftValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must match %s", fe.Field(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}

// GetBooking returns a booking; customers only see their own
func (s *BookingService) GetBooking(ctx context.Context, actor entities.Actor, id string) (*entities.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == entities.RoleCustomer && booking.CustomerID != actor.ID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking not found: %s", id))
	}
	return booking, nil
}

// ListBookings lists bookings, newest first; customers only see their own
func (s *BookingService) ListBookings(ctx context.Context, actor entities.Actor, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", filter.Status))
	}
	if actor.Role == entities.RoleCustomer {
		filter.CustomerID = actor.ID
	}
	return s.repo.List(ctx, filter)
}

// DeleteBooking removes a booking. Admins and concept managers may delete any
// booking, customers only their own.
func (s *BookingService) DeleteBooking(ctx context.Context, actor entities.Actor, id string) error {
	switch actor.Role {
	case entities.RoleAdmin, entities.RoleConceptManager:
	case entities.RoleCustomer:
		booking, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if booking.CustomerID != actor.ID {
			return apperrors.NewUnauthorizedError("customers can only delete their own bookings")
		}
	default:
		return apperrors.NewUnauthorizedError(fmt.Sprintf("role %q cannot delete bookings", actor.Role))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", id).
		Str("actor", actorName(actor)).
		Msg("Booking deleted")
	return nil
}

// TransitionBooking moves a booking to target on behalf of a user. The system
// identity is reserved for TransitionBookingFrom.
func (s *BookingService) TransitionBooking(ctx context.Context, id string, target entities.BookingStatus, actor entities.Actor) (*entities.Booking, error) {
	if err := s.checkManualActor(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, "", target, actor, s.clock.Now())
}

// checkManualActor keeps manual transitions distinguishable from automatic ones in the history
func (s *BookingService) checkManualActor(actor entities.Actor) error {
	if actor.IsSystem() {
		return apperrors.NewUnauthorizedError("automatic transitions cannot be requested manually")
	}
	if strings.EqualFold(strings.TrimSpace(actorName(actor)), s.systemActor) {
		return apperrors.NewUnauthorizedError(fmt.Sprintf("actor name %q is reserved", s.systemActor))
	}
	return nil
}

// TransitionBookingFrom is the sweep's entry point: the transition only happens while
// the booking is still in expected, and the history entry is stamped with at.
// A booking that has moved on yields a ConflictError without retrying.
func (s *BookingService) TransitionBookingFrom(ctx context.Context, id string, expected, target entities.BookingStatus, actor entities.Actor, at time.Time) (*entities.Booking, error) {
	return s.transition(ctx, id, expected, target, actor, at)
}

func (s *BookingService) transition(ctx context.Context, id string, expected, target entities.BookingStatus, actor entities.Actor, at time.Time) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.TransitionBooking")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("booking.id", id),
		attribute.String("booking.target", string(target)),
		attribute.String("actor.role", string(actor.Role)),
	)

	if !target.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", target))
	}

	var from entities.BookingStatus
	var updated *entities.Booking
	err := retry.Do(ctx, s.retryCfg, func() error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return retry.Permanent(err)
		}
		from = current.Status

		if expected != "" && current.Status != expected {
			return retry.Permanent(apperrors.NewConflictError(
				fmt.Sprintf("booking %s is %s, expected %s", id, current.Status, expected)))
		}
		if !current.Status.CanTransitionTo(target) {
			return retry.Permanent(apperrors.NewInvalidTransitionError(string(current.Status), string(target)))
		}
		if err := authorizeTransition(actor, current, target); err != nil {
			return retry.Permanent(err)
		}

		updated, err = s.repo.ApplyTransition(ctx, id, current.Status, target, actorName(actor), at)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				return err
			}
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordTransition(ctx, s.metrics, string(from), string(target), string(apperrors.TypeOf(err)))
		return nil, err
	}

	observability.RecordTransition(ctx, s.metrics, string(from), string(target), "applied")
	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", id).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor", actorName(actor)).
		Msg("Booking status changed")

	if notificationType, ok := entities.NotificationTypeForStatus(target); ok {
		s.emit(ctx, notificationType, updated.Clone())
	}
	return updated, nil
}

// emit hands the booking snapshot to the notifier; failures were logged there
func (s *BookingService) emit(ctx context.Context, notificationType entities.NotificationType, booking *entities.Booking) {
	if s.notifier == nil {
		return
	}
	_, _ = s.notifier.Emit(ctx, notificationType, booking)
}

// authorizeTransition applies the role policy. IN_PROGRESS and COMPLETED are
// only ever set by the system actor, which only reaches here through TransitionBookingFrom.
func authorizeTransition(actor entities.Actor, booking *entities.Booking, target entities.BookingStatus) error {
	switch {
	case actor.IsSystem():
		return nil
	case actor.Role == entities.RoleCustomer:
		if target != entities.BookingStatusCancelledByUser {
			return apperrors.NewUnauthorizedError(fmt.Sprintf("customers cannot set status %s", target))
		}
		if booking.CustomerID != actor.ID {
			return apperrors.NewUnauthorizedError("customers can only cancel their own bookings")
		}
		return nil
	case actor.IsStaff():
		switch target {
		case entities.BookingStatusConfirmed, entities.BookingStatusCancelledByAdmin, entities.BookingStatusNoShow:
			return nil
		}
		return apperrors.NewUnauthorizedError(fmt.Sprintf("role %s cannot set status %s", actor.Role, target))
	}
	return apperrors.NewUnauthorizedError(fmt.Sprintf("role %q cannot change booking status", actor.Role))
}

func actorName(actor entities.Actor) string {
	if actor.DisplayName != "" {
		return actor.DisplayName
	}
	return actor.ID
}
