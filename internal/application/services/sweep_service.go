package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

// Sweep windows, relative to the tick time
const (
	sweepWindowStart = 2 * time.Minute
	sweepWindowEnd   = 1 * time.Minute
	reminderLead     = time.Hour
	// reminders are claimed long enough to outlive every tick that targets the same slot
	reminderClaimTTL = 2 * reminderLead
)

// Scan names reported in SweepResult
const (
	ScanReminder       = "reminder"
	ScanAutoConfirm    = "auto_confirm"
	ScanAutoInProgress = "auto_in_progress"
	ScanAutoComplete   = "auto_complete"
)

// BookingTransitioner applies sweep transitions guarded on the scanned status
type BookingTransitioner interface {
	TransitionBookingFrom(ctx context.Context, id string, expected, target entities.BookingStatus, actor entities.Actor, at time.Time) (*entities.Booking, error)
}

// SweepSettings configures the sweep
type SweepSettings struct {
	Interval time.Duration
	Actor    string
	LockTTL  time.Duration
	Workers  int
	// Location is the zone booking dates and slots are written in.
	Location *time.Location
}

// ScanResult counts what one scan did
type ScanResult struct {
	Name      string `json:"name"`
	Matched   int    `json:"matched"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// SweepResult summarises a tick
type SweepResult struct {
	Now       time.Time    `json:"now"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Skipped   bool         `json:"skipped"`
	Scans     []ScanResult `json:"scans"`
}

// SweepService advances bookings through time-based states once per interval
type SweepService struct {
	bookings    repositories.BookingRepository
	transitions BookingTransitioner
	notifier    BookingNotifier
	lock        providers.SweepLock
	clock       providers.Clock
	settings    SweepSettings
	metrics     *observability.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweepService creates a new sweep service
func NewSweepService(
	bookings repositories.BookingRepository,
	transitions BookingTransitioner,
	notifier BookingNotifier,
	lock providers.SweepLock,
	clock providers.Clock,
	settings SweepSettings,
	metrics *observability.Metrics,
) *SweepService {
	if settings.Interval <= 0 {
		settings.Interval = time.Minute
	}
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = settings.Interval
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &SweepService{
		bookings:    bookings,
		transitions: transitions,
		notifier:    notifier,
		lock:        lock,
		clock:       clock,
		settings:    settings,
		metrics:     metrics,
	}
}

// RunSweepTick runs the four scans for the given instant. When another sweeper
// holds the lock the tick is skipped and reported as such.
func (s *SweepService) RunSweepTick(ctx context.Context, now time.Time) (SweepResult, error) {
	ctx, span := observability.StartSpan(ctx, "SweepService.RunSweepTick")
	defer span.End()
	logger := observability.ComponentLogger(ctx, "sweep")
	result := SweepResult{Now: now}

	acquired, err := s.lock.TryAcquire(ctx, s.settings.LockTTL)
	if err != nil {
		observability.RecordError(span, err)
		return result, apperrors.NewExternalError("failed to acquire sweep lock", err)
	}
	if !acquired {
		logger.Info().Time("now", now).Msg("Sweep lock held elsewhere, skipping tick")
		result.Skipped = true
		return result, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("Failed to release sweep lock")
		}
	}()

	started := time.Now()
	windowFrom, windowTo := now.Add(-sweepWindowStart), now.Add(-sweepWindowEnd)

	result.Scans = []ScanResult{
		s.reminderScan(ctx, now),
		s.transitionScan(ctx, ScanAutoConfirm, entities.BookingStatusPending, entities.BookingStatusConfirmed, now,
			func(ctx context.Context) ([]*entities.Booking, error) {
				return s.bookings.ListCreatedBetween(ctx, entities.BookingStatusPending, windowFrom, windowTo)
			}),
		s.transitionScan(ctx, ScanAutoInProgress, entities.BookingStatusConfirmed, entities.BookingStatusInProgress, now,
			func(ctx context.Context) ([]*entities.Booking, error) {
				return s.bookings.ListEnteredStatusBetween(ctx, entities.BookingStatusConfirmed, windowFrom, windowTo)
			}),
		s.transitionScan(ctx, ScanAutoComplete, entities.BookingStatusInProgress, entities.BookingStatusCompleted, now,
			func(ctx context.Context) ([]*entities.Booking, error) {
				return s.bookings.ListEnteredStatusBetween(ctx, entities.BookingStatusInProgress, windowFrom, windowTo)
			}),
	}

	for _, scan := range result.Scans {
		result.Processed += scan.Processed
		result.Failed += scan.Failed
	}

	elapsed := time.Since(started)
	observability.RecordSweepTick(ctx, s.metrics, elapsed, result.Processed, result.Failed)
	observability.SetSpanAttributes(span,
		attribute.Int("sweep.processed", result.Processed),
		attribute.Int("sweep.failed", result.Failed),
	)
	logger.Info().
		Time("now", now).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Dur("elapsed", elapsed).
		Msg("Sweep tick completed")

	return result, nil
}

// reminderScan notifies CONFIRMED bookings scheduled exactly one hour ahead
func (s *SweepService) reminderScan(ctx context.Context, now time.Time) ScanResult {
	result := ScanResult{Name: ScanReminder}
	logger := observability.ComponentLogger(ctx, "sweep")

	target := now.In(s.settings.Location).Add(reminderLead).Truncate(time.Minute)
	date, slot := target.Format(entities.BookingDateLayout), target.Format(entities.TimeSlotLayout)

	candidates, err := s.bookings.ListByStatusAndSlot(ctx, entities.BookingStatusConfirmed, date, slot)
	if err != nil {
		logger.Error().Err(err).Str("scan", ScanReminder).Msg("Sweep scan query failed")
		result.Failed++
		return result
	}
	result.Matched = len(candidates)

	var processed, skipped, failed atomic.Int64
	s.forEach(candidates, func(b *entities.Booking) {
		claimed, err := s.lock.Claim(ctx, reminderKey(b.ID, date, slot), reminderClaimTTL)
		if err != nil {
			logger.Error().Err(err).Str("scan", ScanReminder).Str("booking_id", b.ID).Msg("Failed to claim reminder")
			failed.Add(1)
			return
		}
		if !claimed {
			// another tick in the same minute already sent it
			skipped.Add(1)
			return
		}
		if _, err := s.notifier.Emit(ctx, entities.NotificationBookingReminder, b); err != nil {
			failed.Add(1)
			return
		}
		processed.Add(1)
	})

	result.Processed = int(processed.Load())
	result.Skipped = int(skipped.Load())
	result.Failed = int(failed.Load())
	return result
}

func reminderKey(bookingID, date, slot string) string {
	return "reminder:" + bookingID + ":" + date + "T" + slot
}

// transitionScan moves every candidate from one status to the next. Items are
// isolated: one failure never stops the others.
func (s *SweepService) transitionScan(
	ctx context.Context,
	name string,
	from, to entities.BookingStatus,
	now time.Time,
	list func(context.Context) ([]*entities.Booking, error),
) ScanResult {
	result := ScanResult{Name: name}
	logger := observability.ComponentLogger(ctx, "sweep")
	actor := entities.SystemActor(s.settings.Actor)

	candidates, err := list(ctx)
	if err != nil {
		logger.Error().Err(err).Str("scan", name).Msg("Sweep scan query failed")
		result.Failed++
		return result
	}
	result.Matched = len(candidates)

	var processed, skipped, failed atomic.Int64
	s.forEach(candidates, func(b *entities.Booking) {
		_, err := s.transitions.TransitionBookingFrom(ctx, b.ID, from, to, actor, now)
		switch {
		case err == nil:
			processed.Add(1)
		case apperrors.IsType(err, apperrors.ErrorTypeConflict), apperrors.IsType(err, apperrors.ErrorTypeNotFound):
			// moved on or deleted since the scan
			logger.Debug().Err(err).Str("scan", name).Str("booking_id", b.ID).Msg("Sweep candidate skipped")
			skipped.Add(1)
		case apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition):
			logger.Error().Err(err).Str("scan", name).Str("booking_id", b.ID).Msg("Sweep matched a booking it cannot transition")
			failed.Add(1)
		default:
			logger.Error().Err(err).Str("scan", name).Str("booking_id", b.ID).Msg("Sweep transition failed")
			failed.Add(1)
		}
	})

	result.Processed = int(processed.Load())
	result.Skipped = int(skipped.Load())
	result.Failed = int(failed.Load())
	return result
}

// forEach runs fn over bookings with at most Workers in flight
func (s *SweepService) forEach(bookings []*entities.Booking, fn func(*entities.Booking)) {
	var g errgroup.Group
	g.SetLimit(s.settings.Workers)
	for _, b := range bookings {
		g.Go(func() error {
			fn(b)
			return nil
		})
	}
	_ = g.Wait()
}

// Start runs a tick every Interval until Stop is called or ctx is done.
// Ticks run one after another; a tick that overruns the interval delays the next.
func (s *SweepService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)

	observability.ComponentLogger(ctx, "sweep").Info().
		Dur("interval", s.settings.Interval).
		Str("actor", s.settings.Actor).
		Msg("Booking sweep started")
}

func (s *SweepService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one sweep detached from loop cancellation so Stop can drain it
func (s *SweepService) tick(ctx context.Context) {
	logger := observability.ComponentLogger(ctx, "sweep")
	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.Interval)
	defer cancel()

	started := time.Now()
	if _, err := s.RunSweepTick(tickCtx, s.clock.Now()); err != nil {
		logger.Error().Err(err).Msg("Sweep tick failed")
	}
	if elapsed := time.Since(started); elapsed > s.settings.Interval {
		logger.Warn().Dur("elapsed", elapsed).Dur("interval", s.settings.Interval).Msg("Sweep tick overran interval, next tick skipped")
	}
}

// Stop ends the loop and waits for an in-flight tick, or until ctx is done
func (s *SweepService) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
