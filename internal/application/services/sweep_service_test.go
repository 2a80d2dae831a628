package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/memory"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

type MockBookingTransitioner struct {
	mock.Mock
}

func (m *MockBookingTransitioner) TransitionBookingFrom(ctx context.Context, id string, expected, target entities.BookingStatus, actor entities.Actor, at time.Time) (*entities.Booking, error) {
	args := m.Called(ctx, id, expected, target, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func scanByName(t *testing.T, result SweepResult, name string) ScanResult {
	t.Helper()
	for _, scan := range result.Scans {
		if scan.Name == name {
			return scan
		}
	}
	t.Fatalf("scan %s missing from result", name)
	return ScanResult{}
}

func TestSweepService_AutoConfirm(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBooking(t)
	now := t0.Add(90 * time.Second)

	result, err := env.sweep.RunSweepTick(ctx, now)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, scanByName(t, result, ScanAutoConfirm).Processed)

	stored, err := env.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusConfirmed, stored.Status)
	require.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, entities.StatusHistoryEntry{
		Status:    entities.BookingStatusConfirmed,
		UpdatedAt: now,
		UpdatedBy: sweepActor,
	}, stored.StatusHistory[1])

	confirmed := env.notificationsOfType(entities.NotificationBookingConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "01/06/2024 19:00", confirmed[0].BookingDate)
	assert.Equal(t, "cust-1", confirmed[0].RecipientID)
	assert.Equal(t, 4, confirmed[0].NumberOfGuests)

	t.Run("rerun at the same instant changes nothing", func(t *testing.T) {
		again, err := env.sweep.RunSweepTick(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, again.Processed)

		stored, _ := env.bookings.GetByID(ctx, b.ID)
		assert.Len(t, stored.StatusHistory, 2)
		assert.Len(t, env.notificationsOfType(entities.NotificationBookingConfirmed), 1)
	})
}

func TestSweepService_FullChain(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBooking(t)

	steps := []struct {
		offset time.Duration
		want   entities.BookingStatus
	}{
		{90 * time.Second, entities.BookingStatusConfirmed},
		{180 * time.Second, entities.BookingStatusInProgress},
		{300 * time.Second, entities.BookingStatusCompleted},
	}
	for _, step := range steps {
		_, err := env.sweep.RunSweepTick(ctx, t0.Add(step.offset))
		require.NoError(t, err)

		stored, err := env.bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, stored.Status, "at +%s", step.offset)
	}

	stored, _ := env.bookings.GetByID(ctx, b.ID)
	require.Len(t, stored.StatusHistory, 4)
	for _, entry := range stored.StatusHistory[1:] {
		assert.Equal(t, sweepActor, entry.UpdatedBy)
	}
	assert.Len(t, env.notificationsOfType(entities.NotificationBookingInProgress), 1)
	assert.Len(t, env.notificationsOfType(entities.NotificationBookingCompleted), 1)
}

func TestSweepService_IgnoresBookingsOutsideWindow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBooking(t)

	for _, offset := range []time.Duration{30 * time.Second, 150 * time.Second} {
		result, err := env.sweep.RunSweepTick(ctx, t0.Add(offset))
		require.NoError(t, err)
		assert.Zero(t, result.Processed, "at +%s", offset)
	}

	stored, _ := env.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, entities.BookingStatusPending, stored.Status)
}

func TestSweepService_LeavesCancelledBookingsAlone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBooking(t)
	_, err := env.service.TransitionBooking(ctx, b.ID, entities.BookingStatusCancelledByUser, bob)
	require.NoError(t, err)

	result, err := env.sweep.RunSweepTick(ctx, t0.Add(90*time.Second))
	require.NoError(t, err)

	assert.Zero(t, scanByName(t, result, ScanAutoConfirm).Matched)
	stored, _ := env.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, entities.BookingStatusCancelledByUser, stored.Status)
	assert.Len(t, stored.StatusHistory, 2)
}

func TestSweepService_Reminder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBooking(t)
	_, err := env.service.TransitionBooking(ctx, b.ID, entities.BookingStatusConfirmed, alice)
	require.NoError(t, err)

	// 2024-06-01 19:00 is exactly one hour after the truncated tick time
	result, err := env.sweep.RunSweepTick(ctx, time.Date(2024, 6, 1, 18, 0, 30, 0, time.UTC))
	require.NoError(t, err)

	reminder := scanByName(t, result, ScanReminder)
	assert.Equal(t, 1, reminder.Matched)
	assert.Equal(t, 1, reminder.Processed)

	reminders := env.notificationsOfType(entities.NotificationBookingReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, b.CustomerID, reminders[0].RecipientID)

	stored, _ := env.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, entities.BookingStatusConfirmed, stored.Status)

	t.Run("a minute later the slot no longer matches", func(t *testing.T) {
		result, err := env.sweep.RunSweepTick(ctx, time.Date(2024, 6, 1, 18, 1, 30, 0, time.UTC))
		require.NoError(t, err)
		assert.Zero(t, scanByName(t, result, ScanReminder).Matched)
	})
}

func TestSweepService_ReminderSentOncePerSlot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBooking(t)
	_, err := env.service.TransitionBooking(ctx, b.ID, entities.BookingStatusConfirmed, alice)
	require.NoError(t, err)

	first, err := env.sweep.RunSweepTick(ctx, time.Date(2024, 6, 1, 18, 0, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, scanByName(t, first, ScanReminder).Processed)

	// a manual trigger later in the same minute targets the same slot
	second, err := env.sweep.RunSweepTick(ctx, time.Date(2024, 6, 1, 18, 0, 25, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, second.Skipped)
	reminder := scanByName(t, second, ScanReminder)
	assert.Equal(t, 1, reminder.Matched)
	assert.Zero(t, reminder.Processed)
	assert.Equal(t, 1, reminder.Skipped)

	// a second sweeper sharing the lock backend does not resend either
	other := NewSweepService(env.bookings, env.service, env.notifier, env.lock, env.clock,
		SweepSettings{Interval: time.Minute, Actor: sweepActor, Workers: 2, Location: time.UTC}, nil)
	third, err := other.RunSweepTick(ctx, time.Date(2024, 6, 1, 18, 0, 45, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, scanByName(t, third, ScanReminder).Skipped)

	assert.Len(t, env.notificationsOfType(entities.NotificationBookingReminder), 1)
}

func TestSweepService_IsolatesItemFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first := env.createBooking(t)
	second := env.createBooking(t)
	third := env.createBooking(t)
	now := t0.Add(90 * time.Second)

	transitions := new(MockBookingTransitioner)
	transitions.On("TransitionBookingFrom", mock.Anything, first.ID, entities.BookingStatusPending, entities.BookingStatusConfirmed, mock.Anything, now).
		Return(nil, apperrors.NewInternalError("database unavailable", nil))
	transitions.On("TransitionBookingFrom", mock.Anything, second.ID, entities.BookingStatusPending, entities.BookingStatusConfirmed, mock.Anything, now).
		Return(nil, apperrors.NewConflictError("moved on"))
	transitions.On("TransitionBookingFrom", mock.Anything, third.ID, entities.BookingStatusPending, entities.BookingStatusConfirmed, mock.Anything, now).
		Return(third, nil)

	sweep := NewSweepService(env.bookings, transitions, env.notifier, env.lock, env.clock, SweepSettings{Actor: sweepActor}, nil)

	result, err := sweep.RunSweepTick(ctx, now)
	require.NoError(t, err)

	confirm := scanByName(t, result, ScanAutoConfirm)
	assert.Equal(t, 3, confirm.Matched)
	assert.Equal(t, 1, confirm.Processed)
	assert.Equal(t, 1, confirm.Skipped)
	assert.Equal(t, 1, confirm.Failed)
	assert.Equal(t, 1, result.Failed)
	transitions.AssertNumberOfCalls(t, "TransitionBookingFrom", 3)
}

func TestSweepService_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBooking(t)

	acquired, err := env.lock.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	result, err := env.sweep.RunSweepTick(ctx, t0.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Scans)

	stored, _ := env.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, entities.BookingStatusPending, stored.Status)

	require.NoError(t, env.lock.Release(ctx))
	result, err = env.sweep.RunSweepTick(ctx, t0.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}

type countingStore struct {
	*memory.BookingStore
	scans atomic.Int32
}

func (s *countingStore) ListCreatedBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error) {
	s.scans.Add(1)
	return s.BookingStore.ListCreatedBetween(ctx, status, from, to)
}

// deletingStore removes every scanned booking before the sweep gets to transition it
type deletingStore struct {
	*memory.BookingStore
}

func (s *deletingStore) ListCreatedBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error) {
	matched, err := s.BookingStore.ListCreatedBetween(ctx, status, from, to)
	if err != nil {
		return nil, err
	}
	for _, b := range matched {
		if err := s.Delete(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return matched, nil
}

func TestSweepService_SkipsBookingsDeletedMidTick(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createBooking(t)
	env.createBooking(t)

	store := &deletingStore{BookingStore: env.bookings}
	service := NewBookingService(store, env.notifier, env.clock, nil)
	sweep := NewSweepService(store, service, env.notifier, env.lock, env.clock,
		SweepSettings{Interval: time.Minute, Actor: sweepActor, Workers: 2, Location: time.UTC}, nil)

	result, err := sweep.RunSweepTick(ctx, t0.Add(90*time.Second))
	require.NoError(t, err)

	confirm := scanByName(t, result, ScanAutoConfirm)
	assert.Equal(t, 2, confirm.Matched)
	assert.Equal(t, 2, confirm.Skipped)
	assert.Zero(t, confirm.Processed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, env.notificationsOfType(entities.NotificationBookingConfirmed))
}

func TestSweepService_StartStop(t *testing.T) {
	env := newTestEnv(t)
	store := &countingStore{BookingStore: env.bookings}
	sweep := NewSweepService(store, env.service, env.notifier, env.lock, env.clock, SweepSettings{
		Interval: 10 * time.Millisecond,
		Actor:    sweepActor,
	}, nil)

	sweep.Start(context.Background())
	sweep.Start(context.Background()) // second start is a no-op

	require.Eventually(t, func() bool { return store.scans.Load() >= 2 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sweep.Stop(stopCtx))

	stopped := store.scans.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, store.scans.Load())
	assert.NoError(t, sweep.Stop(stopCtx))
}
