package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/clock"
	"github.com/khangpt2k6/bullroom/internal/domain"
	"github.com/khangpt2k6/bullroom/internal/metrics"
)

// BookingRepository is the durable record store. Methods called with a
// context returned by WithTx run inside that transaction.
type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRoomForUpdate(ctx context.Context, roomID string) (domain.Room, error)
	HasConflict(ctx context.Context, roomID string, start, end time.Time, excludeID string) (bool, error)
	CreateBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) error
	ListBookings(ctx context.Context, f BookingFilter) ([]domain.Booking, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
	// ExpireLapsed moves PENDING bookings on roomID that overlap [start, end)
	// and whose window closed at or before now to EXPIRED, returning them.
	ExpireLapsed(ctx context.Context, roomID string, start, end, now time.Time) ([]domain.Booking, error)
}

// HoldStore is the fast exclusivity store keyed by slot signature.
type HoldStore interface {
	// Acquire marks the slot HELD for ttl unless it is already held or
	// booked. Repeating a successful call with the same bookingID succeeds.
	Acquire(ctx context.Context, slot domain.Slot, ownerID, bookingID string, ttl time.Duration) (bool, error)
	// Promote turns the caller's hold into BOOKED without a TTL. It fails
	// when the hold no longer names bookingID.
	Promote(ctx context.Context, slot domain.Slot, ownerID, bookingID string) (bool, error)
	// Demote reverts a BOOKED slot still owned by bookingID to HELD for ttl.
	Demote(ctx context.Context, slot domain.Slot, ownerID, bookingID string, ttl time.Duration) (bool, error)
	// Release frees the slot only if it is still owned by bookingID.
	Release(ctx context.Context, slot domain.Slot, ownerID, bookingID string) (bool, error)
	Status(ctx context.Context, slot domain.Slot) (domain.SlotStatus, error)
	TTL(ctx context.Context, slot domain.Slot) (time.Duration, error)
}

type EventPublisher interface {
	PublishRoomUpdate(ctx context.Context, ev domain.RoomUpdate) error
}

type NotificationQueue interface {
	Enqueue(ctx context.Context, n domain.Notification) error
}

// Caller identifies who is acting on a booking.
type Caller struct {
	UserID string
	Admin  bool
}

func (c Caller) owns(b domain.Booking) bool {
	return c.UserID != "" && c.UserID == b.UserID
}

type BookingFilter struct {
	UserID string
	RoomID string
	Status domain.BookingStatus
	Limit  int
	// AsOf, when set, makes the status filter count PENDING bookings whose
	// window closed at or before AsOf as EXPIRED.
	AsOf time.Time
}

type BookingService struct {
	repo     BookingRepository
	holds    HoldStore
	events   EventPublisher
	notifier NotificationQueue
	clock    clock.Clock
	log      *zap.Logger
	holdTTL  time.Duration
	retry    retryPolicy
}

const defaultHoldTTL = 10 * time.Minute

func NewBookingService(repo BookingRepository, holds HoldStore, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:     repo,
		holds:    holds,
		events:   nopPublisher{},
		notifier: nopQueue{},
		clock:    clk,
		log:      zap.NewNop(),
		holdTTL:  defaultHoldTTL,
		retry:    retryPolicy{attempts: defaultStoreAttempts, initial: defaultRetryInitial},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithHoldTTL overrides the default confirmation window for new holds.
func WithHoldTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

func WithEventPublisher(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithNotificationQueue(q NotificationQueue) BookingServiceOption {
	return func(s *BookingService) {
		if q != nil {
			s.notifier = q
		}
	}
}

func WithLogger(l *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStoreRetries sets how many times an unavailable store is tried and
// the first backoff interval.
func WithStoreRetries(attempts int, initial time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if attempts > 0 {
			s.retry.attempts = uint(attempts)
		}
		if initial >= 0 {
			s.retry.initial = initial
		}
	}
}

func (s *BookingService) HoldTTL() time.Duration {
	return s.holdTTL
}

type CreateBookingInput struct {
	RoomID    string
	StartTime time.Time
	EndTime   time.Time
}

// CreateBooking takes the slot hold, then records a PENDING booking after
// the durable conflict check. Nothing is persisted when the hold is refused.
func (s *BookingService) CreateBooking(ctx context.Context, caller Caller, in CreateBookingInput) (domain.Booking, error) {
	if caller.UserID == "" || in.RoomID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}
	start := in.StartTime.UTC().Truncate(time.Millisecond)
	end := in.EndTime.UTC().Truncate(time.Millisecond)

	now := s.clock.Now()
	if err := domain.ValidateInterval(start, end, now); err != nil {
		return domain.Booking{}, err
	}

	booking := domain.Booking{
		ID:            newUUID(),
		UserID:        caller.UserID,
		RoomID:        in.RoomID,
		StartTime:     start,
		EndTime:       end,
		Status:        domain.BookingStatusPending,
		CreatedAt:     now,
		HoldExpiresAt: now.Add(s.holdTTL),
	}
	slot := booking.Slot()

	acquired, err := retryStore(ctx, s.retry, func() (bool, error) {
		return s.holds.Acquire(ctx, slot, caller.UserID, booking.ID, s.holdTTL)
	})
	if err != nil {
		return domain.Booking{}, s.storeFailure("acquire hold", err)
	}
	if !acquired {
		metrics.BookingConflictsTotal.WithLabelValues(metrics.StageHold).Inc()
		return domain.Booking{}, domain.ErrSlotConflict
	}

	var lapsed []domain.Booking
	err = retryStoreErr(ctx, s.retry, func() error {
		lapsed = nil
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			if _, err := s.repo.GetRoomForUpdate(txCtx, in.RoomID); err != nil {
				return err
			}
			// Rows whose window closed but were never healed still block the
			// interval and the exclusion constraint.
			expired, err := s.repo.ExpireLapsed(txCtx, in.RoomID, start, end, now)
			if err != nil {
				return err
			}
			lapsed = expired
			conflict, err := s.repo.HasConflict(txCtx, in.RoomID, start, end, booking.ID)
			if err != nil {
				return err
			}
			if conflict {
				return domain.ErrSlotConflict
			}
			return s.repo.CreateBooking(txCtx, booking)
		})
	})
	if err != nil {
		s.releaseHold(ctx, booking)
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.BookingConflictsTotal.WithLabelValues(metrics.StageDurable).Inc()
			return domain.Booking{}, err
		}
		return domain.Booking{}, s.storeFailure("create booking", err)
	}
	for _, b := range lapsed {
		s.expired(ctx, b, now)
	}

	metrics.BookingsCreatedTotal.Inc()
	s.log.Info("booking held",
		zap.String("booking_id", booking.ID),
		zap.String("room_id", booking.RoomID),
		zap.String("time_slot", slot.Signature()),
		zap.Time("hold_expires_at", booking.HoldExpiresAt))

	s.publish(ctx, domain.NewRoomUpdate(slot, domain.SlotHeld, booking.UserID, now))
	s.notify(ctx, domain.NewNotification(domain.NotificationBookingCreated, booking, now))
	return booking, nil
}

// ConfirmBooking promotes the caller's PENDING booking to CONFIRMED while
// its hold is still live.
func (s *BookingService) ConfirmBooking(ctx context.Context, caller Caller, id string) (domain.Booking, error) {
	if !validID(id) {
		return domain.Booking{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var (
		result   domain.Booking
		lapsed   bool
		holdLost bool
		promoted bool
	)

	err := retryStoreErr(ctx, s.retry, func() error {
		lapsed, holdLost = false, false
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			b, err := s.repo.GetBookingForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			if !caller.owns(b) {
				return domain.ErrForbidden
			}
			if b.HoldElapsed(now) {
				lapsed = true
				return domain.ErrHoldExpired
			}
			if err := b.CanConfirm(now); err != nil {
				return err
			}

			ok, err := s.holds.Promote(txCtx, b.Slot(), b.UserID, b.ID)
			if err != nil {
				return err
			}
			if !ok {
				holdLost = true
				return domain.ErrHoldExpired
			}
			promoted = true

			b.Status = domain.BookingStatusConfirmed
			b.ConfirmedAt = &now
			if err := s.repo.UpdateBooking(txCtx, b); err != nil {
				return err
			}
			result = b
			return nil
		})
	})
	if lapsed || holdLost {
		s.expireQuietly(ctx, id, holdLost)
		return domain.Booking{}, domain.ErrHoldExpired
	}
	if err != nil {
		if promoted {
			s.restoreHold(ctx, id)
		}
		return domain.Booking{}, s.storeFailure("confirm booking", err)
	}

	metrics.BookingTransitionsTotal.WithLabelValues(string(domain.BookingStatusConfirmed)).Inc()
	s.log.Info("booking confirmed", zap.String("booking_id", result.ID), zap.String("room_id", result.RoomID))

	ev := domain.NewRoomUpdate(result.Slot(), domain.SlotBooked, result.UserID, now)
	end := result.EndTime
	ev.BookingEndTime = &end
	s.publish(ctx, ev)
	s.notify(ctx, domain.NewNotification(domain.NotificationBookingConfirmed, result, now))
	return result, nil
}

// CancelBooking moves a PENDING or CONFIRMED booking to CANCELLED and frees
// the slot. Owners and admins may cancel.
func (s *BookingService) CancelBooking(ctx context.Context, caller Caller, id string) (domain.Booking, error) {
	if !validID(id) {
		return domain.Booking{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var (
		result domain.Booking
		lapsed bool
	)

	err := retryStoreErr(ctx, s.retry, func() error {
		lapsed = false
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			b, err := s.repo.GetBookingForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			if !caller.Admin && !caller.owns(b) {
				return domain.ErrForbidden
			}
			if b.HoldElapsed(now) {
				lapsed = true
				return domain.ErrHoldExpired
			}
			if err := b.CanCancel(); err != nil {
				return err
			}

			b.Status = domain.BookingStatusCancelled
			b.CancelledAt = &now
			if err := s.repo.UpdateBooking(txCtx, b); err != nil {
				return err
			}
			// A failed release rolls the cancellation back.
			if _, err := s.holds.Release(txCtx, b.Slot(), b.UserID, b.ID); err != nil {
				return err
			}
			result = b
			return nil
		})
	})
	if lapsed {
		s.expireQuietly(ctx, id, false)
		return domain.Booking{}, domain.ErrHoldExpired
	}
	if err != nil {
		return domain.Booking{}, s.storeFailure("cancel booking", err)
	}

	metrics.BookingTransitionsTotal.WithLabelValues(string(domain.BookingStatusCancelled)).Inc()
	s.log.Info("booking cancelled",
		zap.String("booking_id", result.ID),
		zap.String("room_id", result.RoomID),
		zap.Bool("by_admin", caller.Admin && !caller.owns(result)))

	s.publish(ctx, domain.NewRoomUpdate(result.Slot(), domain.SlotAvailable, "", now))
	s.notify(ctx, domain.NewNotification(domain.NotificationBookingCancelled, result, now))
	return result, nil
}

// GetBooking returns a booking visible to caller. A PENDING booking whose
// window has elapsed is reported, and persisted when possible, as EXPIRED.
func (s *BookingService) GetBooking(ctx context.Context, caller Caller, id string) (domain.Booking, error) {
	if !validID(id) {
		return domain.Booking{}, domain.ErrInvalidID
	}
	b, err := retryStore(ctx, s.retry, func() (domain.Booking, error) {
		return s.repo.GetBooking(ctx, id)
	})
	if err != nil {
		return domain.Booking{}, s.storeFailure("get booking", err)
	}
	if !caller.Admin && !caller.owns(b) {
		return domain.Booking{}, domain.ErrForbidden
	}

	now := s.clock.Now()
	if b.HoldElapsed(now) {
		if healed, ok := s.expireQuietly(ctx, id, false); ok {
			return healed, nil
		}
		b.Status = domain.BookingStatusExpired
		b.ExpiredAt = &now
	}
	return b, nil
}

// ListBookings returns bookings matching f, newest first. Non-admin callers
// only see their own bookings.
func (s *BookingService) ListBookings(ctx context.Context, caller Caller, f BookingFilter) ([]domain.Booking, error) {
	if !caller.Admin {
		if caller.UserID == "" {
			return nil, domain.ErrInvalidID
		}
		f.UserID = caller.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.ErrInvalidFilter
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	f.AsOf = s.clock.Now()

	bookings, err := retryStore(ctx, s.retry, func() ([]domain.Booking, error) {
		return s.repo.ListBookings(ctx, f)
	})
	if err != nil {
		return nil, s.storeFailure("list bookings", err)
	}

	for i := range bookings {
		if bookings[i].HoldElapsed(f.AsOf) {
			lapsedAt := bookings[i].HoldExpiresAt
			bookings[i].Status = domain.BookingStatusExpired
			bookings[i].ExpiredAt = &lapsedAt
		}
	}
	return bookings, nil
}

// SlotState is the fast-store view of one slot.
type SlotState struct {
	Slot   domain.Slot
	Status domain.SlotStatus
	// TTL is the remaining hold time for HELD slots, zero otherwise.
	TTL time.Duration
}

// GetSlotStatus reports AVAILABLE, HELD or BOOKED for the slot encoded by
// signature. An unreachable store is an error, never AVAILABLE.
func (s *BookingService) GetSlotStatus(ctx context.Context, roomID, signature string) (SlotState, error) {
	slot, err := domain.ParseSignature(roomID, signature)
	if err != nil {
		return SlotState{}, err
	}
	return s.SlotStatus(ctx, slot)
}

func (s *BookingService) SlotStatus(ctx context.Context, slot domain.Slot) (SlotState, error) {
	status, err := retryStore(ctx, s.retry, func() (domain.SlotStatus, error) {
		return s.holds.Status(ctx, slot)
	})
	if err != nil {
		return SlotState{}, s.storeFailure("slot status", err)
	}
	state := SlotState{Slot: slot, Status: status}
	if status == domain.SlotHeld {
		ttl, err := retryStore(ctx, s.retry, func() (time.Duration, error) {
			return s.holds.TTL(ctx, slot)
		})
		if err != nil {
			return SlotState{}, s.storeFailure("slot ttl", err)
		}
		state.TTL = ttl
	}
	return state, nil
}

// ExpireBooking moves a PENDING booking to EXPIRED when its window has
// elapsed or the fast store no longer holds its slot. It reports whether a
// transition happened; other states are left untouched.
func (s *BookingService) ExpireBooking(ctx context.Context, id string) (domain.Booking, bool, error) {
	if !validID(id) {
		return domain.Booking{}, false, domain.ErrInvalidID
	}
	return s.expire(ctx, id, true)
}

// ExpireDue expires up to limit PENDING bookings whose window has elapsed
// and returns how many were transitioned.
func (s *BookingService) ExpireDue(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	due, err := retryStore(ctx, s.retry, func() ([]domain.Booking, error) {
		return s.repo.ListExpiredPending(ctx, now, limit)
	})
	if err != nil {
		return 0, s.storeFailure("list expired", err)
	}

	expired := 0
	for _, b := range due {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if _, ok, err := s.expire(ctx, b.ID, false); err != nil {
			s.log.Warn("expire booking failed", zap.String("booking_id", b.ID), zap.Error(err))
		} else if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *BookingService) expire(ctx context.Context, id string, checkHold bool) (domain.Booking, bool, error) {
	now := s.clock.Now()
	var (
		result  domain.Booking
		changed bool
	)

	err := retryStoreErr(ctx, s.retry, func() error {
		changed = false
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			b, err := s.repo.GetBookingForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			result = b
			if b.Status != domain.BookingStatusPending {
				return nil
			}
			if !b.HoldElapsed(now) {
				if !checkHold {
					return nil
				}
				status, err := s.holds.Status(txCtx, b.Slot())
				if err != nil {
					return err
				}
				if status != domain.SlotAvailable {
					return nil
				}
			}

			b.Status = domain.BookingStatusExpired
			b.ExpiredAt = &now
			if err := s.repo.UpdateBooking(txCtx, b); err != nil {
				return err
			}
			if _, err := s.holds.Release(txCtx, b.Slot(), b.UserID, b.ID); err != nil {
				return err
			}
			result, changed = b, true
			return nil
		})
	})
	if err != nil {
		return domain.Booking{}, false, s.storeFailure("expire booking", err)
	}
	if !changed {
		return result, false, nil
	}
	s.expired(ctx, result, now)
	return result, true, nil
}

// expired reports a committed PENDING to EXPIRED transition.
func (s *BookingService) expired(ctx context.Context, b domain.Booking, now time.Time) {
	metrics.BookingTransitionsTotal.WithLabelValues(string(domain.BookingStatusExpired)).Inc()
	s.log.Info("booking expired", zap.String("booking_id", b.ID), zap.String("room_id", b.RoomID))

	s.publish(ctx, domain.NewRoomUpdate(b.Slot(), domain.SlotAvailable, "", now))
	s.notify(ctx, domain.NewNotification(domain.NotificationBookingExpired, b, now))
}

// expireQuietly heals a lapsed booking. Failures are logged; the fast store
// stays authoritative for availability in the meantime.
func (s *BookingService) expireQuietly(ctx context.Context, id string, checkHold bool) (domain.Booking, bool) {
	b, _, err := s.expire(ctx, id, checkHold)
	if err != nil {
		s.log.Warn("lazy expiry failed", zap.String("booking_id", id), zap.Error(err))
		return domain.Booking{}, false
	}
	return b, true
}

func (s *BookingService) releaseHold(ctx context.Context, b domain.Booking) {
	ctx = context.WithoutCancel(ctx)
	_, err := retryStore(ctx, s.retry, func() (bool, error) {
		return s.holds.Release(ctx, b.Slot(), b.UserID, b.ID)
	})
	if err != nil {
		s.log.Error("release hold failed",
			zap.String("booking_id", b.ID),
			zap.String("room_id", b.RoomID),
			zap.Error(err))
	}
}

// restoreHold undoes a promotion whose confirming transaction failed. The
// slot goes back to HELD for what is left of the window, or is released
// when nothing is left. A booking that did get confirmed is left alone.
func (s *BookingService) restoreHold(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	b, err := retryStore(ctx, s.retry, func() (domain.Booking, error) {
		return s.repo.GetBooking(ctx, id)
	})
	if err != nil {
		s.log.Error("restore hold failed", zap.String("booking_id", id), zap.Error(err))
		return
	}
	if b.Status != domain.BookingStatusPending {
		return
	}

	remaining := b.HoldExpiresAt.Sub(s.clock.Now())
	if remaining <= 0 {
		s.releaseHold(ctx, b)
		return
	}
	_, err = retryStore(ctx, s.retry, func() (bool, error) {
		return s.holds.Demote(ctx, b.Slot(), b.UserID, b.ID, remaining)
	})
	if err != nil {
		s.log.Error("restore hold failed",
			zap.String("booking_id", b.ID),
			zap.String("room_id", b.RoomID),
			zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, ev domain.RoomUpdate) {
	if err := s.events.PublishRoomUpdate(context.WithoutCancel(ctx), ev); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(metrics.ResultError).Inc()
		s.log.Warn("publish room update failed",
			zap.String("room_id", ev.RoomID),
			zap.String("time_slot", ev.TimeSlot),
			zap.String("status", string(ev.Status)),
			zap.Error(err))
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(metrics.ResultOK).Inc()
}

func (s *BookingService) notify(ctx context.Context, n domain.Notification) {
	if err := s.notifier.Enqueue(context.WithoutCancel(ctx), n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyEnqueueError).Inc()
		s.log.Warn("enqueue notification failed",
			zap.String("booking_id", n.BookingID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifyEnqueued).Inc()
}

func (s *BookingService) storeFailure(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		metrics.StoreUnavailableTotal.WithLabelValues(op).Inc()
		s.log.Error("store unavailable", zap.String("op", op), zap.Error(err))
	}
	return err
}

type nopPublisher struct{}

func (nopPublisher) PublishRoomUpdate(context.Context, domain.RoomUpdate) error { return nil }

type nopQueue struct{}

func (nopQueue) Enqueue(context.Context, domain.Notification) error { return nil }
