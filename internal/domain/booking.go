package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// Booking is a reservation of one room over [StartTime, EndTime).
type Booking struct {
	ID            string
	UserID        string
	RoomID        string
	StartTime     time.Time
	EndTime       time.Time
	Status        BookingStatus
	CreatedAt     time.Time
	HoldExpiresAt time.Time
	ConfirmedAt   *time.Time
	CancelledAt   *time.Time
	ExpiredAt     *time.Time
}

// Active reports whether the booking still occupies its interval.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed,
		BookingStatusCancelled, BookingStatusExpired:
		return true
	}
	return false
}

// Slot returns the contended (room, start, end) triple for the booking.
func (b Booking) Slot() Slot {
	return Slot{RoomID: b.RoomID, Start: b.StartTime, End: b.EndTime}
}

// HoldElapsed reports whether a PENDING booking's confirmation window has
// passed at now.
func (b Booking) HoldElapsed(now time.Time) bool {
	return b.Status == BookingStatusPending && !now.Before(b.HoldExpiresAt)
}

// CanConfirm returns nil when the booking may move to CONFIRMED at now.
func (b Booking) CanConfirm(now time.Time) error {
	switch b.Status {
	case BookingStatusPending:
		if b.HoldElapsed(now) {
			return ErrHoldExpired
		}
		return nil
	case BookingStatusConfirmed:
		return ErrAlreadyConfirmed
	case BookingStatusCancelled:
		return ErrAlreadyCancelled
	case BookingStatusExpired:
		return ErrHoldExpired
	}
	return ErrInvalidState
}

// CanCancel returns nil when the booking may move to CANCELLED.
func (b Booking) CanCancel() error {
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed:
		return nil
	case BookingStatusCancelled:
		return ErrAlreadyCancelled
	case BookingStatusExpired:
		return ErrHoldExpired
	}
	return ErrInvalidState
}

// ValidateInterval checks well-formedness and that start is not in the past.
func ValidateInterval(start, end, now time.Time) error {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return ErrInvalidInterval
	}
	if start.Before(now) {
		return ErrStartInPast
	}
	return nil
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Covers a starting inside b, a ending inside b, and either containing the
// other.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return bStart.Before(aEnd) && bEnd.After(aStart)
}
