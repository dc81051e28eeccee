package domain

import (
	"errors"
	"fmt"
)

// Validation errors are rejected before any store is touched.
var (
	ErrInvalidInterval = errors.New("end time must be after start time")
	ErrStartInPast     = errors.New("cannot book in the past")
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidSlot     = errors.New("invalid time slot")
	ErrRoomInvalid     = errors.New("invalid room")
	ErrInvalidFilter   = errors.New("invalid filter")
)

var (
	ErrSlotConflict     = errors.New("time slot conflicts with an existing booking")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ErrInvalidState is the parent of every lifecycle rejection; callers can
// match the specific cause or the whole class with errors.Is.
var (
	ErrInvalidState     = errors.New("invalid booking state")
	ErrAlreadyConfirmed = fmt.Errorf("%w: booking already confirmed", ErrInvalidState)
	ErrAlreadyCancelled = fmt.Errorf("%w: booking already cancelled", ErrInvalidState)
	ErrHoldExpired      = fmt.Errorf("%w: hold expired", ErrInvalidState)
)

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrStartInPast) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidSlot) ||
		errors.Is(err, ErrRoomInvalid) ||
		errors.Is(err, ErrInvalidFilter)
}

// Unavailable wraps cause so that errors.Is(err, ErrStoreUnavailable) holds
// while the original error text is kept.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, cause)
}
