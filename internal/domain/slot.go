package domain

import (
	"strings"
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotHeld      SlotStatus = "HELD"
	SlotBooked    SlotStatus = "BOOKED"
)

// SignatureLayout renders instants as UTC ISO-8601 with millisecond
// precision so that every process computes the same slot key.
const SignatureLayout = "2006-01-02T15:04:05.000Z"

const signatureSep = "_"

// Slot is the (room, start, end) triple under contention.
type Slot struct {
	RoomID string
	Start  time.Time
	End    time.Time
}

// Signature encodes the literal start and end instants.
func (s Slot) Signature() string {
	return FormatInstant(s.Start) + signatureSep + FormatInstant(s.End)
}

func FormatInstant(t time.Time) string {
	return t.UTC().Format(SignatureLayout)
}

// ParseSignature rebuilds a slot from a room id and a signature produced by
// Signature. RFC 3339 instants are accepted as well.
func ParseSignature(roomID, sig string) (Slot, error) {
	startStr, endStr, ok := strings.Cut(sig, signatureSep)
	if roomID == "" || !ok {
		return Slot{}, ErrInvalidSlot
	}
	start, err := ParseInstant(startStr)
	if err != nil {
		return Slot{}, ErrInvalidSlot
	}
	end, err := ParseInstant(endStr)
	if err != nil {
		return Slot{}, ErrInvalidSlot
	}
	if !start.Before(end) {
		return Slot{}, ErrInvalidSlot
	}
	return Slot{RoomID: roomID, Start: start, End: end}, nil
}

// ParseInstant accepts SignatureLayout and RFC 3339 (with or without
// fractional seconds) and returns a UTC time.
func ParseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(SignatureLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
