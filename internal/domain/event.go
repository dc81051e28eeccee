package domain

import "time"

// RoomUpdate is published once per slot transition. Observers that were
// disconnected re-query slot status instead of relying on replay.
type RoomUpdate struct {
	RoomID         string     `json:"roomId"`
	TimeSlot       string     `json:"timeSlot"`
	Status         SlotStatus `json:"status"`
	UserID         string     `json:"userId,omitempty"`
	BookingEndTime *time.Time `json:"bookingEndTime,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// NewRoomUpdate builds the event for a slot moving to status.
func NewRoomUpdate(slot Slot, status SlotStatus, userID string, at time.Time) RoomUpdate {
	return RoomUpdate{
		RoomID:    slot.RoomID,
		TimeSlot:  slot.Signature(),
		Status:    status,
		UserID:    userID,
		Timestamp: at,
	}
}
