package domain

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationBookingCreated   NotificationType = "booking_created"
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationBookingExpired   NotificationType = "booking_expired"
)

// Notification is a durable request to tell a user about a booking
// transition. Delivery is at-least-once, so consumers must tolerate
// duplicates keyed by (BookingID, Type).
type Notification struct {
	Type      NotificationType `json:"type"`
	BookingID string           `json:"bookingId"`
	UserID    string           `json:"userId"`
	RoomID    string           `json:"roomId"`
	StartTime time.Time        `json:"startTime"`
	EndTime   time.Time        `json:"endTime"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewNotification derives a notification from the booking's current fields.
func NewNotification(typ NotificationType, b Booking, at time.Time) Notification {
	n := Notification{
		Type:      typ,
		BookingID: b.ID,
		UserID:    b.UserID,
		RoomID:    b.RoomID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		CreatedAt: at,
	}
	n.Message = n.Body()
	return n
}

// DedupKey identifies a notification across redeliveries.
func (n Notification) DedupKey() string {
	return n.BookingID + ":" + string(n.Type)
}

func (n Notification) Subject() string {
	switch n.Type {
	case NotificationBookingCreated:
		return "Room reservation pending confirmation"
	case NotificationBookingConfirmed:
		return "Room reservation confirmed"
	case NotificationBookingCancelled:
		return "Room reservation cancelled"
	case NotificationBookingExpired:
		return "Room reservation expired"
	}
	return "Room reservation update"
}

func (n Notification) Body() string {
	when := fmt.Sprintf("%s to %s UTC",
		n.StartTime.UTC().Format("Mon Jan 2 15:04"),
		n.EndTime.UTC().Format("15:04"))
	switch n.Type {
	case NotificationBookingCreated:
		return fmt.Sprintf("Room %s is held for you %s. Confirm before the hold expires.", n.RoomID, when)
	case NotificationBookingConfirmed:
		return fmt.Sprintf("Your booking of room %s for %s is confirmed.", n.RoomID, when)
	case NotificationBookingCancelled:
		return fmt.Sprintf("Your booking of room %s for %s was cancelled.", n.RoomID, when)
	case NotificationBookingExpired:
		return fmt.Sprintf("Your hold on room %s for %s expired before confirmation.", n.RoomID, when)
	}
	return fmt.Sprintf("Booking %s for room %s changed.", n.BookingID, n.RoomID)
}
