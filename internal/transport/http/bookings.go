package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khangpt2k6/bullroom/internal/app"
	"github.com/khangpt2k6/bullroom/internal/domain"
)

// BookingService is the engine surface used by the booking routes.
type BookingService interface {
	CreateBooking(ctx context.Context, caller app.Caller, in app.CreateBookingInput) (domain.Booking, error)
	ConfirmBooking(ctx context.Context, caller app.Caller, id string) (domain.Booking, error)
	CancelBooking(ctx context.Context, caller app.Caller, id string) (domain.Booking, error)
	GetBooking(ctx context.Context, caller app.Caller, id string) (domain.Booking, error)
	ListBookings(ctx context.Context, caller app.Caller, f app.BookingFilter) ([]domain.Booking, error)
}

type createBookingRequest struct {
	RoomID    string `json:"roomId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type bookingResponse struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	RoomID        string     `json:"roomId"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       time.Time  `json:"endTime"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	HoldExpiresAt time.Time  `json:"holdExpiresAt"`
	ConfirmedAt   *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
	ExpiredAt     *time.Time `json:"expiredAt,omitempty"`
}

func newBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		UserID:        b.UserID,
		RoomID:        b.RoomID,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt,
		HoldExpiresAt: b.HoldExpiresAt,
		ConfirmedAt:   b.ConfirmedAt,
		CancelledAt:   b.CancelledAt,
		ExpiredAt:     b.ExpiredAt,
	}
}

type bookingListResponse struct {
	Count    int               `json:"count"`
	Bookings []bookingResponse `json:"bookings"`
}

// HandleCreateBooking places a hold and records a PENDING booking.
func HandleCreateBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.RoomID == "" || req.StartTime == "" || req.EndTime == "" {
			writeError(w, http.StatusBadRequest, codeMissingField, "roomId, startTime and endTime are required")
			return
		}
		start, err := domain.ParseInstant(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "startTime must be RFC 3339")
			return
		}
		end, err := domain.ParseInstant(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "endTime must be RFC 3339")
			return
		}

		b, err := svc.CreateBooking(r.Context(), callerFrom(r.Context()), app.CreateBookingInput{
			RoomID:    req.RoomID,
			StartTime: start,
			EndTime:   end,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newBookingResponse(b))
	}
}

// HandleGetBooking returns one booking owned by the caller.
func HandleGetBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.GetBooking(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newBookingResponse(b))
	}
}

// HandleListBookings lists the caller's bookings, or everyone's for admins,
// filtered by roomId, status and limit.
func HandleListBookings(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := app.BookingFilter{
			UserID: q.Get("userId"),
			RoomID: q.Get("roomId"),
			Status: domain.BookingStatus(q.Get("status")),
		}
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidFilter, "limit must be a positive integer")
				return
			}
			f.Limit = n
		}

		bookings, err := svc.ListBookings(r.Context(), callerFrom(r.Context()), f)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := bookingListResponse{Count: len(bookings), Bookings: make([]bookingResponse, 0, len(bookings))}
		for _, b := range bookings {
			resp.Bookings = append(resp.Bookings, newBookingResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleConfirmBooking promotes the caller's hold to a confirmed booking.
func HandleConfirmBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.ConfirmBooking(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newBookingResponse(b))
	}
}

// HandleCancelBooking cancels a pending or confirmed booking.
func HandleCancelBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.CancelBooking(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newBookingResponse(b))
	}
}
