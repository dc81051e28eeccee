package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeMissingField       = "missing_required_field"
	codeInvalidTime        = "invalid_time"
	codeInvalidInterval    = "invalid_interval"
	codeStartInPast        = "start_in_past"
	codeInvalidID          = "invalid_id"
	codeInvalidSlot        = "invalid_slot"
	codeInvalidRoom        = "invalid_room"
	codeInvalidFilter      = "invalid_filter"
	codeUnauthenticated    = "unauthenticated"
	codeForbidden          = "forbidden"
	codeSlotConflict       = "slot_conflict"
	codeRoomExists         = "room_exists"
	codeBookingNotFound    = "booking_not_found"
	codeRoomNotFound       = "room_not_found"
	codeAlreadyConfirmed   = "booking_already_confirmed"
	codeAlreadyCancelled   = "booking_already_cancelled"
	codeHoldExpired        = "hold_expired"
	codeInvalidState       = "invalid_state"
	codeRateLimited        = "rate_limit_exceeded"
	codeStoreUnavailable   = "store_unavailable"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorMappings is checked in order; the more specific sentinels wrap the
// general ones and must come first.
var errorMappings = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidInterval, http.StatusBadRequest, codeInvalidInterval},
	{domain.ErrStartInPast, http.StatusBadRequest, codeStartInPast},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrInvalidSlot, http.StatusBadRequest, codeInvalidSlot},
	{domain.ErrRoomInvalid, http.StatusBadRequest, codeInvalidRoom},
	{domain.ErrInvalidFilter, http.StatusBadRequest, codeInvalidFilter},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrBookingNotFound, http.StatusNotFound, codeBookingNotFound},
	{domain.ErrRoomNotFound, http.StatusNotFound, codeRoomNotFound},
	{domain.ErrSlotConflict, http.StatusConflict, codeSlotConflict},
	{domain.ErrRoomExists, http.StatusConflict, codeRoomExists},
	{domain.ErrAlreadyConfirmed, http.StatusConflict, codeAlreadyConfirmed},
	{domain.ErrAlreadyCancelled, http.StatusConflict, codeAlreadyCancelled},
	{domain.ErrHoldExpired, http.StatusConflict, codeHoldExpired},
	{domain.ErrInvalidState, http.StatusConflict, codeInvalidState},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable},
}

// writeServiceError maps a service error onto the error envelope. Unknown
// errors become a 500 without leaking their text.
func writeServiceError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			msg := m.err.Error()
			if m.status == http.StatusServiceUnavailable {
				w.Header().Set("Retry-After", "1")
				msg = "temporarily unavailable, retry later"
			}
			writeError(w, m.status, m.code, msg)
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
