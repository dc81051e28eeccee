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

// RoomService is the catalog surface used by the room routes.
type RoomService interface {
	CreateRoom(ctx context.Context, in app.CreateRoomInput) (domain.Room, error)
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error)
}

// SlotReader reports fast-store slot status.
type SlotReader interface {
	SlotStatus(ctx context.Context, slot domain.Slot) (app.SlotState, error)
	GetSlotStatus(ctx context.Context, roomID, signature string) (app.SlotState, error)
}

type roomResponse struct {
	ID          string    `json:"id"`
	Building    string    `json:"building"`
	Floor       int       `json:"floor"`
	Type        string    `json:"type"`
	Capacity    string    `json:"capacity"`
	Description string    `json:"description"`
	Features    []string  `json:"features"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newRoomResponse(r domain.Room) roomResponse {
	features := r.Features
	if features == nil {
		features = []string{}
	}
	return roomResponse{
		ID:          r.ID,
		Building:    string(r.Building),
		Floor:       r.Floor,
		Type:        string(r.Type),
		Capacity:    r.Capacity,
		Description: r.Description,
		Features:    features,
		Available:   r.Available,
		CreatedAt:   r.CreatedAt,
	}
}

type roomListResponse struct {
	Count int            `json:"count"`
	Rooms []roomResponse `json:"rooms"`
}

type availabilityResponse struct {
	RoomID    string    `json:"roomId"`
	TimeSlot  string    `json:"timeSlot"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
	Available bool      `json:"available"`
	// HoldTTLMillis is the remaining hold time of a HELD slot.
	HoldTTLMillis int64 `json:"holdTtlMs,omitempty"`
}

func newAvailabilityResponse(st app.SlotState) availabilityResponse {
	return availabilityResponse{
		RoomID:        st.Slot.RoomID,
		TimeSlot:      st.Slot.Signature(),
		StartTime:     st.Slot.Start,
		EndTime:       st.Slot.End,
		Status:        string(st.Status),
		Available:     st.Status == domain.SlotAvailable,
		HoldTTLMillis: st.TTL.Milliseconds(),
	}
}

// HandleListRooms lists rooms filtered by building, type and floor. With
// startTime and endTime it keeps only rooms whose slot is AVAILABLE.
func HandleListRooms(rooms RoomService, slots SlotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := domain.RoomFilter{
			Building: domain.Building(q.Get("building")),
			Type:     domain.RoomType(q.Get("type")),
		}
		if raw := q.Get("floor"); raw != "" {
			floor, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidFilter, "floor must be an integer")
				return
			}
			f.Floor = &floor
		}

		var window *domain.Slot
		if q.Get("startTime") != "" || q.Get("endTime") != "" {
			slot, ok := slotFromQuery(w, r, "")
			if !ok {
				return
			}
			window = &slot
		}

		list, err := rooms.ListRooms(r.Context(), f)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := roomListResponse{Rooms: make([]roomResponse, 0, len(list))}
		for _, room := range list {
			if window != nil {
				st, err := slots.SlotStatus(r.Context(), domain.Slot{RoomID: room.ID, Start: window.Start, End: window.End})
				if err != nil {
					writeServiceError(w, err)
					return
				}
				if st.Status != domain.SlotAvailable {
					continue
				}
			}
			resp.Rooms = append(resp.Rooms, newRoomResponse(room))
		}
		resp.Count = len(resp.Rooms)
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleListBuildings returns the known building names.
func HandleListBuildings() http.HandlerFunc {
	buildings := []domain.Building{domain.BuildingLibrary, domain.BuildingMSC, domain.BuildingENB}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"buildings": buildings})
	}
}

func HandleGetRoom(rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := rooms.GetRoom(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newRoomResponse(room))
	}
}

// HandleRoomAvailability reports the slot status of one room, addressed by
// startTime and endTime or by a timeSlot signature.
func HandleRoomAvailability(rooms RoomService, slots SlotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")
		if _, err := rooms.GetRoom(r.Context(), roomID); err != nil {
			writeServiceError(w, err)
			return
		}

		var (
			st  app.SlotState
			err error
		)
		if sig := r.URL.Query().Get("timeSlot"); sig != "" {
			st, err = slots.GetSlotStatus(r.Context(), roomID, sig)
		} else {
			slot, ok := slotFromQuery(w, r, roomID)
			if !ok {
				return
			}
			st, err = slots.SlotStatus(r.Context(), slot)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newAvailabilityResponse(st))
	}
}

type createRoomRequest struct {
	ID          string   `json:"id"`
	Building    string   `json:"building"`
	Floor       int      `json:"floor"`
	Type        string   `json:"type"`
	Capacity    string   `json:"capacity"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Available   *bool    `json:"available"`
}

// HandleCreateRoom adds a room to the catalog.
func HandleCreateRoom(rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		room, err := rooms.CreateRoom(r.Context(), app.CreateRoomInput{
			ID:          req.ID,
			Building:    domain.Building(req.Building),
			Floor:       req.Floor,
			Type:        domain.RoomType(req.Type),
			Capacity:    req.Capacity,
			Description: req.Description,
			Features:    req.Features,
			Available:   req.Available,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newRoomResponse(room))
	}
}

// slotFromQuery parses startTime and endTime, writing a 400 on failure.
func slotFromQuery(w http.ResponseWriter, r *http.Request, roomID string) (domain.Slot, bool) {
	q := r.URL.Query()
	rawStart, rawEnd := q.Get("startTime"), q.Get("endTime")
	if rawStart == "" || rawEnd == "" {
		writeError(w, http.StatusBadRequest, codeMissingField, "startTime and endTime are required")
		return domain.Slot{}, false
	}
	start, err := domain.ParseInstant(rawStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidTime, "startTime must be RFC 3339")
		return domain.Slot{}, false
	}
	end, err := domain.ParseInstant(rawEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidTime, "endTime must be RFC 3339")
		return domain.Slot{}, false
	}
	if !start.Before(end) {
		writeServiceError(w, domain.ErrInvalidInterval)
		return domain.Slot{}, false
	}
	slot := domain.Slot{
		RoomID: roomID,
		Start:  start.Truncate(time.Millisecond),
		End:    end.Truncate(time.Millisecond),
	}
	return slot, true
}
