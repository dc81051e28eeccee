package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/khangpt2k6/bullroom/internal/app"
	"github.com/khangpt2k6/bullroom/internal/domain"
)

type fakeBookings struct {
	create  func(app.Caller, app.CreateBookingInput) (domain.Booking, error)
	confirm func(app.Caller, string) (domain.Booking, error)
	cancel  func(app.Caller, string) (domain.Booking, error)
	get     func(app.Caller, string) (domain.Booking, error)
	list    func(app.Caller, app.BookingFilter) ([]domain.Booking, error)
}

func (f *fakeBookings) CreateBooking(_ context.Context, c app.Caller, in app.CreateBookingInput) (domain.Booking, error) {
	return f.create(c, in)
}

func (f *fakeBookings) ConfirmBooking(_ context.Context, c app.Caller, id string) (domain.Booking, error) {
	return f.confirm(c, id)
}

func (f *fakeBookings) CancelBooking(_ context.Context, c app.Caller, id string) (domain.Booking, error) {
	return f.cancel(c, id)
}

func (f *fakeBookings) GetBooking(_ context.Context, c app.Caller, id string) (domain.Booking, error) {
	return f.get(c, id)
}

func (f *fakeBookings) ListBookings(_ context.Context, c app.Caller, fl app.BookingFilter) ([]domain.Booking, error) {
	return f.list(c, fl)
}

type fakeRooms struct {
	rooms   map[string]domain.Room
	created []app.CreateRoomInput
	err     error
}

func (f *fakeRooms) CreateRoom(_ context.Context, in app.CreateRoomInput) (domain.Room, error) {
	if f.err != nil {
		return domain.Room{}, f.err
	}
	f.created = append(f.created, in)
	return domain.Room{ID: in.ID, Building: in.Building, Floor: in.Floor, Type: in.Type, Capacity: in.Capacity, Available: true}, nil
}

func (f *fakeRooms) GetRoom(_ context.Context, id string) (domain.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return r, nil
}

func (f *fakeRooms) ListRooms(_ context.Context, fl domain.RoomFilter) ([]domain.Room, error) {
	var out []domain.Room
	for _, id := range []string{"LIB-224", "LIB-225", "MSC-101"} {
		r, ok := f.rooms[id]
		if !ok {
			continue
		}
		if fl.Building != "" && r.Building != fl.Building {
			continue
		}
		if fl.Floor != nil && r.Floor != *fl.Floor {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// fakeSlots reports HELD for rooms in held and AVAILABLE otherwise.
type fakeSlots struct {
	held map[string]bool
}

func (f *fakeSlots) SlotStatus(_ context.Context, slot domain.Slot) (app.SlotState, error) {
	if f.held[slot.RoomID] {
		return app.SlotState{Slot: slot, Status: domain.SlotHeld, TTL: 90 * time.Second}, nil
	}
	return app.SlotState{Slot: slot, Status: domain.SlotAvailable}, nil
}

func (f *fakeSlots) GetSlotStatus(ctx context.Context, roomID, sig string) (app.SlotState, error) {
	slot, err := domain.ParseSignature(roomID, sig)
	if err != nil {
		return app.SlotState{}, err
	}
	return f.SlotStatus(ctx, slot)
}

func testRooms() *fakeRooms {
	return &fakeRooms{rooms: map[string]domain.Room{
		"LIB-224": {ID: "LIB-224", Building: domain.BuildingLibrary, Floor: 2, Type: domain.RoomTypeGroup, Capacity: "4-6", Available: true},
		"LIB-225": {ID: "LIB-225", Building: domain.BuildingLibrary, Floor: 2, Type: domain.RoomTypeGroup, Capacity: "4-6", Available: true},
		"MSC-101": {ID: "MSC-101", Building: domain.BuildingMSC, Floor: 1, Type: domain.RoomTypeIndividual, Capacity: "1-2", Available: true},
	}}
}

func newTestRouter(b BookingService, r RoomService, s SlotReader) http.Handler {
	return NewRouter(Deps{Bookings: b, Rooms: r, Slots: s})
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var asUser = map[string]string{headerUserID: "u-1"}
