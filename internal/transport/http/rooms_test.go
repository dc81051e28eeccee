package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

func TestListRooms_Filters(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeBookings{}, testRooms(), &fakeSlots{})

	rec := do(t, h, http.MethodGet, "/api/rooms?building=Library&floor=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp roomListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{}, resp.Rooms[0].Features)

	rec = do(t, h, http.MethodGet, "/api/rooms?floor=two", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidFilter, decodeError(t, rec.Body.Bytes()).Code)
}

func TestListRooms_AvailabilityWindow(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeBookings{}, testRooms(), &fakeSlots{held: map[string]bool{"LIB-224": true}})

	rec := do(t, h, http.MethodGet, "/api/rooms?building=Library&startTime=2030-03-04T14:00:00Z&endTime=2030-03-04T15:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp roomListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "LIB-225", resp.Rooms[0].ID)

	rec = do(t, h, http.MethodGet, "/api/rooms?startTime=2030-03-04T14:00:00Z", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeMissingField, decodeError(t, rec.Body.Bytes()).Code)

	rec = do(t, h, http.MethodGet, "/api/rooms?startTime=2030-03-04T15:00:00Z&endTime=2030-03-04T14:00:00Z", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidInterval, decodeError(t, rec.Body.Bytes()).Code)
}

func TestGetRoom(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeBookings{}, testRooms(), &fakeSlots{})

	rec := do(t, h, http.MethodGet, "/api/rooms/MSC-101", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var room roomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, "MSC", room.Building)

	rec = do(t, h, http.MethodGet, "/api/rooms/NOPE-1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeRoomNotFound, decodeError(t, rec.Body.Bytes()).Code)
}

func TestRoomAvailability(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeBookings{}, testRooms(), &fakeSlots{held: map[string]bool{"LIB-224": true}})

	rec := do(t, h, http.MethodGet, "/api/rooms/LIB-224/availability?startTime=2030-03-04T14:00:00Z&endTime=2030-03-04T15:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp availabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "HELD", resp.Status)
	assert.False(t, resp.Available)
	assert.Equal(t, int64(90000), resp.HoldTTLMillis)
	assert.Equal(t, "2030-03-04T14:00:00.000Z_2030-03-04T15:00:00.000Z", resp.TimeSlot)

	rec = do(t, h, http.MethodGet, "/api/rooms/LIB-225/availability?timeSlot=2030-03-04T14:00:00.000Z_2030-03-04T15:00:00.000Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Available)

	rec = do(t, h, http.MethodGet, "/api/rooms/LIB-225/availability?timeSlot=garbage", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidSlot, decodeError(t, rec.Body.Bytes()).Code)
}

func TestListBuildings(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeBookings{}, testRooms(), &fakeSlots{})
	rec := do(t, h, http.MethodGet, "/api/rooms/buildings", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Buildings []string `json:"buildings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Library", "MSC", "ENB"}, resp.Buildings)
}

func TestCreateRoom_AdminOnly(t *testing.T) {
	t.Parallel()

	rooms := testRooms()
	h := newTestRouter(&fakeBookings{}, rooms, &fakeSlots{})
	body := `{"id":"ENB-110","building":"ENB","floor":1,"type":"Group","capacity":"4-6"}`

	rec := do(t, h, http.MethodPost, "/api/admin/rooms", body, asUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/admin/rooms", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/admin/rooms", body, map[string]string{headerUserID: "ops", headerUserRole: "admin"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, rooms.created, 1)
	assert.Equal(t, domain.BuildingENB, rooms.created[0].Building)
	assert.Nil(t, rooms.created[0].Available)
}

func TestCreateRoom_Duplicate(t *testing.T) {
	t.Parallel()

	rooms := testRooms()
	rooms.err = domain.ErrRoomExists
	h := newTestRouter(&fakeBookings{}, rooms, &fakeSlots{})

	rec := do(t, h, http.MethodPost, "/api/admin/rooms", `{"id":"LIB-224","building":"Library","floor":2,"type":"Group","capacity":"4-6"}`,
		map[string]string{headerUserID: "ops", headerUserRole: "admin"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeRoomExists, decodeError(t, rec.Body.Bytes()).Code)
}
