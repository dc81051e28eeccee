package domain

import "time"

type (
	Building string
	RoomType string
)

const (
	BuildingLibrary Building = "Library"
	BuildingMSC     Building = "MSC"
	BuildingENB     Building = "ENB"

	RoomTypeIndividual RoomType = "Individual"
	RoomTypeGroup      RoomType = "Group"
	RoomTypeLargeGroup RoomType = "Large Group"
)

// Room is a bookable space identified by a stable external key such as
// "LIB-224". Available is a coarse hint only; availability decisions are
// derived from bookings and holds.
type Room struct {
	ID          string
	Building    Building
	Floor       int
	Type        RoomType
	Capacity    string
	Description string
	Features    []string
	Available   bool
	CreatedAt   time.Time
}

// RoomFilter narrows room listings. Zero values match everything.
type RoomFilter struct {
	Building Building
	Type     RoomType
	Floor    *int
}

func (b Building) Valid() bool {
	switch b {
	case BuildingLibrary, BuildingMSC, BuildingENB:
		return true
	}
	return false
}

func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeIndividual, RoomTypeGroup, RoomTypeLargeGroup:
		return true
	}
	return false
}

// Validate checks the immutable attributes required at creation.
func (r Room) Validate() error {
	if r.ID == "" || !r.Building.Valid() || !r.Type.Valid() || r.Capacity == "" {
		return ErrRoomInvalid
	}
	return nil
}
