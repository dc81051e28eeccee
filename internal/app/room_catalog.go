package app

import "github.com/khangpt2k6/bullroom/internal/domain"

func seedRoom(id string, b domain.Building, floor int, t domain.RoomType, capacity, desc string, available bool, features ...string) CreateRoomInput {
	return CreateRoomInput{
		ID:          id,
		Building:    b,
		Floor:       floor,
		Type:        t,
		Capacity:    capacity,
		Description: desc,
		Features:    features,
		Available:   &available,
	}
}

// DefaultCatalog is the campus room list loaded by `bullroom seed`.
func DefaultCatalog() []CreateRoomInput {
	const (
		lib = domain.BuildingLibrary
		msc = domain.BuildingMSC
		enb = domain.BuildingENB

		solo  = domain.RoomTypeIndividual
		group = domain.RoomTypeGroup
		large = domain.RoomTypeLargeGroup
	)
	return []CreateRoomInput{
		seedRoom("LIB-224", lib, 2, solo, "1-2", "Quiet individual study room", true, "Whiteboard"),
		seedRoom("LIB-225", lib, 2, solo, "1-2", "Small room with chair & table", true, "Power outlets"),
		seedRoom("LIB-230", lib, 2, group, "2-4", "Group study space", true, "Whiteboard", "Monitor"),
		seedRoom("LIB-305", lib, 3, group, "2-4", "Group study with bench seating", false, "Monitor", "Power outlets"),
		seedRoom("LIB-306", lib, 3, group, "2-4", "Team work study room", true, "Whiteboard"),
		seedRoom("LIB-308", lib, 3, large, "4-6", "Large group meeting room", false, "Large table", "TV"),
		seedRoom("LIB-401", lib, 4, solo, "1-2", "Quiet corner study room", true, "Power outlets"),
		seedRoom("LIB-445", lib, 4, solo, "1-2", "Window view small room", false, "Whiteboard"),
		seedRoom("LIB-450", lib, 4, group, "2-4", "Group study near stacks", true, "Monitor"),
		seedRoom("LIB-460", lib, 4, large, "4-6", "Large group conference room", true, "TV", "Conference phone"),

		seedRoom("MSC-2700", msc, 27, solo, "1-2", "Private study room", true, "Whiteboard", "Power outlets"),
		seedRoom("MSC-2701", msc, 27, solo, "1-2", "Quiet study space", true, "Desk lamp"),
		seedRoom("MSC-2702", msc, 27, group, "2-4", "Small group collaboration room", true, "Whiteboard", "Monitor"),
		seedRoom("MSC-2705", msc, 27, large, "4-6", "Large team room", true, "TV", "Conference table"),
		seedRoom("MSC-2706", msc, 27, solo, "1-2", "Corner study room", true, "Window", "Power outlets"),
		seedRoom("MSC-2708", msc, 27, group, "2-4", "Project team room", true, "Monitor"),
		seedRoom("MSC-2709", msc, 27, large, "4-6", "Meeting room", true, "TV", "Whiteboard"),
		seedRoom("MSC-3700", msc, 37, solo, "1-2", "Individual study room", true, "Whiteboard"),
		seedRoom("MSC-3701", msc, 37, solo, "1-2", "Private workspace", true, "Power outlets"),
		seedRoom("MSC-3702", msc, 37, group, "2-4", "Team study room", false, "Monitor", "Whiteboard"),
		seedRoom("MSC-3704", msc, 37, group, "2-4", "Group study area", true, "Monitor"),
		seedRoom("MSC-3705", msc, 37, large, "4-6", "Large study room", true, "TV", "Large table"),
		seedRoom("MSC-3707", msc, 37, group, "2-4", "Team workspace", true, "Whiteboard", "Monitor"),
		seedRoom("MSC-3708", msc, 37, group, "2-4", "Study group room", true, "Power outlets"),
		seedRoom("MSC-3712", msc, 37, large, "4-6", "Large meeting room", true, "TV", "Whiteboard", "Conference table"),

		seedRoom("ENB-100", enb, 1, solo, "1-2", "Engineering study room", true, "Whiteboard", "Power outlets"),
		seedRoom("ENB-101", enb, 1, group, "2-4", "Design team room", true, "Monitor", "Whiteboard"),
		seedRoom("ENB-102", enb, 1, large, "4-6", "Senior project room", false, "TV", "Large table", "Whiteboard"),
		seedRoom("ENB-103", enb, 1, group, "2-4", "Lab prep study room", true, "Whiteboard"),
		seedRoom("ENB-200", enb, 2, solo, "1-2", "Private study space", true, "Desk", "Chair"),
		seedRoom("ENB-201", enb, 2, group, "2-4", "Team collaboration room", false, "Monitor", "Whiteboard"),
		seedRoom("ENB-202", enb, 2, large, "4-6", "Capstone project room", true, "TV", "Conference phone", "Whiteboard"),
		seedRoom("ENB-203", enb, 2, group, "2-4", "Study group space", true, "Whiteboard", "Power outlets"),
		seedRoom("ENB-300", enb, 3, solo, "1-2", "Quiet engineering study room", true, "Power outlets"),
		seedRoom("ENB-301", enb, 3, group, "2-4", "Group project room", true, "Monitor", "Whiteboard"),
		seedRoom("ENB-302", enb, 3, large, "4-6", "Large engineering workspace", true, "TV", "Large table"),
		seedRoom("ENB-303", enb, 3, group, "2-4", "Design studio", false, "Whiteboard", "Monitor"),
	}
}
