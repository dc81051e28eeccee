package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/khangpt2k6/bullroom/internal/clock"
	"github.com/khangpt2k6/bullroom/internal/domain"
)

type RoomRepository interface {
	CreateRoom(ctx context.Context, room domain.Room) error
	UpsertRoom(ctx context.Context, room domain.Room) (bool, error)
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error)
}

// RoomService manages the room catalog. Rooms are created by administrators
// and never deleted.
type RoomService struct {
	repo  RoomRepository
	clock clock.Clock
}

func NewRoomService(repo RoomRepository, clk clock.Clock) *RoomService {
	return &RoomService{
		repo:  repo,
		clock: clk,
	}
}

type CreateRoomInput struct {
	ID          string
	Building    domain.Building
	Floor       int
	Type        domain.RoomType
	Capacity    string
	Description string
	Features    []string
	Available   *bool
}

func (in CreateRoomInput) room() domain.Room {
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	features := in.Features
	if features == nil {
		features = []string{}
	}
	return domain.Room{
		ID:          strings.TrimSpace(in.ID),
		Building:    in.Building,
		Floor:       in.Floor,
		Type:        in.Type,
		Capacity:    in.Capacity,
		Description: in.Description,
		Features:    features,
		Available:   available,
	}
}

func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (domain.Room, error) {
	room := in.room()
	if err := room.Validate(); err != nil {
		return domain.Room{}, err
	}
	room.CreatedAt = s.clock.Now()

	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if id == "" {
		return domain.Room{}, domain.ErrInvalidID
	}
	return s.repo.GetRoom(ctx, id)
}

func (s *RoomService) ListRooms(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error) {
	if f.Building != "" && !f.Building.Valid() {
		return nil, domain.ErrInvalidFilter
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, domain.ErrInvalidFilter
	}
	return s.repo.ListRooms(ctx, f)
}

// SeedRooms inserts or refreshes every room and returns how many were new.
func (s *RoomService) SeedRooms(ctx context.Context, rooms []CreateRoomInput) (int, error) {
	now := s.clock.Now()
	created := 0
	var errs []error
	for _, in := range rooms {
		room := in.room()
		if err := room.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("room %q: %w", room.ID, err))
			continue
		}
		room.CreatedAt = now
		inserted, err := s.repo.UpsertRoom(ctx, room)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, errors.Join(errs...)
}
