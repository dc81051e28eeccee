package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

// SlotStore keeps one key per (room, slot signature) whose value is HELD
// (with a TTL) or BOOKED, plus an owner key naming the booking.
type SlotStore struct {
	client     goredis.UniversalClient
	prefix     string
	acquireLua *goredis.Script
	promoteLua *goredis.Script
	demoteLua  *goredis.Script
	releaseLua *goredis.Script
}

func NewSlotStore(client goredis.UniversalClient, prefix string) *SlotStore {
	return &SlotStore{
		client:     client,
		prefix:     prefix,
		acquireLua: goredis.NewScript(luaAcquireHold),
		promoteLua: goredis.NewScript(luaPromoteHold),
		demoteLua:  goredis.NewScript(luaDemoteSlot),
		releaseLua: goredis.NewScript(luaReleaseSlot),
	}
}

// SlotKey returns the key holding the status of slot.
func (s *SlotStore) SlotKey(slot domain.Slot) string {
	return fmt.Sprintf("%sroom:%s:slot:%s", s.prefix, slot.RoomID, slot.Signature())
}

// OwnerKey returns the key naming the booking that owns slot for ownerID.
func (s *SlotStore) OwnerKey(slot domain.Slot, ownerID string) string {
	return fmt.Sprintf("%sroom:%s:hold:%s:%s", s.prefix, slot.RoomID, ownerID, slot.Signature())
}

func (s *SlotStore) Acquire(
	ctx context.Context, slot domain.Slot, ownerID, bookingID string, ttl time.Duration,
) (bool, error) {
	if ttl < time.Millisecond {
		return false, fmt.Errorf("acquire hold: ttl %s too short", ttl)
	}
	keys := []string{s.SlotKey(slot), s.OwnerKey(slot, ownerID)}
	n, err := s.acquireLua.Run(ctx, s.client, keys, bookingID, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, mapErr("acquire hold", err)
	}
	return n == 1, nil
}

func (s *SlotStore) Promote(ctx context.Context, slot domain.Slot, ownerID, bookingID string) (bool, error) {
	keys := []string{s.SlotKey(slot), s.OwnerKey(slot, ownerID)}
	n, err := s.promoteLua.Run(ctx, s.client, keys, bookingID).Int64()
	if err != nil {
		return false, mapErr("promote hold", err)
	}
	return n == 1, nil
}

// Demote puts a BOOKED slot still owned by bookingID back to HELD for ttl.
func (s *SlotStore) Demote(
	ctx context.Context, slot domain.Slot, ownerID, bookingID string, ttl time.Duration,
) (bool, error) {
	if ttl < time.Millisecond {
		return false, fmt.Errorf("demote slot: ttl %s too short", ttl)
	}
	keys := []string{s.SlotKey(slot), s.OwnerKey(slot, ownerID)}
	n, err := s.demoteLua.Run(ctx, s.client, keys, bookingID, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, mapErr("demote slot", err)
	}
	return n == 1, nil
}

func (s *SlotStore) Release(ctx context.Context, slot domain.Slot, ownerID, bookingID string) (bool, error) {
	keys := []string{s.SlotKey(slot), s.OwnerKey(slot, ownerID)}
	n, err := s.releaseLua.Run(ctx, s.client, keys, bookingID).Int64()
	if err != nil {
		return false, mapErr("release slot", err)
	}
	return n == 1, nil
}

func (s *SlotStore) Status(ctx context.Context, slot domain.Slot) (domain.SlotStatus, error) {
	val, err := s.client.Get(ctx, s.SlotKey(slot)).Result()
	if errors.Is(err, goredis.Nil) {
		return domain.SlotAvailable, nil
	}
	if err != nil {
		return "", mapErr("slot status", err)
	}
	switch st := domain.SlotStatus(val); st {
	case domain.SlotHeld, domain.SlotBooked:
		return st, nil
	}
	return "", fmt.Errorf("slot status: unexpected value %q", val)
}

// TTL returns the remaining hold time, or zero for booked or free slots.
func (s *SlotStore) TTL(ctx context.Context, slot domain.Slot) (time.Duration, error) {
	d, err := s.client.PTTL(ctx, s.SlotKey(slot)).Result()
	if err != nil {
		return 0, mapErr("slot ttl", err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
