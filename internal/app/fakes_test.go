package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/khangpt2k6/bullroom/internal/clock"
	"github.com/khangpt2k6/bullroom/internal/domain"
)

// fakeBookingRepo serializes transactions with one mutex, which stands in
// for the room row lock.
type fakeBookingRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	rooms    map[string]domain.Room
	bookings map[string]domain.Booking

	// err, when set, is returned by every call.
	err error
	// updateErr, when set, is returned by UpdateBooking only.
	updateErr error
}

func newFakeBookingRepo(rooms ...domain.Room) *fakeBookingRepo {
	r := &fakeBookingRepo{
		rooms:    make(map[string]domain.Room),
		bookings: make(map[string]domain.Booking),
	}
	for _, room := range rooms {
		r.rooms[room.ID] = room
	}
	return r
}

type fakeTxKey struct{}

func (f *fakeBookingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snapshot := make(map[string]domain.Booking, len(f.bookings))
	for k, v := range f.bookings {
		snapshot[k] = v
	}
	f.mu.Unlock()

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.mu.Lock()
		f.bookings = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeBookingRepo) GetRoomForUpdate(_ context.Context, roomID string) (domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Room{}, f.err
	}
	room, ok := f.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeBookingRepo) HasConflict(_ context.Context, roomID string, start, end time.Time, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, b := range f.bookings {
		if b.RoomID != roomID || b.ID == excludeID || !b.Status.Active() {
			continue
		}
		if domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingRepo) CreateBooking(_ context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookingRepo) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Booking{}, f.err
	}
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookingRepo) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	return f.GetBooking(ctx, id)
}

func (f *fakeBookingRepo) UpdateBooking(_ context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.bookings[b.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookingRepo) ListBookings(_ context.Context, filter BookingFilter) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Booking
	for _, b := range f.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.RoomID != "" && b.RoomID != filter.RoomID {
			continue
		}
		if filter.Status != "" && fakeListStatus(b, filter.AsOf) != filter.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeBookingRepo) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.HoldElapsed(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt.Before(out[j].HoldExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func fakeListStatus(b domain.Booking, asOf time.Time) domain.BookingStatus {
	if !asOf.IsZero() && b.HoldElapsed(asOf) {
		return domain.BookingStatusExpired
	}
	return b.Status
}

func (f *fakeBookingRepo) ExpireLapsed(_ context.Context, roomID string, start, end, now time.Time) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Booking
	for id, b := range f.bookings {
		if b.RoomID != roomID || !b.HoldElapsed(now) || !domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		at := now
		b.Status = domain.BookingStatusExpired
		b.ExpiredAt = &at
		f.bookings[id] = b
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBookingRepo) booking(id string) domain.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id]
}

func (f *fakeBookingRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeBookingRepo) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeBookingRepo) setUpdateErr(err error) {
	f.mu.Lock()
	f.updateErr = err
	f.mu.Unlock()
}

type fakeSlot struct {
	status    domain.SlotStatus
	bookingID string
	expiresAt time.Time
}

// fakeHoldStore mirrors the Lua scripts of the Redis store against a clock.
type fakeHoldStore struct {
	mu    sync.Mutex
	clock clock.Clock
	slots map[string]fakeSlot

	err        error
	promoteErr error
	calls      int
}

func newFakeHoldStore(clk clock.Clock) *fakeHoldStore {
	return &fakeHoldStore{clock: clk, slots: make(map[string]fakeSlot)}
}

func slotKey(s domain.Slot) string {
	return s.RoomID + ":" + s.Signature()
}

func (f *fakeHoldStore) live(key string) (fakeSlot, bool) {
	s, ok := f.slots[key]
	if !ok {
		return fakeSlot{}, false
	}
	if !s.expiresAt.IsZero() && !f.clock.Now().Before(s.expiresAt) {
		delete(f.slots, key)
		return fakeSlot{}, false
	}
	return s, true
}

func (f *fakeHoldStore) Acquire(_ context.Context, slot domain.Slot, _ string, bookingID string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	key := slotKey(slot)
	if cur, ok := f.live(key); ok {
		return cur.status == domain.SlotHeld && cur.bookingID == bookingID, nil
	}
	f.slots[key] = fakeSlot{status: domain.SlotHeld, bookingID: bookingID, expiresAt: f.clock.Now().Add(ttl)}
	return true, nil
}

func (f *fakeHoldStore) Promote(_ context.Context, slot domain.Slot, _ string, bookingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.promoteErr != nil {
		return false, f.promoteErr
	}
	key := slotKey(slot)
	cur, ok := f.live(key)
	if !ok || cur.bookingID != bookingID {
		return false, nil
	}
	f.slots[key] = fakeSlot{status: domain.SlotBooked, bookingID: bookingID}
	return true, nil
}

func (f *fakeHoldStore) Demote(_ context.Context, slot domain.Slot, _ string, bookingID string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	key := slotKey(slot)
	cur, ok := f.live(key)
	if !ok || cur.bookingID != bookingID {
		return false, nil
	}
	f.slots[key] = fakeSlot{status: domain.SlotHeld, bookingID: bookingID, expiresAt: f.clock.Now().Add(ttl)}
	return true, nil
}

func (f *fakeHoldStore) Release(_ context.Context, slot domain.Slot, _ string, bookingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	key := slotKey(slot)
	cur, ok := f.live(key)
	if !ok || cur.bookingID != bookingID {
		return false, nil
	}
	delete(f.slots, key)
	return true, nil
}

func (f *fakeHoldStore) Status(_ context.Context, slot domain.Slot) (domain.SlotStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	cur, ok := f.live(slotKey(slot))
	if !ok {
		return domain.SlotAvailable, nil
	}
	return cur.status, nil
}

func (f *fakeHoldStore) TTL(_ context.Context, slot domain.Slot) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	cur, ok := f.live(slotKey(slot))
	if !ok || cur.expiresAt.IsZero() {
		return 0, nil
	}
	return cur.expiresAt.Sub(f.clock.Now()), nil
}

func (f *fakeHoldStore) drop(slot domain.Slot) {
	f.mu.Lock()
	delete(f.slots, slotKey(slot))
	f.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RoomUpdate
	err    error
}

func (p *recordingPublisher) PublishRoomUpdate(_ context.Context, ev domain.RoomUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) statuses() []domain.SlotStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.SlotStatus, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Status)
	}
	return out
}

type recordingQueue struct {
	mu    sync.Mutex
	items []domain.Notification
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, n domain.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, n)
	return nil
}

func (q *recordingQueue) types() []domain.NotificationType {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.NotificationType, 0, len(q.items))
	for _, n := range q.items {
		out = append(out, n.Type)
	}
	return out
}
