package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khangpt2k6/bullroom/internal/app"
	"github.com/khangpt2k6/bullroom/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `id, user_id, room_id, start_time, end_time, status,
created_at, hold_expires_at, confirmed_at, cancelled_at, expired_at`

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetRoomForUpdate locks the room row for the rest of the transaction so
// that bookings on one room are checked and inserted one at a time.
func (r *BookingRepository) GetRoomForUpdate(ctx context.Context, roomID string) (domain.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 FOR UPDATE`
	room, err := scanRoom(conn(ctx, r.pool).QueryRow(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, mapErr("get room", err)
	}
	return room, nil
}

func (r *BookingRepository) HasConflict(ctx context.Context, roomID string, start, end time.Time, excludeID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1
	FROM bookings
	WHERE room_id = $1
	  AND status IN ('PENDING', 'CONFIRMED')
	  AND start_time < $3
	  AND end_time > $2
	  AND ($4 = '' OR id::text <> $4)
)`
	var conflict bool
	if err := conn(ctx, r.pool).QueryRow(ctx, query, roomID, start, end, excludeID).Scan(&conflict); err != nil {
		return false, mapErr("check conflict", err)
	}
	return conflict, nil
}

// CreateBooking inserts b. Inserting an id that already exists is a no-op
// so a retried transaction whose first commit landed does not fail.
func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (` + bookingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		b.ID,
		b.UserID,
		b.RoomID,
		b.StartTime,
		b.EndTime,
		string(b.Status),
		b.CreatedAt,
		b.HoldExpiresAt,
		b.ConfirmedAt,
		b.CancelledAt,
		b.ExpiredAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrRoomNotFound
		}
		return mapErr("create booking", err)
	}
	return nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return r.getBooking(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	return r.getBooking(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) getBooking(ctx context.Context, query, id string) (domain.Booking, error) {
	b, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, mapErr("get booking", err)
	}
	return b, nil
}

// UpdateBooking writes the mutable lifecycle columns of b.
func (r *BookingRepository) UpdateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
UPDATE bookings
SET status = $2, confirmed_at = $3, cancelled_at = $4, expired_at = $5
WHERE id = $1`

	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, b.ID, string(b.Status), b.ConfirmedAt, b.CancelledAt, b.ExpiredAt)
	if err != nil {
		return mapErr("update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) ListBookings(ctx context.Context, f app.BookingFilter) ([]domain.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.RoomID != "" {
		add("room_id = $%d", f.RoomID)
	}
	switch {
	case f.Status == "":
	case f.AsOf.IsZero():
		add("status = $%d", string(f.Status))
	case f.Status == domain.BookingStatusPending:
		add("status = 'PENDING' AND hold_expires_at > $%d", f.AsOf)
	case f.Status == domain.BookingStatusExpired:
		add("(status = 'EXPIRED' OR (status = 'PENDING' AND hold_expires_at <= $%d))", f.AsOf)
	default:
		add("status = $%d", string(f.Status))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(f.Limit)
	}
	return r.list(ctx, "list bookings", query, args...)
}

// ListExpiredPending returns PENDING bookings whose window closed at or
// before now, oldest deadline first.
func (r *BookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE status = 'PENDING' AND hold_expires_at <= $1
ORDER BY hold_expires_at ASC
LIMIT $2`
	return r.list(ctx, "list expired pending", query, now, limit)
}

// ExpireLapsed marks overlapping PENDING bookings on roomID whose window
// closed at or before now as EXPIRED.
func (r *BookingRepository) ExpireLapsed(ctx context.Context, roomID string, start, end, now time.Time) ([]domain.Booking, error) {
	const stmt = `
UPDATE bookings
SET status = 'EXPIRED', expired_at = $4
WHERE room_id = $1
  AND status = 'PENDING'
  AND hold_expires_at <= $4
  AND start_time < $3
  AND end_time > $2
RETURNING ` + bookingColumns
	return r.list(ctx, "expire lapsed", stmt, roomID, start, end, now)
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.RoomID,
		&b.StartTime,
		&b.EndTime,
		&status,
		&b.CreatedAt,
		&b.HoldExpiresAt,
		&b.ConfirmedAt,
		&b.CancelledAt,
		&b.ExpiredAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.HoldExpiresAt = b.HoldExpiresAt.UTC()
	return b, nil
}
