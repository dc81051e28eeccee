package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khangpt2k6/bullroom/internal/domain"
)

type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `id, building, floor, type, capacity, description, features, available, created_at`

func (r *RoomRepository) CreateRoom(ctx context.Context, room domain.Room) error {
	const stmt = `
INSERT INTO rooms (` + roomColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, stmt, roomArgs(room)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoomExists
		}
		return mapErr("create room", err)
	}
	return nil
}

// UpsertRoom inserts room or refreshes its descriptive columns, reporting
// whether a new row was created. CreatedAt of an existing room is kept.
func (r *RoomRepository) UpsertRoom(ctx context.Context, room domain.Room) (bool, error) {
	const stmt = `
INSERT INTO rooms (` + roomColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	building = EXCLUDED.building,
	floor = EXCLUDED.floor,
	type = EXCLUDED.type,
	capacity = EXCLUDED.capacity,
	description = EXCLUDED.description,
	features = EXCLUDED.features,
	available = EXCLUDED.available
RETURNING (xmax = 0)`
	var inserted bool
	if err := r.pool.QueryRow(ctx, stmt, roomArgs(room)...).Scan(&inserted); err != nil {
		return false, mapErr("upsert room", err)
	}
	return inserted, nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	room, err := scanRoom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, mapErr("get room", err)
	}
	return room, nil
}

func (r *RoomRepository) ListRooms(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Building != "" {
		add("building = $%d", string(f.Building))
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Floor != nil {
		add("floor = $%d", *f.Floor)
	}

	query := `SELECT ` + roomColumns + ` FROM rooms`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY building ASC, floor ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list rooms", err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list rooms", err)
	}
	return rooms, nil
}

func roomArgs(room domain.Room) []any {
	features := room.Features
	if features == nil {
		features = []string{}
	}
	return []any{
		room.ID,
		string(room.Building),
		room.Floor,
		string(room.Type),
		room.Capacity,
		room.Description,
		features,
		room.Available,
		room.CreatedAt,
	}
}

func scanRoom(row pgx.Row) (domain.Room, error) {
	var (
		room          domain.Room
		building, typ string
	)
	err := row.Scan(
		&room.ID,
		&building,
		&room.Floor,
		&typ,
		&room.Capacity,
		&room.Description,
		&room.Features,
		&room.Available,
		&room.CreatedAt,
	)
	if err != nil {
		return domain.Room{}, err
	}
	room.Building = domain.Building(building)
	room.Type = domain.RoomType(typ)
	room.CreatedAt = room.CreatedAt.UTC()
	return room, nil
}
