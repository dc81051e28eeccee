package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khangpt2k6/bullroom/internal/testutil"
	"github.com/khangpt2k6/bullroom/migrations"
)

func TestNames_Ordered(t *testing.T) {
	names, err := migrations.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_rooms.sql", "002_bookings.sql"}, names)
}

func TestApply_RecordsMigrations(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `DROP TABLE IF EXISTS bookings, rooms, schema_migrations`)
	require.NoError(t, err)

	applied, err := migrations.Apply(ctx, pool)
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	status, err := migrations.Status(ctx, pool)
	require.NoError(t, err)
	for _, m := range status {
		assert.True(t, m.Applied(), m.Name)
	}

	again, err := migrations.Apply(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, again)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(status), count)
}
