package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/app"
	"github.com/khangpt2k6/bullroom/internal/clock"
	"github.com/khangpt2k6/bullroom/internal/config"
	"github.com/khangpt2k6/bullroom/internal/storage/postgres"
	redisstore "github.com/khangpt2k6/bullroom/internal/storage/redis"
)

const (
	startupTimeout  = 5 * time.Second
	storeRetryStart = 50 * time.Millisecond
)

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, cfg config.Config) (*goredis.Client, error) {
	return redisstore.NewClient(ctx, redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	})
}

// engine is the assembled booking stack shared by serve and sweep.
type engine struct {
	bookings *app.BookingService
	rooms    *app.RoomService
	updates  *redisstore.UpdateBus
	queue    *redisstore.NotificationQueue
}

func newEngine(cfg config.Config, pool *pgxpool.Pool, client *goredis.Client, clk clock.Clock, log *zap.Logger) *engine {
	updates := redisstore.NewUpdateBus(client, cfg.RedisPrefix+cfg.UpdatesChannel, log)
	queue := redisstore.NewNotificationQueue(client, redisstore.QueueConfig{
		Stream:   cfg.RedisPrefix + cfg.NotifyStream,
		Group:    cfg.NotifyGroup,
		Consumer: cfg.NotifyConsumer,
		MinIdle:  cfg.NotifyMinIdle,
	})
	bookings := app.NewBookingService(
		postgres.NewBookingRepository(pool),
		redisstore.NewSlotStore(client, cfg.RedisPrefix),
		clk,
		app.WithHoldTTL(cfg.HoldTTL),
		app.WithEventPublisher(updates),
		app.WithNotificationQueue(queue),
		app.WithStoreRetries(cfg.StoreRetryAttempts, storeRetryStart),
		app.WithLogger(log),
	)
	return &engine{
		bookings: bookings,
		rooms:    app.NewRoomService(postgres.NewRoomRepository(pool), clk),
		updates:  updates,
		queue:    queue,
	}
}
