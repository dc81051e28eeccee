package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khangpt2k6/bullroom/internal/app"
	"github.com/khangpt2k6/bullroom/internal/clock"
	"github.com/khangpt2k6/bullroom/internal/fanout"
	"github.com/khangpt2k6/bullroom/internal/notify"
	transporthttp "github.com/khangpt2k6/bullroom/internal/transport/http"
	"github.com/khangpt2k6/bullroom/migrations"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	maxRelayBackoff   = 10 * time.Second
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	SkipMigrate bool
	NoWorkers   bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, observer fan-out and background workers",
		Long: `Run the reservation API.

Besides the HTTP server this starts the room update relay feeding websocket
observers, the notification worker and, unless SWEEP_INTERVAL is 0, the
expiry sweeper. Pending migrations are applied first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	cmd.Flags().BoolVar(&opts.NoWorkers, "no-workers", false, "run only the HTTP surface and relay, without notification worker and sweeper")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, log := opts.Config, opts.Log

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !opts.SkipMigrate {
		applied, err := migrations.Apply(ctx, pool)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.Info("applied migrations", zap.Strings("names", applied))
		}
	}

	client, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	clk := clock.NewSystem()
	eng := newEngine(cfg, pool, client, clk, log)
	hub := fanout.NewHub(fanout.DefaultBuffer, log.Named("fanout"))

	router := transporthttp.NewRouter(transporthttp.Deps{
		Bookings:             eng.bookings,
		Rooms:                eng.rooms,
		Slots:                eng.bookings,
		Observers:            hub,
		Clock:                clk,
		Log:                  log.Named("http"),
		CORSOrigins:          cfg.CORSOrigins,
		CreateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready: map[string]transporthttp.Check{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		},
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("server shutdown error", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		relayUpdates(ctx, hub, eng.updates, log.Named("fanout"))
		return nil
	})

	if !opts.NoWorkers {
		worker := notify.NewWorker(eng.queue, notify.NewLogSender(log.Named("notify")), clk,
			notify.WithBroadcaster(hub),
			notify.WithLogger(log.Named("notify")),
		)
		g.Go(func() error { return worker.Run(ctx) })

		if cfg.SweepInterval > 0 {
			sweeper := app.NewSweeper(eng.bookings, cfg.SweepInterval, cfg.SweepBatchSize, log.Named("sweeper"))
			g.Go(func() error { return sweeper.Run(ctx) })
		}
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// relayUpdates keeps the hub subscribed to the update bus, reconnecting
// with backoff when the subscription drops.
func relayUpdates(ctx context.Context, hub *fanout.Hub, src fanout.UpdateSource, log *zap.Logger) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = maxRelayBackoff

	for {
		started := time.Now()
		err := hub.Relay(ctx, src)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > maxRelayBackoff {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		log.Warn("room update relay dropped", zap.Duration("retry_in", wait), zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
