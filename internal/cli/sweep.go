package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/app"
	"github.com/khangpt2k6/bullroom/internal/clock"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire lapsed PENDING bookings once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := rootOpts.Config

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			client, err := openRedis(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			eng := newEngine(cfg, pool, client, clock.NewSystem(), rootOpts.Log)
			sweeper := app.NewSweeper(eng.bookings, cfg.SweepInterval, cfg.SweepBatchSize, rootOpts.Log.Named("sweeper"))
			n, err := sweeper.SweepOnce(ctx)
			if err != nil {
				return err
			}
			rootOpts.Log.Info("sweep finished", zap.Int("expired", n))
			return nil
		},
	}
}
