package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/app"
	"github.com/khangpt2k6/bullroom/internal/clock"
	"github.com/khangpt2k6/bullroom/internal/storage/postgres"
	"github.com/khangpt2k6/bullroom/migrations"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in room catalog",
		Long: `Insert or refresh every room of the built-in campus catalog.

Existing rooms keep their creation time; descriptive columns are updated.
Pending migrations are applied first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx, rootOpts.Config)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := migrations.Apply(ctx, pool); err != nil {
				return err
			}

			rooms := app.NewRoomService(postgres.NewRoomRepository(pool), clock.NewSystem())
			catalog := app.DefaultCatalog()
			inserted, err := rooms.SeedRooms(ctx, catalog)
			if err != nil {
				return err
			}
			rootOpts.Log.Info("room catalog seeded",
				zap.Int("rooms", len(catalog)),
				zap.Int("inserted", inserted),
			)
			return nil
		},
	}
}
