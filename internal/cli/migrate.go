package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/migrations"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Status bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Example: `  bullroom migrate
  bullroom migrate --status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx, opts.Config)
			if err != nil {
				return err
			}
			defer pool.Close()

			if opts.Status {
				list, err := migrations.Status(ctx, pool)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "MIGRATION\tAPPLIED AT")
				for _, m := range list {
					at := "pending"
					if m.Applied() {
						at = m.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%s\t%s\n", m.Name, at)
				}
				return w.Flush()
			}

			applied, err := migrations.Apply(ctx, pool)
			if err != nil {
				return err
			}
			opts.Log.Info("migrations applied", zap.Int("count", len(applied)), zap.Strings("names", applied))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Status, "status", false, "list migrations and whether they are applied")

	return cmd
}
