package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/config"
	"github.com/khangpt2k6/bullroom/internal/logger"
)

const serviceName = "bullroom"

// RootOptions holds state shared by every subcommand once the persistent
// pre-run has loaded it.
type RootOptions struct {
	EnvDir   string
	LogLevel string

	Config config.Config
	Log    *zap.Logger
}

// NewRootCommand creates the bullroom command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "bullroom",
		Short:         "Study room reservation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Log != nil {
				_ = opts.Log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvDir, "env-dir", "", "directory to start the .env search from (default: working directory)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	dir := o.EnvDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		dir = wd
	}
	envPath, envErr := config.LoadEnvFile(dir)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return err
	}

	switch {
	case envErr != nil:
		log.Warn("failed to load .env", zap.Error(envErr))
	case envPath == "":
		log.Debug(".env not found in current or parent directories")
	default:
		log.Info("loaded env file", zap.String("path", envPath))
	}
	for _, key := range cfg.Defaulted {
		log.Warn("config not set, using default", zap.String("key", key))
	}

	o.Config = cfg
	o.Log = log
	return nil
}
