package commands

import (
	"fmt"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/spf13/cobra"
)

var configPath string

// NewRootCommand builds the gradtrack command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gradtrack",
		Short: "Graduate tracking backend",
		Long: `gradtrack serves the graduate tracking API and provides admin tooling.

Examples:

  gradtrack serve
  gradtrack migrate
  gradtrack seed --fixtures seed.yaml --fake 50
  gradtrack issue-account --email admin@example.edu --name "Registrar" --role admin
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (GRADTRACK_* env vars override it)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSeedCommand())
	rootCmd.AddCommand(newIssueAccountCommand())

	return rootCmd
}

// bootstrap loads configuration, the logger and a migrated database.
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := db.ConnectDatabase(cfg.Database); err != nil {
		return nil, err
	}

	if err := db.MigrateDatabase(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return cfg, nil
}
