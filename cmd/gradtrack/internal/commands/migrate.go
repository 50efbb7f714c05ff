package commands

import (
	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", cfg.Database.Type)
			return nil
		},
	}
}
