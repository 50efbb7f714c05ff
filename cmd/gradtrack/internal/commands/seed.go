package commands

import (
	"fmt"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/seed"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var (
		fixturesPath string
		fakeCount    int
		fakeSeed     int64
		fakePassword string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load YAML fixtures and/or generate fake graduates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fixturesPath == "" && fakeCount <= 0 {
				return fmt.Errorf("nothing to seed: pass --fixtures and/or --fake")
			}

			var fx *seed.Fixtures
			if fixturesPath != "" {
				var err error
				if fx, err = seed.LoadFixtures(fixturesPath); err != nil {
					return err
				}
			}

			if _, err := bootstrap(); err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			ok := color.New(color.FgGreen)
			skipped := color.New(color.FgYellow)

			if fx != nil {
				res, err := seed.Apply(cmd.Context(), db.DB, fx)
				if err != nil {
					return err
				}
				ok.Fprintf(out, "Fixtures: %d admins, %d surveys created\n", res.Admins, res.Surveys)
				if res.Skipped > 0 {
					skipped.Fprintf(out, "Fixtures: %d existing rows skipped\n", res.Skipped)
				}
			}

			if fakeCount > 0 {
				res, err := seed.FakeGraduates(cmd.Context(), db.DB, seed.FakeOptions{
					Count:    fakeCount,
					Seed:     fakeSeed,
					Password: fakePassword,
				})
				if err != nil {
					return err
				}
				ok.Fprintf(out, "Fake data: %d graduates, %d employment records created\n", res.Users, res.Records)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&fixturesPath, "fixtures", "", "YAML file with admins and surveys")
	cmd.Flags().IntVar(&fakeCount, "fake", 0, "number of fake graduates to generate")
	cmd.Flags().Int64Var(&fakeSeed, "fake-seed", 0, "random seed for reproducible fake data (0 = random)")
	cmd.Flags().StringVar(&fakePassword, "fake-password", "password123", "password given to every fake graduate")

	return cmd
}
