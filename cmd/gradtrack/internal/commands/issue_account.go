package commands

import (
	"errors"
	"fmt"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newIssueAccountCommand() *cobra.Command {
	var in services.IssueAccountInput

	cmd := &cobra.Command{
		Use:   "issue-account",
		Short: "Create an account with a temporary password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bootstrap(); err != nil {
				return err
			}
			defer db.Close()

			issued, err := services.IssueAccount(cmd.Context(), db.DB, in)
			if errors.Is(err, services.ErrAccountExists) {
				return fmt.Errorf("an account for %s already exists", in.Email)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "Issued %s account #%d for %s\n", issued.User.Role, issued.User.ID, issued.User.Email)
			fmt.Fprint(out, "Temporary password: ")
			color.New(color.Bold).Fprintln(out, issued.TemporaryPassword)
			color.New(color.FgYellow).Fprintln(out, "The password must be changed on first login.")

			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Role, "role", "", "graduating, graduated or admin")
	cmd.Flags().StringVar(&in.StudentNumber, "student-number", "", "student number for student roles")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
