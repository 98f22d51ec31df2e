package cli

import (
	"errors"
	"fmt"

	idb "guardian_bot/internal/infra/database"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := idb.EnsureSchema(cmd.Context(), rt.session); err != nil {
				return storeExitError("schema migration failed", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

// storeExitError classifies a store failure: a missing DATABASE_URL is a
// configuration problem, anything else a runtime failure.
func storeExitError(msg string, err error) error {
	if errors.Is(err, idb.ErrNoDatabaseURL) {
		return WrapExitError(ExitCommandError, msg, err)
	}
	return WrapExitError(ExitFailure, msg, err)
}
