package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/chatdata-server/database"
	"github.com/dtroode/chatdata-server/internal/config"
)

// NewMigrateCommand creates the migrate command. It only applies to the
// postgres backend; badger needs no schema.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := config.NewConfig(rootOpts.EnvFiles...)
				if err != nil {
					return err
				}
				dsn = cfg.Database.DSN
			}

			if err := database.Migrate(cmd.Context(), dsn); err != nil {
				return err
			}
			version, err := database.Version(cmd.Context(), dsn)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return json.NewEncoder(out).Encode(map[string]int64{"version": version})
			}
			_, err = fmt.Fprintf(out, "schema at version %d\n", version)
			return err
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres DSN (defaults to DATABASE_DSN)")

	return cmd
}
