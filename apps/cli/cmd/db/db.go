package dbcmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sqlassets "github.com/parklogic/parksync/database"
	"github.com/parklogic/parksync/platform/go/persistence"
)

// Command groups database helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	cmd.AddCommand(migrateCommand())
	return cmd
}

func migrateCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "migrate",
		Short: "Create the parksync tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			for name, ddl := range map[string]string{
				"park_configurations": sqlassets.ParkConfigurationsSQL,
				"oauth_tokens":        sqlassets.OAuthTokensSQL,
				"booking_snapshots":   sqlassets.BookingSnapshotsSQL,
			} {
				if _, err := pool.Exec(ctx, ddl); err != nil {
					return fmt.Errorf("apply %s schema: %w", name, err)
				}
				fmt.Printf("applied %s\n", name)
			}
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
	return c
}
