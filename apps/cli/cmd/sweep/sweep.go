package sweepcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	parksrepo "github.com/parklogic/parksync/domains/parks/be/repo"
	parksservice "github.com/parklogic/parksync/domains/parks/be/service"
	syncservice "github.com/parklogic/parksync/domains/sync/be/service"
	"github.com/parklogic/parksync/platform/go/ghl"
	"github.com/parklogic/parksync/platform/go/logging"
	"github.com/parklogic/parksync/platform/go/newbook"
	"github.com/parklogic/parksync/platform/go/persistence"
)

// Command runs a reconciliation sweep once, outside the daemon schedule.
func Command() *cobra.Command {
	var (
		databaseURL    string
		locationID     string
		newbookBaseURL string
		ghlBaseURL     string
		clientID       string
		clientSecret   string
		credentialID   string
		parkTimeout    time.Duration
		logLevel       string
	)

	c := &cobra.Command{
		Use:   "sweep",
		Short: "Run one reconciliation sweep (all parks, or --location-id for one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			logger, err := logging.NewLogger(logging.Config{Component: "cli-sweep", Level: logLevel})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			parkStore, err := persistence.NewParkConfigStore(pool)
			if err != nil {
				return fmt.Errorf("init park config store: %w", err)
			}
			tokenStore, err := persistence.NewTokenStore(pool)
			if err != nil {
				return fmt.Errorf("init token store: %w", err)
			}
			snapshotStore, err := persistence.NewSnapshotStore(pool)
			if err != nil {
				return fmt.Errorf("init snapshot store: %w", err)
			}

			parksSvc := parksservice.New(parksrepo.NewPostgresRepository(parkStore))

			tokens, err := ghl.NewTokenManager(ghl.TokenManagerConfig{
				AuthBaseURL:  ghlBaseURL,
				ClientID:     clientID,
				ClientSecret: clientSecret,
				CredentialID: credentialID,
				Store:        tokenStore,
			})
			if err != nil {
				return fmt.Errorf("init token manager: %w", err)
			}

			syncSvc := syncservice.New(syncservice.Config{
				Source:    newbook.NewClient(newbookBaseURL, nil),
				CRM:       ghl.NewClient(ghlBaseURL, tokens, nil),
				Snapshots: snapshotStore,
				Logger:    logger,
			})
			sweeper := syncservice.NewSweeper(syncSvc, parksSvc, syncservice.SweeperConfig{
				ParkTimeout: parkTimeout,
			}, logger)

			var out any
			if locationID != "" {
				park, err := parksSvc.Resolve(ctx, locationID)
				if err != nil {
					return err
				}
				out = sweeper.SweepPark(ctx, park)
			} else {
				out = sweeper.Sweep(ctx)
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&locationID, "location-id", "", "Sweep only this park")
	c.Flags().StringVar(&newbookBaseURL, "newbook-base-url", "https://api.newbook.cloud/rest", "Newbook API base URL")
	c.Flags().StringVar(&ghlBaseURL, "ghl-base-url", "https://services.leadconnectorhq.com", "CRM API base URL")
	c.Flags().StringVar(&clientID, "client-id", os.Getenv("GHL_CLIENT_ID"), "CRM app client id (defaults to GHL_CLIENT_ID)")
	c.Flags().StringVar(&clientSecret, "client-secret", os.Getenv("GHL_CLIENT_SECRET"), "CRM app client secret (defaults to GHL_CLIENT_SECRET)")
	c.Flags().StringVar(&credentialID, "credential-id", "default", "Stored credential key")
	c.Flags().DurationVar(&parkTimeout, "park-timeout", 2*time.Minute, "Per-park reconcile deadline")
	c.Flags().StringVar(&logLevel, "log-level", "warn", "Log level during the sweep")
	return c
}
