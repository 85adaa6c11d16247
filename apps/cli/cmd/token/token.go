package tokencmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parklogic/parksync/platform/go/ghl"
	"github.com/parklogic/parksync/platform/go/persistence"
)

// Command groups OAuth token state helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "CRM OAuth token state (seed/show)",
	}

	cmd.AddCommand(seedCommand())
	cmd.AddCommand(showCommand())
	return cmd
}

func seedCommand() *cobra.Command {
	var (
		databaseURL  string
		authBaseURL  string
		clientID     string
		clientSecret string
		credentialID string
		code         string
		redirectURI  string
	)

	c := &cobra.Command{
		Use:   "seed",
		Short: "Exchange an OAuth authorization code for initial token state",
		Long:  "Run after completing the CRM consent flow in a browser. The resulting access and refresh tokens are persisted; the daemon refreshes them from there on its own.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			store, err := persistence.NewTokenStore(pool)
			if err != nil {
				return fmt.Errorf("init token store: %w", err)
			}

			manager, err := ghl.NewTokenManager(ghl.TokenManagerConfig{
				AuthBaseURL:  authBaseURL,
				ClientID:     clientID,
				ClientSecret: clientSecret,
				CredentialID: credentialID,
				Store:        store,
			})
			if err != nil {
				return fmt.Errorf("init token manager: %w", err)
			}

			if err := manager.Seed(ctx, code, redirectURI); err != nil {
				return fmt.Errorf("seed token state: %w", err)
			}
			fmt.Printf("token state seeded for credential %s\n", credentialID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&authBaseURL, "auth-base-url", "https://services.leadconnectorhq.com", "CRM OAuth base URL")
	c.Flags().StringVar(&clientID, "client-id", os.Getenv("GHL_CLIENT_ID"), "CRM app client id (defaults to GHL_CLIENT_ID)")
	c.Flags().StringVar(&clientSecret, "client-secret", os.Getenv("GHL_CLIENT_SECRET"), "CRM app client secret (defaults to GHL_CLIENT_SECRET)")
	c.Flags().StringVar(&credentialID, "credential-id", "default", "Stored credential key")
	c.Flags().StringVar(&code, "code", "", "OAuth authorization code from the consent redirect")
	c.Flags().StringVar(&redirectURI, "redirect-uri", "", "Redirect URI registered with the CRM app")
	_ = c.MarkFlagRequired("code")
	return c
}

func showCommand() *cobra.Command {
	var (
		databaseURL  string
		credentialID string
	)

	c := &cobra.Command{
		Use:   "show",
		Short: "Show stored token state (tokens redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			store, err := persistence.NewTokenStore(pool)
			if err != nil {
				return fmt.Errorf("init token store: %w", err)
			}

			rec, err := store.Get(ctx, credentialID)
			if err != nil {
				return err
			}

			expiry := rec.IssuedAt.Add(time.Duration(rec.ExpiresIn) * time.Second)
			fmt.Printf("credential:    %s\n", rec.CredentialID)
			fmt.Printf("access token:  %s\n", redact(rec.AccessToken))
			fmt.Printf("refresh token: %s\n", redact(rec.RefreshToken))
			fmt.Printf("issued at:     %s\n", rec.IssuedAt.Format(time.RFC3339))
			fmt.Printf("expires at:    %s (%s)\n", expiry.Format(time.RFC3339), time.Until(expiry).Round(time.Second))
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&credentialID, "credential-id", "default", "Stored credential key")
	return c
}

func redact(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
