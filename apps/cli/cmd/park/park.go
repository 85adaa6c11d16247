package parkcmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parklogic/parksync/domains/parks/be/repo"
	"github.com/parklogic/parksync/domains/parks/be/service"
	"github.com/parklogic/parksync/platform/go/persistence"
)

// Command groups park registry helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "park",
		Short: "Park registry (add/list/update/deactivate)",
	}

	cmd.AddCommand(addCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(updateCommand())
	cmd.AddCommand(deactivateCommand())
	return cmd
}

func withParksService(databaseURL string, fn func(ctx context.Context, svc *service.Service) error) error {
	ctx := context.Background()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	defer persistence.ClosePool(pool)

	store, err := persistence.NewParkConfigStore(pool)
	if err != nil {
		return fmt.Errorf("init park config store: %w", err)
	}

	return fn(ctx, service.New(repo.NewPostgresRepository(store)))
}

func databaseURLFlag(c *cobra.Command, target *string) {
	c.Flags().StringVar(target, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
}

func addCommand() *cobra.Command {
	var (
		databaseURL string
		input       service.CreateInput
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Register a park and activate it for sweeping",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParksService(databaseURL, func(ctx context.Context, svc *service.Service) error {
				cfg, err := svc.Create(ctx, input)
				if err != nil {
					return err
				}
				fmt.Printf("park %s (%s) registered\n", cfg.ParkName, cfg.LocationID)
				return nil
			})
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&input.LocationID, "location-id", "", "CRM location id (tenant key)")
	c.Flags().StringVar(&input.ParkName, "name", "", "Park display name")
	c.Flags().StringVar(&input.Newbook.APIToken, "newbook-token", "", "Newbook API token")
	c.Flags().StringVar(&input.Newbook.APIKey, "newbook-key", "", "Newbook API key")
	c.Flags().StringVar(&input.Newbook.Region, "newbook-region", "", "Newbook region code")
	c.Flags().StringVar(&input.PipelineID, "pipeline-id", "", "CRM pipeline id")
	c.Flags().StringVar(&input.Stages.ArrivingSoon, "stage-arriving-soon", "", "Stage id for arriving soon")
	c.Flags().StringVar(&input.Stages.ArrivingToday, "stage-arriving-today", "", "Stage id for arriving today")
	c.Flags().StringVar(&input.Stages.Arrived, "stage-arrived", "", "Stage id for arrived")
	c.Flags().StringVar(&input.Stages.DepartingToday, "stage-departing-today", "", "Stage id for departing today")
	c.Flags().StringVar(&input.Stages.Departed, "stage-departed", "", "Stage id for departed")
	_ = c.MarkFlagRequired("location-id")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("newbook-token")
	_ = c.MarkFlagRequired("newbook-key")
	_ = c.MarkFlagRequired("newbook-region")
	_ = c.MarkFlagRequired("pipeline-id")
	return c
}

func listCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "list",
		Short: "List active parks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParksService(databaseURL, func(ctx context.Context, svc *service.Service) error {
				parks, err := svc.ListActive(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "LOCATION ID\tNAME\tPIPELINE\tREGION\tUPDATED")
				for _, p := range parks {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						p.LocationID, p.ParkName, p.PipelineID, p.Newbook.Region,
						p.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}

	databaseURLFlag(c, &databaseURL)
	return c
}

func updateCommand() *cobra.Command {
	var (
		databaseURL string
		locationID  string

		name       string
		pipelineID string
		nbToken    string
		nbKey      string
		nbRegion   string
		stages     service.StageMap
	)

	stageFlags := map[string]func(*service.StageMap) *string{
		"stage-arriving-soon":   func(m *service.StageMap) *string { return &m.ArrivingSoon },
		"stage-arriving-today":  func(m *service.StageMap) *string { return &m.ArrivingToday },
		"stage-arrived":         func(m *service.StageMap) *string { return &m.Arrived },
		"stage-departing-today": func(m *service.StageMap) *string { return &m.DepartingToday },
		"stage-departed":        func(m *service.StageMap) *string { return &m.Departed },
	}

	c := &cobra.Command{
		Use:   "update",
		Short: "Update fields of an active park (unset flags keep stored values)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParksService(databaseURL, func(ctx context.Context, svc *service.Service) error {
				var input service.UpdateInput
				if cmd.Flags().Changed("name") {
					input.ParkName = &name
				}
				if cmd.Flags().Changed("pipeline-id") {
					input.PipelineID = &pipelineID
				}
				if cmd.Flags().Changed("newbook-token") || cmd.Flags().Changed("newbook-key") || cmd.Flags().Changed("newbook-region") {
					current, err := svc.Resolve(ctx, locationID)
					if err != nil {
						return err
					}
					creds := current.Newbook
					if cmd.Flags().Changed("newbook-token") {
						creds.APIToken = nbToken
					}
					if cmd.Flags().Changed("newbook-key") {
						creds.APIKey = nbKey
					}
					if cmd.Flags().Changed("newbook-region") {
						creds.Region = nbRegion
					}
					input.Newbook = &creds
				}

				stageChanged := false
				for flag := range stageFlags {
					if cmd.Flags().Changed(flag) {
						stageChanged = true
					}
				}
				if stageChanged {
					current, err := svc.Resolve(ctx, locationID)
					if err != nil {
						return err
					}
					next := current.Stages
					for flag, field := range stageFlags {
						if cmd.Flags().Changed(flag) {
							*field(&next) = *field(&stages)
						}
					}
					input.Stages = &next
				}

				cfg, err := svc.Update(ctx, locationID, input)
				if err != nil {
					return err
				}
				fmt.Printf("park %s (%s) updated\n", cfg.ParkName, cfg.LocationID)
				return nil
			})
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&locationID, "location-id", "", "CRM location id")
	c.Flags().StringVar(&name, "name", "", "Park display name")
	c.Flags().StringVar(&pipelineID, "pipeline-id", "", "CRM pipeline id")
	c.Flags().StringVar(&nbToken, "newbook-token", "", "Newbook API token")
	c.Flags().StringVar(&nbKey, "newbook-key", "", "Newbook API key")
	c.Flags().StringVar(&nbRegion, "newbook-region", "", "Newbook region code")
	c.Flags().StringVar(&stages.ArrivingSoon, "stage-arriving-soon", "", "Stage id for arriving soon (empty disables the phase)")
	c.Flags().StringVar(&stages.ArrivingToday, "stage-arriving-today", "", "Stage id for arriving today (empty disables the phase)")
	c.Flags().StringVar(&stages.Arrived, "stage-arrived", "", "Stage id for arrived (empty disables the phase)")
	c.Flags().StringVar(&stages.DepartingToday, "stage-departing-today", "", "Stage id for departing today (empty disables the phase)")
	c.Flags().StringVar(&stages.Departed, "stage-departed", "", "Stage id for departed (empty disables the phase)")
	_ = c.MarkFlagRequired("location-id")
	return c
}

func deactivateCommand() *cobra.Command {
	var (
		databaseURL string
		locationID  string
	)

	c := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a park (kept for audit, skipped by sweeps)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			store, err := persistence.NewParkConfigStore(pool)
			if err != nil {
				return fmt.Errorf("init park config store: %w", err)
			}
			snapshots, err := persistence.NewSnapshotStore(pool)
			if err != nil {
				return fmt.Errorf("init snapshot store: %w", err)
			}

			svc := service.New(repo.NewPostgresRepository(store))
			if err := svc.Deactivate(ctx, locationID); err != nil {
				return err
			}
			// Drop the snapshot so a later reactivation diffs from scratch
			// instead of replaying stale prior state.
			if err := snapshots.Delete(ctx, locationID); err != nil {
				return fmt.Errorf("delete snapshot: %w", err)
			}
			fmt.Printf("park %s deactivated\n", locationID)
			return nil
		},
	}

	databaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&locationID, "location-id", "", "CRM location id")
	_ = c.MarkFlagRequired("location-id")
	return c
}
