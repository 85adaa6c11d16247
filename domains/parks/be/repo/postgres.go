package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parklogic/parksync/domains/parks/be/service"
	"github.com/parklogic/parksync/platform/go/persistence"
)

// PostgresRepository implements the parks repository on top of the shared
// persistence layer.
type PostgresRepository struct {
	store *persistence.ParkConfigStore
}

// NewPostgresRepository constructs a repository backed by ParkConfigStore.
func NewPostgresRepository(store *persistence.ParkConfigStore) *PostgresRepository {
	if store == nil {
		panic("park config store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, cfg service.Config) (service.Config, error) {
	out, err := r.store.Create(ctx, toRecord(cfg))
	if err != nil {
		return service.Config{}, mapConflict(err)
	}
	return toServiceConfig(out), nil
}

func (r *PostgresRepository) Update(ctx context.Context, cfg service.Config) (service.Config, error) {
	out, err := r.store.Update(ctx, toRecord(cfg))
	if err != nil {
		return service.Config{}, mapNotFound(err)
	}
	return toServiceConfig(out), nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, locationID string) (service.Config, error) {
	rec, err := r.store.GetActive(ctx, locationID)
	if err != nil {
		return service.Config{}, mapNotFound(err)
	}
	return toServiceConfig(rec), nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]service.Config, error) {
	rows, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	configs := make([]service.Config, 0, len(rows))
	for _, rec := range rows {
		configs = append(configs, toServiceConfig(rec))
	}
	return configs, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, locationID string) error {
	return mapNotFound(r.store.Deactivate(ctx, locationID))
}

func toRecord(cfg service.Config) persistence.ParkConfigRecord {
	return persistence.ParkConfigRecord{
		LocationID:          cfg.LocationID,
		ParkName:            cfg.ParkName,
		NewbookAPIToken:     cfg.Newbook.APIToken,
		NewbookAPIKey:       cfg.Newbook.APIKey,
		NewbookRegion:       cfg.Newbook.Region,
		PipelineID:          cfg.PipelineID,
		StageArrivingSoon:   toNullable(cfg.Stages.ArrivingSoon),
		StageArrivingToday:  toNullable(cfg.Stages.ArrivingToday),
		StageArrived:        toNullable(cfg.Stages.Arrived),
		StageDepartingToday: toNullable(cfg.Stages.DepartingToday),
		StageDeparted:       toNullable(cfg.Stages.Departed),
		IsActive:            cfg.Active,
	}
}

func toServiceConfig(rec persistence.ParkConfigRecord) service.Config {
	return service.Config{
		LocationID: rec.LocationID,
		ParkName:   rec.ParkName,
		Newbook: service.NewbookCredentials{
			APIToken: rec.NewbookAPIToken,
			APIKey:   rec.NewbookAPIKey,
			Region:   rec.NewbookRegion,
		},
		PipelineID: rec.PipelineID,
		Stages: service.StageMap{
			ArrivingSoon:   fromNullable(rec.StageArrivingSoon),
			ArrivingToday:  fromNullable(rec.StageArrivingToday),
			Arrived:        fromNullable(rec.StageArrived),
			DepartingToday: fromNullable(rec.StageDepartingToday),
			Departed:       fromNullable(rec.StageDeparted),
		},
		Active:    rec.IsActive,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toNullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return service.ErrConflict
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
