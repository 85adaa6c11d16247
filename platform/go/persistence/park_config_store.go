package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ParkConfigTable is the table holding one configuration row per park.
const ParkConfigTable = "park_configurations"

// ParkConfigRecord is the stored form of a park configuration. The five stage
// columns are nullable: an absent stage id means the matching lifecycle phase
// never moves the CRM record.
type ParkConfigRecord struct {
	LocationID          string
	ParkName            string
	NewbookAPIToken     string
	NewbookAPIKey       string
	NewbookRegion       string
	PipelineID          string
	StageArrivingSoon   *string
	StageArrivingToday  *string
	StageArrived        *string
	StageDepartingToday *string
	StageDeparted       *string
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ParkConfigStore provides access to the park_configurations table.
type ParkConfigStore struct {
	pool *pgxpool.Pool
}

// NewParkConfigStore creates a store; assumes the schema DDL has been applied.
func NewParkConfigStore(pool *pgxpool.Pool) (*ParkConfigStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ParkConfigStore{pool: pool}, nil
}

const parkConfigColumns = `location_id, park_name, newbook_api_token, newbook_api_key,
        newbook_region, ghl_pipeline_id, stage_arriving_soon, stage_arriving_today,
        stage_arrived, stage_departing_today, stage_departed, is_active, created_at, updated_at`

// Create inserts a new park configuration. A duplicate location id surfaces as
// a unique violation for the caller to map.
func (s *ParkConfigStore) Create(ctx context.Context, rec ParkConfigRecord) (ParkConfigRecord, error) {
	if rec.LocationID == "" {
		return ParkConfigRecord{}, errors.New("location id is required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (
            location_id, park_name, newbook_api_token, newbook_api_key, newbook_region,
            ghl_pipeline_id, stage_arriving_soon, stage_arriving_today, stage_arrived,
            stage_departing_today, stage_departed, is_active
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,TRUE)
        RETURNING %s
    `, ParkConfigTable, parkConfigColumns)

	row := s.pool.QueryRow(ctx, query,
		rec.LocationID, rec.ParkName, rec.NewbookAPIToken, rec.NewbookAPIKey, rec.NewbookRegion,
		rec.PipelineID, rec.StageArrivingSoon, rec.StageArrivingToday, rec.StageArrived,
		rec.StageDepartingToday, rec.StageDeparted,
	)

	return scanParkConfigRecord(row)
}

// Update overwrites the mutable columns of an existing configuration.
func (s *ParkConfigStore) Update(ctx context.Context, rec ParkConfigRecord) (ParkConfigRecord, error) {
	query := fmt.Sprintf(`
        UPDATE %s SET
            park_name = $2, newbook_api_token = $3, newbook_api_key = $4, newbook_region = $5,
            ghl_pipeline_id = $6, stage_arriving_soon = $7, stage_arriving_today = $8,
            stage_arrived = $9, stage_departing_today = $10, stage_departed = $11,
            is_active = $12, updated_at = now()
        WHERE location_id = $1
        RETURNING %s
    `, ParkConfigTable, parkConfigColumns)

	row := s.pool.QueryRow(ctx, query,
		rec.LocationID, rec.ParkName, rec.NewbookAPIToken, rec.NewbookAPIKey, rec.NewbookRegion,
		rec.PipelineID, rec.StageArrivingSoon, rec.StageArrivingToday, rec.StageArrived,
		rec.StageDepartingToday, rec.StageDeparted, rec.IsActive,
	)

	return scanParkConfigRecord(row)
}

// GetActive fetches the active configuration for a location.
func (s *ParkConfigStore) GetActive(ctx context.Context, locationID string) (ParkConfigRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE location_id = $1 AND is_active = TRUE`,
		parkConfigColumns, ParkConfigTable)
	return scanParkConfigRecord(s.pool.QueryRow(ctx, query, locationID))
}

// ListActive returns all active configurations ordered by park name.
func (s *ParkConfigStore) ListActive(ctx context.Context) ([]ParkConfigRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE is_active = TRUE ORDER BY park_name`,
		parkConfigColumns, ParkConfigTable)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ParkConfigRecord
	for rows.Next() {
		rec, err := scanParkConfigRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Deactivate soft-deletes a configuration. The row is preserved for audit.
func (s *ParkConfigStore) Deactivate(ctx context.Context, locationID string) error {
	query := fmt.Sprintf(`UPDATE %s SET is_active = FALSE, updated_at = now() WHERE location_id = $1`,
		ParkConfigTable)

	tag, err := s.pool.Exec(ctx, query, locationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanParkConfigRecord(row pgx.Row) (ParkConfigRecord, error) {
	var rec ParkConfigRecord
	err := row.Scan(
		&rec.LocationID, &rec.ParkName, &rec.NewbookAPIToken, &rec.NewbookAPIKey,
		&rec.NewbookRegion, &rec.PipelineID, &rec.StageArrivingSoon, &rec.StageArrivingToday,
		&rec.StageArrived, &rec.StageDepartingToday, &rec.StageDeparted, &rec.IsActive,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ParkConfigRecord{}, ErrNotFound
		}
		return ParkConfigRecord{}, err
	}
	return rec, nil
}
