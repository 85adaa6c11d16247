package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingSnapshotTable keeps one JSONB document per park: the full booking set
// processed in the last successful cycle. Rows are replaced wholesale, never
// merged, so a snapshot is always internally consistent.
const BookingSnapshotTable = "booking_snapshots"

// SnapshotStore provides access to the booking_snapshots table.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a store; assumes the schema DDL has been applied.
func NewSnapshotStore(pool *pgxpool.Pool) (*SnapshotStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &SnapshotStore{pool: pool}, nil
}

// Get returns the raw snapshot document for a park, or ErrNotFound before the
// park's first successful cycle.
func (s *SnapshotStore) Get(ctx context.Context, locationID string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT bookings FROM %s WHERE location_id = $1`, BookingSnapshotTable)

	var doc []byte
	if err := s.pool.QueryRow(ctx, query, locationID).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Replace overwrites the park's snapshot with the provided document.
func (s *SnapshotStore) Replace(ctx context.Context, locationID string, doc []byte) error {
	if locationID == "" {
		return errors.New("location id is required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (location_id, bookings)
        VALUES ($1,$2)
        ON CONFLICT (location_id) DO UPDATE SET
            bookings = EXCLUDED.bookings,
            updated_at = now()
    `, BookingSnapshotTable)

	_, err := s.pool.Exec(ctx, query, locationID, doc)
	return err
}

// Delete removes a park's snapshot. Used when a configuration is deactivated
// so a later reactivation starts from a clean diff baseline.
func (s *SnapshotStore) Delete(ctx context.Context, locationID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE location_id = $1`, BookingSnapshotTable)
	_, err := s.pool.Exec(ctx, query, locationID)
	return err
}
