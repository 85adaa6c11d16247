package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parklogic/parksync/domains/parks/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and
// CLI dry-runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	parks map[string]service.Config
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{parks: make(map[string]service.Config)}
}

func (r *MemoryRepository) Create(ctx context.Context, cfg service.Config) (service.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parks[cfg.LocationID]; exists {
		return service.Config{}, service.ErrConflict
	}

	cfg.CreatedAt = time.Now().UTC()
	cfg.UpdatedAt = cfg.CreatedAt
	r.parks[cfg.LocationID] = cfg
	return cfg, nil
}

func (r *MemoryRepository) Update(ctx context.Context, cfg service.Config) (service.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.parks[cfg.LocationID]
	if !exists || !current.Active {
		return service.Config{}, service.ErrNotFound
	}

	cfg.CreatedAt = current.CreatedAt
	cfg.UpdatedAt = time.Now().UTC()
	r.parks[cfg.LocationID] = cfg
	return cfg, nil
}

func (r *MemoryRepository) GetActive(ctx context.Context, locationID string) (service.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, exists := r.parks[locationID]
	if !exists || !cfg.Active {
		return service.Config{}, service.ErrNotFound
	}
	return cfg, nil
}

func (r *MemoryRepository) ListActive(ctx context.Context) ([]service.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	configs := make([]service.Config, 0, len(r.parks))
	for _, cfg := range r.parks {
		if cfg.Active {
			configs = append(configs, cfg)
		}
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ParkName < configs[j].ParkName })
	return configs, nil
}

func (r *MemoryRepository) Deactivate(ctx context.Context, locationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, exists := r.parks[locationID]
	if !exists || !cfg.Active {
		return service.ErrNotFound
	}

	cfg.Active = false
	cfg.UpdatedAt = time.Now().UTC()
	r.parks[locationID] = cfg
	return nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
