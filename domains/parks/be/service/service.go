// Package service is the park configuration registry: one record per park,
// resolved by CRM location id. The sweeper enumerates active parks through it
// every cycle, so administrative changes take effect on the next sweep
// without a restart.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Errors returned by the service layer.
var (
	ErrNotFound = errors.New("park configuration not found")
	ErrConflict = errors.New("park configuration already exists for location")
)

// NewbookCredentials is the per-park PMS credential triplet.
type NewbookCredentials struct {
	APIToken string
	APIKey   string
	Region   string
}

// StageMap maps booking lifecycle phases to CRM pipeline stage ids. An empty
// value means the phase never moves the CRM record.
type StageMap struct {
	ArrivingSoon   string
	ArrivingToday  string
	Arrived        string
	DepartingToday string
	Departed       string
}

// Config is one park's full sync configuration.
type Config struct {
	LocationID string
	ParkName   string
	Newbook    NewbookCredentials
	PipelineID string
	Stages     StageMap
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateInput carries the fields required to register a park.
type CreateInput struct {
	LocationID string
	ParkName   string
	Newbook    NewbookCredentials
	PipelineID string
	Stages     StageMap
}

// UpdateInput carries optional fields; nil leaves the stored value unchanged.
type UpdateInput struct {
	ParkName   *string
	Newbook    *NewbookCredentials
	PipelineID *string
	Stages     *StageMap
}

// Repository abstracts persistence.
type Repository interface {
	Create(ctx context.Context, cfg Config) (Config, error)
	Update(ctx context.Context, cfg Config) (Config, error)
	GetActive(ctx context.Context, locationID string) (Config, error)
	ListActive(ctx context.Context) ([]Config, error)
	Deactivate(ctx context.Context, locationID string) error
}

// Service provides park configuration operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("parks repo is required")
	}
	return &Service{repo: repo}
}

// Resolve returns the active configuration for a location id.
func (s *Service) Resolve(ctx context.Context, locationID string) (Config, error) {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return Config{}, ErrNotFound
	}
	return s.repo.GetActive(ctx, locationID)
}

// ListActive returns every active park for sweep enumeration.
func (s *Service) ListActive(ctx context.Context) ([]Config, error) {
	return s.repo.ListActive(ctx)
}

// Create registers a new park.
func (s *Service) Create(ctx context.Context, input CreateInput) (Config, error) {
	if err := validateCreate(input); err != nil {
		return Config{}, err
	}

	cfg := Config{
		LocationID: strings.TrimSpace(input.LocationID),
		ParkName:   strings.TrimSpace(input.ParkName),
		Newbook:    input.Newbook,
		PipelineID: input.PipelineID,
		Stages:     input.Stages,
		Active:     true,
	}
	return s.repo.Create(ctx, cfg)
}

// Update applies a partial update to an existing park configuration.
func (s *Service) Update(ctx context.Context, locationID string, input UpdateInput) (Config, error) {
	current, err := s.repo.GetActive(ctx, locationID)
	if err != nil {
		return Config{}, err
	}

	next := current
	if input.ParkName != nil {
		next.ParkName = strings.TrimSpace(*input.ParkName)
	}
	if input.Newbook != nil {
		next.Newbook = *input.Newbook
	}
	if input.PipelineID != nil {
		next.PipelineID = *input.PipelineID
	}
	if input.Stages != nil {
		next.Stages = *input.Stages
	}

	return s.repo.Update(ctx, next)
}

// Deactivate soft-deletes a park. The record stays for audit; the sweeper
// stops enumerating it on the next cycle.
func (s *Service) Deactivate(ctx context.Context, locationID string) error {
	return s.repo.Deactivate(ctx, locationID)
}

func validateCreate(input CreateInput) error {
	switch {
	case strings.TrimSpace(input.LocationID) == "":
		return errors.New("location id is required")
	case strings.TrimSpace(input.ParkName) == "":
		return errors.New("park name is required")
	case input.Newbook.APIToken == "" || input.Newbook.APIKey == "" || input.Newbook.Region == "":
		return errors.New("newbook credentials are required")
	case input.PipelineID == "":
		return errors.New("pipeline id is required")
	}
	return nil
}
