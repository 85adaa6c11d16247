package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	parks "github.com/parklogic/parksync/domains/parks/be/service"
	"github.com/parklogic/parksync/platform/go/logging"
)

// ParkLister enumerates the parks to sweep. Implemented by the parks
// service; reading it every tick means administrative changes take effect on
// the next sweep without a restart.
type ParkLister interface {
	ListActive(ctx context.Context) ([]parks.Config, error)
}

// SweeperConfig tunes the scheduler.
type SweeperConfig struct {
	Interval    time.Duration // tick period, default 5m
	ParkTimeout time.Duration // per-park reconcile deadline, default 2m
	Parallelism int           // concurrent parks per sweep, default 1
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.ParkTimeout <= 0 {
		c.ParkTimeout = 2 * time.Minute
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	return c
}

// Sweeper drives periodic reconciliation sweeps over all active parks.
type Sweeper struct {
	svc    *Service
	parks  ParkLister
	cfg    SweeperConfig
	logger *zap.Logger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(svc *Service, lister ParkLister, cfg SweeperConfig, logger *zap.Logger) *Sweeper {
	if svc == nil {
		panic("sync service is required")
	}
	if lister == nil {
		panic("park lister is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{svc: svc, parks: lister, cfg: cfg.withDefaults(), logger: logger}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep reconciles every active park once and returns the aggregate report.
// Park failures are independent; a failed park is reported, not fatal.
func (s *Sweeper) Sweep(ctx context.Context) SweepReport {
	started := time.Now()
	report := SweepReport{SweepID: uuid.NewString(), Started: started.UTC()}
	ctx, log := logging.WithSweep(ctx, s.logger, report.SweepID)

	active, err := s.parks.ListActive(ctx)
	if err != nil {
		log.Error("listing active parks failed, sweep skipped", zap.Error(err))
		report.Duration = time.Since(started)
		return report
	}

	results := make([]ParkReport, len(active))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, park := range active {
		g.Go(func() error {
			parkCtx, cancel := context.WithTimeout(gctx, s.cfg.ParkTimeout)
			defer cancel()
			results[i] = s.svc.ReconcilePark(parkCtx, park)
			return nil
		})
	}
	g.Wait()

	report.Parks = results
	report.Duration = time.Since(started)

	created, updated, deleted, failed := report.Totals()
	log.Info("sweep complete",
		zap.Int("parks", len(active)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("deleted", deleted),
		zap.Int("failed", failed),
		zap.Duration("duration", report.Duration),
	)
	return report
}

// SweepPark reconciles a single park on demand, outside the schedule.
func (s *Sweeper) SweepPark(ctx context.Context, park parks.Config) ParkReport {
	parkCtx, cancel := context.WithTimeout(ctx, s.cfg.ParkTimeout)
	defer cancel()
	return s.svc.ReconcilePark(parkCtx, park)
}
