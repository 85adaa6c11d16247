// Package service is the reconciliation engine: it diffs the PMS booking
// feed against the prior per-park snapshot and applies the difference to the
// CRM pipeline as opportunity creates, updates, and deletes. Neither external
// system is transactional with the other, so the engine is written to
// converge over repeated cycles rather than to be atomic within one.
package service

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	parks "github.com/parklogic/parksync/domains/parks/be/service"
	"github.com/parklogic/parksync/platform/go/ghl"
	"github.com/parklogic/parksync/platform/go/logging"
	"github.com/parklogic/parksync/platform/go/newbook"
	"github.com/parklogic/parksync/platform/go/persistence"
)

// Fetch window around "now". One day back catches departures and late edits,
// seven days ahead matches the arriving-soon horizon.
const (
	fetchBackDays  = 1
	fetchAheadDays = 7
)

// BookingSource fetches bookings from the PMS. Implemented by
// newbook.Client.
type BookingSource interface {
	Bookings(ctx context.Context, creds newbook.Credentials, from, to time.Time) ([]newbook.Booking, error)
}

// CRM is the subset of the GHL API the engine writes to. Implemented by
// ghl.Client.
type CRM interface {
	FindOpportunityByName(ctx context.Context, locationID, pipelineID, name string) (ghl.Opportunity, bool, error)
	CreateOpportunity(ctx context.Context, in ghl.OpportunityInput) (ghl.Opportunity, error)
	UpdateOpportunity(ctx context.Context, opportunityID string, in ghl.OpportunityInput) error
	DeleteOpportunity(ctx context.Context, opportunityID string) error
	UpsertContact(ctx context.Context, locationID, firstName, lastName string) (string, error)
}

// SnapshotStore persists the per-park prior state between cycles.
// Implemented by persistence.SnapshotStore.
type SnapshotStore interface {
	Get(ctx context.Context, locationID string) ([]byte, error)
	Replace(ctx context.Context, locationID string, data []byte) error
}

// Config carries the Service dependencies.
type Config struct {
	Source    BookingSource
	CRM       CRM
	Snapshots SnapshotStore
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service reconciles one park per call.
type Service struct {
	source    BookingSource
	crm       CRM
	snapshots SnapshotStore
	logger    *zap.Logger
	now       func() time.Time
}

// New constructs a Service with required dependencies.
func New(cfg Config) *Service {
	if cfg.Source == nil {
		panic("booking source is required")
	}
	if cfg.CRM == nil {
		panic("crm client is required")
	}
	if cfg.Snapshots == nil {
		panic("snapshot store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		source:    cfg.Source,
		crm:       cfg.CRM,
		snapshots: cfg.Snapshots,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

type change struct {
	prev newbook.Booking
	cur  newbook.Booking
}

// cycle carries the mutable state of one ReconcilePark call.
type cycle struct {
	park    parks.Config
	now     time.Time
	log     *zap.Logger
	report  *ParkReport
	authErr error
}

// ReconcilePark runs one diff-and-apply cycle for a park. It never panics
// outward; every failure is captured in the returned report so one park
// cannot abort a sweep.
func (s *Service) ReconcilePark(ctx context.Context, park parks.Config) (report ParkReport) {
	now := s.now()
	report = ParkReport{LocationID: park.LocationID, ParkName: park.ParkName}
	log := logging.FromContext(ctx, s.logger).With(
		zap.String("location_id", park.LocationID),
		zap.String("park", park.ParkName),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("reconcile panicked", zap.Any("panic", r))
			report.FetchFailed = true
		}
	}()

	creds := newbook.Credentials{
		APIToken: park.Newbook.APIToken,
		APIKey:   park.Newbook.APIKey,
		Region:   park.Newbook.Region,
	}
	bookings, err := s.source.Bookings(ctx, creds, now.AddDate(0, 0, -fetchBackDays), now.AddDate(0, 0, fetchAheadDays))
	if err != nil {
		log.Error("pms fetch failed, park skipped this cycle", zap.Error(err))
		report.FetchFailed = true
		return report
	}

	prev, err := s.loadSnapshot(ctx, park.LocationID)
	if err != nil {
		log.Error("snapshot load failed, park skipped this cycle", zap.Error(err))
		report.FetchFailed = true
		return report
	}

	cur := make(map[string]newbook.Booking, len(bookings))
	for _, b := range bookings {
		if b.ID == "" || (b.GuestFirst == "" && b.GuestLast == "") {
			report.Skipped++
			continue
		}
		cur[b.ID] = b
	}

	byName := make(map[string]string, len(cur))
	for id, b := range cur {
		if isCancelled(b.Status) {
			continue
		}
		name := OpportunityName(b)
		if otherID, dup := byName[name]; dup {
			// Same guest, site, and arrival date. Both bookings now race for
			// one CRM record; whichever the search returns takes the writes.
			log.Warn("two bookings share a canonical name",
				zap.String("name", name),
				zap.String("booking_id", id),
				zap.String("other_booking_id", otherID))
			continue
		}
		byName[name] = id
	}

	var added []newbook.Booking
	var changed []change
	var removed []newbook.Booking
	next := snapshot{}

	for id, b := range cur {
		if isCancelled(b.Status) {
			// Cancelled and never synced means nothing to undo in the CRM.
			if p, ok := prev[id]; ok {
				removed = append(removed, p)
			}
			continue
		}
		p, ok := prev[id]
		switch {
		case !ok:
			added = append(added, b)
		case bookingChanged(p, b):
			changed = append(changed, change{prev: p, cur: b})
		default:
			next[id] = b
		}
	}
	for id, p := range prev {
		if _, ok := cur[id]; !ok {
			removed = append(removed, p)
		}
	}

	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	sort.Slice(changed, func(i, j int) bool { return changed[i].cur.ID < changed[j].cur.ID })
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })

	c := &cycle{park: park, now: now, log: log, report: &report}

	for _, b := range added {
		if c.authAbandoned(b.ID) {
			continue
		}
		if s.applyUpsert(ctx, c, b) {
			next[b.ID] = b
		}
	}

	for _, ch := range changed {
		if c.authAbandoned(ch.cur.ID) {
			continue
		}
		if s.applyChange(ctx, c, ch) {
			next[ch.cur.ID] = ch.cur
		}
	}

	for _, p := range removed {
		if c.authAbandoned(p.ID) {
			next[p.ID] = p
			continue
		}
		if !s.applyRemoval(ctx, c, p) {
			// Failed deletes stay snapshotted so the removal retries next
			// cycle.
			next[p.ID] = p
		}
	}

	if data, err := encodeSnapshot(next); err != nil {
		log.Error("snapshot encode failed", zap.Error(err))
	} else if err := s.snapshots.Replace(ctx, park.LocationID, data); err != nil {
		log.Error("snapshot persist failed, next cycle re-applies", zap.Error(err))
	}

	log.Info("park reconciled",
		zap.String("status", report.Status()),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report
}

// fail records a booking-level failure. The first auth failure flips the
// cycle into abandoned mode: no further CRM write can succeed until an
// operator re-authorizes, so remaining bookings are failed without being
// attempted.
func (c *cycle) fail(bookingID, op string, err error) {
	c.report.Failed++
	c.report.Errors = append(c.report.Errors, BookingError{BookingID: bookingID, Op: op, Err: err.Error()})
	if c.authErr == nil && ghl.IsAuthError(err) {
		c.authErr = err
		c.report.AuthFailed = true
		c.log.Error("crm auth failed, remaining writes abandoned this cycle", zap.Error(err))
	}
}

func (c *cycle) authAbandoned(bookingID string) bool {
	if c.authErr == nil {
		return false
	}
	c.report.Failed++
	c.report.Errors = append(c.report.Errors, BookingError{BookingID: bookingID, Op: "auth", Err: c.authErr.Error()})
	return true
}

// applyUpsert handles a booking with no snapshot entry. A prior partially
// applied cycle may already have created the opportunity, so it searches by
// canonical name first and demotes the create to an update on a hit. Returns
// whether the booking was applied and belongs in the new snapshot.
func (s *Service) applyUpsert(ctx context.Context, c *cycle, b newbook.Booking) bool {
	name := OpportunityName(b)
	opp, found, err := s.crm.FindOpportunityByName(ctx, c.park.LocationID, c.park.PipelineID, name)
	if err != nil {
		c.fail(b.ID, "search", err)
		return false
	}

	stageID, _ := AssignStage(b.Status, b.Arrival, b.Departure, c.now, c.park.Stages)
	in := opportunityInput(c.park, b, name, stageID)

	if found {
		in.ContactID = opp.ContactID
		if err := s.crm.UpdateOpportunity(ctx, opp.ID, in); err != nil {
			c.fail(b.ID, "update", err)
			return false
		}
		c.report.Updated++
		return true
	}

	in.ContactID = s.contactFor(ctx, c.log, c.park, b)
	if _, err := s.crm.CreateOpportunity(ctx, in); err != nil {
		c.fail(b.ID, "create", err)
		return false
	}
	c.report.Created++
	return true
}

// applyChange updates a booking whose snapshotted fields differ. The record
// is located by the previous canonical name: if guest, site, or arrival
// shifted, this is a rename and the previous name is the only handle on the
// existing record. When neither name finds anything (a partial prior cycle,
// or someone deleted the record in the CRM) it falls back to create.
func (s *Service) applyChange(ctx context.Context, c *cycle, ch change) bool {
	prevName := OpportunityName(ch.prev)
	newName := OpportunityName(ch.cur)

	opp, found, err := s.crm.FindOpportunityByName(ctx, c.park.LocationID, c.park.PipelineID, prevName)
	if err != nil {
		c.fail(ch.cur.ID, "search", err)
		return false
	}
	if !found && newName != prevName {
		// The rename may already have been applied in a partial prior cycle.
		opp, found, err = s.crm.FindOpportunityByName(ctx, c.park.LocationID, c.park.PipelineID, newName)
		if err != nil {
			c.fail(ch.cur.ID, "search", err)
			return false
		}
	}

	stageID, _ := AssignStage(ch.cur.Status, ch.cur.Arrival, ch.cur.Departure, c.now, c.park.Stages)
	in := opportunityInput(c.park, ch.cur, newName, stageID)

	if found {
		in.ContactID = opp.ContactID
		if err := s.crm.UpdateOpportunity(ctx, opp.ID, in); err != nil {
			c.fail(ch.cur.ID, "update", err)
			return false
		}
		c.report.Updated++
		return true
	}

	in.ContactID = s.contactFor(ctx, c.log, c.park, ch.cur)
	if _, err := s.crm.CreateOpportunity(ctx, in); err != nil {
		c.fail(ch.cur.ID, "create", err)
		return false
	}
	c.report.Created++
	return true
}

// applyRemoval deletes the opportunity for a booking that vanished upstream
// or was cancelled. The record is located by the last-known canonical name;
// already-gone is an idempotent no-op. Returns whether the removal completed.
func (s *Service) applyRemoval(ctx context.Context, c *cycle, p newbook.Booking) bool {
	name := OpportunityName(p)
	opp, found, err := s.crm.FindOpportunityByName(ctx, c.park.LocationID, c.park.PipelineID, name)
	if err != nil {
		c.fail(p.ID, "search", err)
		return false
	}
	if !found {
		return true
	}

	if err := s.crm.DeleteOpportunity(ctx, opp.ID); err != nil {
		// A 404 means someone beat us to it; the record is gone either way,
		// but nothing was deleted here so it does not count as a mutation.
		if isGone(err) {
			return true
		}
		c.fail(p.ID, "delete", err)
		return false
	}
	c.report.Deleted++
	return true
}

// contactFor upserts the CRM contact for the guest. Contact linkage is best
// effort: on failure the opportunity is created without a contact reference
// rather than losing the booking.
func (s *Service) contactFor(ctx context.Context, log *zap.Logger, park parks.Config, b newbook.Booking) string {
	id, err := s.crm.UpsertContact(ctx, park.LocationID, b.GuestFirst, b.GuestLast)
	if err != nil {
		log.Warn("contact upsert failed, creating opportunity without contact",
			zap.String("booking_id", b.ID), zap.Error(err))
		return ""
	}
	return id
}

func (s *Service) loadSnapshot(ctx context.Context, locationID string) (snapshot, error) {
	data, err := s.snapshots.Get(ctx, locationID)
	if errors.Is(err, persistence.ErrNotFound) {
		return snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

func opportunityInput(park parks.Config, b newbook.Booking, name, stageID string) ghl.OpportunityInput {
	return ghl.OpportunityInput{
		LocationID:    park.LocationID,
		PipelineID:    park.PipelineID,
		StageID:       stageID,
		Name:          name,
		Status:        "open",
		MonetaryValue: b.MonetaryValue,
	}
}

func isGone(err error) bool {
	var ue *ghl.UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound
}
