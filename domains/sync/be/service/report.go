package service

import "time"

// Park cycle outcomes.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// BookingError records one failed booking-level CRM operation.
type BookingError struct {
	BookingID string `json:"booking_id"`
	Op        string `json:"op"`
	Err       string `json:"error"`
}

// ParkReport summarizes one park's reconciliation cycle.
type ParkReport struct {
	LocationID  string         `json:"location_id"`
	ParkName    string         `json:"park_name"`
	Created     int            `json:"created"`
	Updated     int            `json:"updated"`
	Deleted     int            `json:"deleted"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	FetchFailed bool           `json:"fetch_failed,omitempty"`
	AuthFailed  bool           `json:"auth_failed,omitempty"`
	Errors      []BookingError `json:"errors,omitempty"`
}

// Status classifies the cycle for log aggregation.
func (r ParkReport) Status() string {
	switch {
	case r.FetchFailed:
		return StatusFailed
	case r.Failed > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}

// SweepReport aggregates every park cycle of one scheduler tick.
type SweepReport struct {
	SweepID  string        `json:"sweep_id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Parks    []ParkReport  `json:"parks"`
}

// Totals sums the booking-level counters across parks.
func (r SweepReport) Totals() (created, updated, deleted, failed int) {
	for _, p := range r.Parks {
		created += p.Created
		updated += p.Updated
		deleted += p.Deleted
		failed += p.Failed
	}
	return created, updated, deleted, failed
}
