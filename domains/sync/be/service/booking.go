package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parklogic/parksync/platform/go/newbook"
)

// OpportunityName derives the canonical CRM record name for a booking:
// "<firstname> <lastname> - <site> - <arrival date>". The name is the sole
// identity link between the PMS and the CRM, so any change to its inputs is
// effectively a rename.
func OpportunityName(b newbook.Booking) string {
	guest := strings.TrimSpace(b.GuestFirst + " " + b.GuestLast)
	return fmt.Sprintf("%s - %s - %s", guest, b.SiteName, b.Arrival.Format("2006-01-02"))
}

// NormalizeStatus folds the PMS status field into the recognized vocabulary.
// No-shows are treated as cancellations.
func NormalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "no_show" || s == "no show" {
		return "cancelled"
	}
	return s
}

func isCancelled(status string) bool {
	return NormalizeStatus(status) == "cancelled"
}

// bookingChanged reports whether a booking differs materially from its
// snapshotted predecessor: status, site, date range, or guest name.
func bookingChanged(prev, cur newbook.Booking) bool {
	return NormalizeStatus(prev.Status) != NormalizeStatus(cur.Status) ||
		prev.SiteName != cur.SiteName ||
		!prev.Arrival.Equal(cur.Arrival) ||
		!prev.Departure.Equal(cur.Departure) ||
		prev.GuestFirst != cur.GuestFirst ||
		prev.GuestLast != cur.GuestLast
}

// snapshot is the persisted per-park prior state, keyed by booking id.
type snapshot map[string]newbook.Booking

func decodeSnapshot(data []byte) (snapshot, error) {
	if len(data) == 0 {
		return snapshot{}, nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap == nil {
		snap = snapshot{}
	}
	return snap, nil
}

func encodeSnapshot(snap snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}
