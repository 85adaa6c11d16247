package service

import (
	"time"

	parks "github.com/parklogic/parksync/domains/parks/be/service"
)

// arrivingSoonWindow is how far ahead a future arrival still counts as
// "arriving soon".
const arrivingSoonWindow = 7 * 24 * time.Hour

// AssignStage classifies a booking into a pipeline stage id. The rules are
// evaluated in priority order with the first match winning; departure dates
// dominate the PMS status text because that field is often stale. The second
// return value is false when no stage applies or when the park has no stage
// id configured for the matched phase; callers then leave the CRM stage
// untouched.
func AssignStage(status string, arrival, departure, now time.Time, stages parks.StageMap) (string, bool) {
	if isCancelled(status) {
		return "", false
	}

	var id string
	switch {
	case !departure.After(now):
		id = stages.Departed
	case sameDay(departure, now):
		id = stages.DepartingToday
	case NormalizeStatus(status) == "arrived":
		id = stages.Arrived
	case sameDay(arrival, now):
		id = stages.ArrivingToday
	case arrival.After(now) && !arrival.After(now.Add(arrivingSoonWindow)):
		id = stages.ArrivingSoon
	default:
		return "", false
	}

	if id == "" {
		return "", false
	}
	return id, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
