package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	parks "github.com/parklogic/parksync/domains/parks/be/service"
)

var testStages = parks.StageMap{
	ArrivingSoon:   "stage-soon",
	ArrivingToday:  "stage-today",
	Arrived:        "stage-arrived",
	DepartingToday: "stage-departing",
	Departed:       "stage-departed",
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAssignStageArrivingSoon(t *testing.T) {
	// Confirmed booking arriving in three days.
	id, ok := AssignStage("confirmed", day("2026-01-13 14:00:00"), day("2026-01-15 10:00:00"), day("2026-01-10 09:00:00"), testStages)
	require.True(t, ok)
	require.Equal(t, "stage-soon", id)
}

func TestAssignStageDepartingTodayBeatsStaleStatus(t *testing.T) {
	// Status still "confirmed" on departure day; the date wins.
	id, ok := AssignStage("confirmed", day("2026-01-13 14:00:00"), day("2026-01-15 10:00:00"), day("2026-01-15 08:00:00"), testStages)
	require.True(t, ok)
	require.Equal(t, "stage-departing", id)
}

func TestAssignStageDepartureDominatesStatus(t *testing.T) {
	// Past departure always resolves to departed, whatever the status says.
	for _, status := range []string{"confirmed", "arrived", "placed", "departed", "garbage"} {
		id, ok := AssignStage(status, day("2026-01-13 14:00:00"), day("2026-01-15 10:00:00"), day("2026-01-16 08:00:00"), testStages)
		require.True(t, ok, status)
		require.Equal(t, "stage-departed", id, status)
	}
}

func TestAssignStageArrived(t *testing.T) {
	id, ok := AssignStage("Arrived", day("2026-01-13 14:00:00"), day("2026-01-17 10:00:00"), day("2026-01-14 12:00:00"), testStages)
	require.True(t, ok)
	require.Equal(t, "stage-arrived", id)
}

func TestAssignStageArrivingToday(t *testing.T) {
	id, ok := AssignStage("confirmed", day("2026-01-13 14:00:00"), day("2026-01-17 10:00:00"), day("2026-01-13 08:00:00"), testStages)
	require.True(t, ok)
	require.Equal(t, "stage-today", id)
}

func TestAssignStageCancelled(t *testing.T) {
	for _, status := range []string{"cancelled", "Cancelled", "no_show", "No Show"} {
		_, ok := AssignStage(status, day("2026-01-13 14:00:00"), day("2026-01-15 10:00:00"), day("2026-01-10 09:00:00"), testStages)
		require.False(t, ok, status)
	}
}

func TestAssignStageTooFarOut(t *testing.T) {
	// Arrival beyond the seven day horizon.
	_, ok := AssignStage("confirmed", day("2026-02-01 14:00:00"), day("2026-02-05 10:00:00"), day("2026-01-10 09:00:00"), testStages)
	require.False(t, ok)
}

func TestAssignStageMissingMapping(t *testing.T) {
	// Matched phase with no configured stage id leaves the CRM untouched.
	partial := parks.StageMap{ArrivingSoon: "stage-soon"}
	_, ok := AssignStage("confirmed", day("2026-01-13 14:00:00"), day("2026-01-15 10:00:00"), day("2026-01-15 08:00:00"), partial)
	require.False(t, ok)
}
