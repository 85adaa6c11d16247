package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parklogic/parksync/platform/go/newbook"
)

func testBooking(id string) newbook.Booking {
	return newbook.Booking{
		ID:            id,
		GuestFirst:    "John",
		GuestLast:     "Doe",
		SiteName:      "Chalet 3",
		Arrival:       day("2026-01-13 14:00:00"),
		Departure:     day("2026-01-15 10:00:00"),
		Status:        "confirmed",
		MonetaryValue: 420.50,
	}
}

func TestOpportunityName(t *testing.T) {
	require.Equal(t, "John Doe - Chalet 3 - 2026-01-13", OpportunityName(testBooking("1")))

	// Single-name guests collapse the double space.
	b := testBooking("2")
	b.GuestLast = ""
	require.Equal(t, "John - Chalet 3 - 2026-01-13", OpportunityName(b))
}

func TestNormalizeStatus(t *testing.T) {
	require.Equal(t, "cancelled", NormalizeStatus("no_show"))
	require.Equal(t, "cancelled", NormalizeStatus("No Show"))
	require.Equal(t, "cancelled", NormalizeStatus(" Cancelled "))
	require.Equal(t, "confirmed", NormalizeStatus("Confirmed"))
}

func TestBookingChanged(t *testing.T) {
	base := testBooking("1")

	require.False(t, bookingChanged(base, base))

	// Status case changes are not material.
	upper := base
	upper.Status = "CONFIRMED"
	require.False(t, bookingChanged(base, upper))

	moved := base
	moved.Arrival = base.Arrival.Add(24 * time.Hour)
	require.True(t, bookingChanged(base, moved))

	resited := base
	resited.SiteName = "Chalet 4"
	require.True(t, bookingChanged(base, resited))

	renamed := base
	renamed.GuestLast = "Smith"
	require.True(t, bookingChanged(base, renamed))

	arrived := base
	arrived.Status = "arrived"
	require.True(t, bookingChanged(base, arrived))
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := snapshot{"1": testBooking("1"), "2": testBooking("2")}

	data, err := encodeSnapshot(snap)
	require.NoError(t, err)

	decoded, err := decodeSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, snap["1"].ID, decoded["1"].ID)
	require.True(t, snap["1"].Arrival.Equal(decoded["1"].Arrival))
	require.Len(t, decoded, 2)

	empty, err := decodeSnapshot(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
