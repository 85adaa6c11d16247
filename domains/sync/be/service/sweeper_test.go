package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	parks "github.com/parklogic/parksync/domains/parks/be/service"
	"github.com/parklogic/parksync/platform/go/newbook"
)

// perParkSource routes fetches by API token so each park can succeed, fail,
// or hang independently.
type perParkSource struct {
	bookings map[string][]newbook.Booking
	failing  map[string]error
	hanging  map[string]bool
}

func (s *perParkSource) Bookings(ctx context.Context, creds newbook.Credentials, from, to time.Time) ([]newbook.Booking, error) {
	if s.hanging[creds.APIToken] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := s.failing[creds.APIToken]; err != nil {
		return nil, err
	}
	return s.bookings[creds.APIToken], nil
}

type staticLister struct {
	parks []parks.Config
	err   error
}

func (l *staticLister) ListActive(ctx context.Context) ([]parks.Config, error) {
	return l.parks, l.err
}

func namedPark(locationID, token string) parks.Config {
	p := testPark()
	p.LocationID = locationID
	p.Newbook.APIToken = token
	return p
}

func TestSweepParkIsolation(t *testing.T) {
	source := &perParkSource{
		bookings: map[string][]newbook.Booking{
			"token-a": {testBooking("1")},
			"token-b": {testBooking("2")},
		},
		failing: map[string]error{"token-a": errors.New("pms down")},
	}
	crm := newFakeCRM()
	snaps := newFakeSnapshots()
	svc := New(Config{
		Source:    source,
		CRM:       crm,
		Snapshots: snaps,
		Now:       func() time.Time { return day("2026-01-10 09:00:00") },
	})
	lister := &staticLister{parks: []parks.Config{
		namedPark("loc-a", "token-a"),
		namedPark("loc-b", "token-b"),
	}}
	sweeper := NewSweeper(svc, lister, SweeperConfig{}, nil)

	report := sweeper.Sweep(context.Background())
	require.NotEmpty(t, report.SweepID)
	require.Len(t, report.Parks, 2)

	byLocation := map[string]ParkReport{}
	for _, p := range report.Parks {
		byLocation[p.LocationID] = p
	}
	require.True(t, byLocation["loc-a"].FetchFailed)
	require.False(t, byLocation["loc-b"].FetchFailed)
	require.Equal(t, 1, byLocation["loc-b"].Created)
}

func TestSweepParkTimeout(t *testing.T) {
	source := &perParkSource{
		bookings: map[string][]newbook.Booking{"token-fast": {testBooking("1")}},
		hanging:  map[string]bool{"token-slow": true},
	}
	crm := newFakeCRM()
	svc := New(Config{
		Source:    source,
		CRM:       crm,
		Snapshots: newFakeSnapshots(),
		Now:       func() time.Time { return day("2026-01-10 09:00:00") },
	})
	lister := &staticLister{parks: []parks.Config{
		namedPark("loc-slow", "token-slow"),
		namedPark("loc-fast", "token-fast"),
	}}
	sweeper := NewSweeper(svc, lister, SweeperConfig{ParkTimeout: 50 * time.Millisecond}, nil)

	done := make(chan SweepReport, 1)
	go func() { done <- sweeper.Sweep(context.Background()) }()

	var report SweepReport
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not finish despite the per-park timeout")
	}

	byLocation := map[string]ParkReport{}
	for _, p := range report.Parks {
		byLocation[p.LocationID] = p
	}
	// The slow park is cut off and reported failed; the other park still
	// completes its cycle.
	require.True(t, byLocation["loc-slow"].FetchFailed)
	require.Equal(t, StatusFailed, byLocation["loc-slow"].Status())
	require.Equal(t, 1, byLocation["loc-fast"].Created)
	require.Equal(t, StatusSuccess, byLocation["loc-fast"].Status())
}

func TestSweepListFailure(t *testing.T) {
	svc := New(Config{
		Source:    &perParkSource{},
		CRM:       newFakeCRM(),
		Snapshots: newFakeSnapshots(),
	})
	sweeper := NewSweeper(svc, &staticLister{err: errors.New("db down")}, SweeperConfig{}, nil)

	report := sweeper.Sweep(context.Background())
	require.Empty(t, report.Parks)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	source := &perParkSource{}
	svc := New(Config{
		Source:    source,
		CRM:       newFakeCRM(),
		Snapshots: newFakeSnapshots(),
	})
	sweeper := NewSweeper(svc, &staticLister{}, SweeperConfig{Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
