package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	parksrepo "github.com/parklogic/parksync/domains/parks/be/repo"
	parksservice "github.com/parklogic/parksync/domains/parks/be/service"
	"github.com/parklogic/parksync/domains/sync/be/service"
	"github.com/parklogic/parksync/platform/go/ghl"
	"github.com/parklogic/parksync/platform/go/newbook"
	"github.com/parklogic/parksync/platform/go/persistence"
)

type nopSource struct{}

func (nopSource) Bookings(ctx context.Context, creds newbook.Credentials, from, to time.Time) ([]newbook.Booking, error) {
	return nil, nil
}

type nopCRM struct{}

func (nopCRM) FindOpportunityByName(ctx context.Context, locationID, pipelineID, name string) (ghl.Opportunity, bool, error) {
	return ghl.Opportunity{}, false, nil
}
func (nopCRM) CreateOpportunity(ctx context.Context, in ghl.OpportunityInput) (ghl.Opportunity, error) {
	return ghl.Opportunity{}, nil
}
func (nopCRM) UpdateOpportunity(ctx context.Context, opportunityID string, in ghl.OpportunityInput) error {
	return nil
}
func (nopCRM) DeleteOpportunity(ctx context.Context, opportunityID string) error { return nil }
func (nopCRM) UpsertContact(ctx context.Context, locationID, firstName, lastName string) (string, error) {
	return "", nil
}

type nopSnapshots struct{}

func (nopSnapshots) Get(ctx context.Context, locationID string) ([]byte, error) {
	return nil, persistence.ErrNotFound
}
func (nopSnapshots) Replace(ctx context.Context, locationID string, data []byte) error { return nil }

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("db down") }

func newTestHandler(t *testing.T, db Pinger) (*Handler, *parksservice.Service) {
	t.Helper()
	parks := parksservice.New(parksrepo.NewMemoryRepository())
	svc := service.New(service.Config{
		Source:    nopSource{},
		CRM:       nopCRM{},
		Snapshots: nopSnapshots{},
	})
	sweeper := service.NewSweeper(svc, parks, service.SweeperConfig{}, nil)
	return New(sweeper, parks, db, "secret", zap.NewNop()), parks
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzFailsWhenDBDown(t *testing.T) {
	h, _ := newTestHandler(t, failingPinger{})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSweepRequiresAPIKey(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sweeps", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sweeps", nil)
	req.Header.Set("X-Api-Key", "wrong")
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSweepReturnsReport(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sweeps", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report service.SweepReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.NotEmpty(t, report.SweepID)
}

func TestParkSweepUnknownPark(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/parks/nope/sweep", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParkSweepKnownPark(t *testing.T) {
	h, parks := newTestHandler(t, nil)

	_, err := parks.Create(context.Background(), parksservice.CreateInput{
		LocationID: "loc-1",
		ParkName:   "Sunset Pines",
		Newbook:    parksservice.NewbookCredentials{APIToken: "t", APIKey: "k", Region: "au"},
		PipelineID: "pipe-1",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/parks/loc-1/sweep", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report service.ParkReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, "loc-1", report.LocationID)
}
