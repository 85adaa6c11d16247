package ghl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) AccessToken(ctx context.Context) (string, error) { return string(s), nil }

func TestFindOpportunityByNameExactMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/opportunities/search", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, apiVersion, r.Header.Get("Version"))
		require.Equal(t, "loc-1", r.URL.Query().Get("location_id"))
		require.Equal(t, "pipe-1", r.URL.Query().Get("pipeline_id"))

		// The search endpoint matches loosely; the client must filter.
		fmt.Fprint(w, `{"opportunities":[
			{"id":"opp-1","name":"John Doe - Chalet 3 - 2026-01-12"},
			{"id":"opp-2","name":"john doe - chalet 3 - 2026-01-13 "},
			{"id":"opp-3","name":"John Doe - Chalet 30 - 2026-01-13"}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	opp, found, err := c.FindOpportunityByName(context.Background(), "loc-1", "pipe-1", "John Doe - Chalet 3 - 2026-01-13")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "opp-2", opp.ID)
}

func TestFindOpportunityByNameNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"opportunities":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	_, found, err := c.FindOpportunityByName(context.Background(), "loc-1", "pipe-1", "nobody")
	require.NoError(t, err)
	require.False(t, found)
}

func TestCreateOpportunityPayload(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/opportunities/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{"opportunity":{"id":"opp-9","name":"x"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	opp, err := c.CreateOpportunity(context.Background(), OpportunityInput{
		LocationID:    "loc-1",
		PipelineID:    "pipe-1",
		StageID:       "stage-1",
		Name:          "John Doe - Chalet 3 - 2026-01-13",
		ContactID:     "contact-1",
		Status:        "open",
		MonetaryValue: 420.5,
	})
	require.NoError(t, err)
	require.Equal(t, "opp-9", opp.ID)

	require.Equal(t, "loc-1", payload["locationId"])
	require.Equal(t, "stage-1", payload["pipelineStageId"])
	require.Equal(t, "contact-1", payload["contactId"])
	require.Equal(t, "open", payload["status"])
}

func TestUpdateOpportunityOmitsImmutableFields(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/opportunities/opp-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	err := c.UpdateOpportunity(context.Background(), "opp-1", OpportunityInput{
		LocationID: "loc-1",
		PipelineID: "pipe-1",
		Name:       "renamed",
	})
	require.NoError(t, err)
	require.NotContains(t, payload, "locationId")
	// Empty stage id must not clear the CRM stage.
	require.NotContains(t, payload, "pipelineStageId")
}

func TestCallMapsAuthErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"token expired"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	_, _, err := c.FindOpportunityByName(context.Background(), "loc-1", "pipe-1", "x")
	require.True(t, IsAuthError(err))
}

func TestDeleteOpportunityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), nil)
	err := c.DeleteOpportunity(context.Background(), "opp-gone")

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, http.StatusNotFound, ue.StatusCode)
}
