// Package ghl is a client for the subset of the GoHighLevel (LeadConnector)
// API the sync engine needs: opportunity search/create/update/delete, contact
// upsert, and the OAuth token lifecycle backing them.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiVersion is the Version header GHL requires on every call.
const apiVersion = "2021-07-28"

// TokenSource supplies a valid bearer token for each call.
// Implemented by TokenManager.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Opportunity is a CRM pipeline record as returned by the API.
type Opportunity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StageID   string `json:"pipelineStageId"`
	ContactID string `json:"contactId"`
}

// OpportunityInput carries the writable fields of an opportunity. An empty
// StageID leaves the CRM stage untouched on update and lets the CRM pick its
// pipeline default on create.
type OpportunityInput struct {
	LocationID    string
	PipelineID    string
	StageID       string
	Name          string
	ContactID     string
	Status        string
	MonetaryValue float64
}

// Client talks to the GHL REST API with tokens from a TokenSource.
type Client struct {
	baseURL string
	tokens  TokenSource
	httpc   *http.Client
}

// NewClient constructs a Client for the given API base URL.
func NewClient(baseURL string, tokens TokenSource, httpc *http.Client) *Client {
	if tokens == nil {
		panic("token source is required")
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens, httpc: httpc}
}

// FindOpportunityByName searches the pipeline for an opportunity with the
// exact name. The search endpoint matches loosely, so results are filtered to
// an exact (case-insensitive, trimmed) name match client-side.
func (c *Client) FindOpportunityByName(ctx context.Context, locationID, pipelineID, name string) (Opportunity, bool, error) {
	q := url.Values{
		"location_id": {locationID},
		"pipeline_id": {pipelineID},
		"q":           {name},
		"limit":       {"20"},
	}

	var decoded struct {
		Opportunities []Opportunity `json:"opportunities"`
	}
	if err := c.call(ctx, http.MethodGet, "/opportunities/search?"+q.Encode(), nil, &decoded); err != nil {
		return Opportunity{}, false, err
	}

	want := strings.ToLower(strings.TrimSpace(name))
	for _, opp := range decoded.Opportunities {
		if strings.ToLower(strings.TrimSpace(opp.Name)) == want {
			return opp, true, nil
		}
	}
	return Opportunity{}, false, nil
}

// CreateOpportunity creates a pipeline record and returns it.
func (c *Client) CreateOpportunity(ctx context.Context, in OpportunityInput) (Opportunity, error) {
	body := opportunityPayload(in)

	var decoded struct {
		Opportunity Opportunity `json:"opportunity"`
	}
	if err := c.call(ctx, http.MethodPost, "/opportunities/", body, &decoded); err != nil {
		return Opportunity{}, err
	}
	return decoded.Opportunity, nil
}

// UpdateOpportunity overwrites the writable fields of an existing record.
func (c *Client) UpdateOpportunity(ctx context.Context, opportunityID string, in OpportunityInput) error {
	body := opportunityPayload(in)
	delete(body, "locationId") // immutable after create; the API rejects it on PUT
	return c.call(ctx, http.MethodPut, "/opportunities/"+url.PathEscape(opportunityID), body, nil)
}

// DeleteOpportunity removes a pipeline record. Deleting an id that no longer
// exists returns an UpstreamError with StatusCode 404; callers treat that as
// already-gone.
func (c *Client) DeleteOpportunity(ctx context.Context, opportunityID string) error {
	return c.call(ctx, http.MethodDelete, "/opportunities/"+url.PathEscape(opportunityID), nil, nil)
}

// UpsertContact creates or finds the contact for a guest and returns its id.
func (c *Client) UpsertContact(ctx context.Context, locationID, firstName, lastName string) (string, error) {
	body := map[string]any{
		"locationId": locationID,
		"firstName":  firstName,
		"lastName":   lastName,
	}

	var decoded struct {
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	if err := c.call(ctx, http.MethodPost, "/contacts/upsert", body, &decoded); err != nil {
		return "", err
	}
	return decoded.Contact.ID, nil
}

func opportunityPayload(in OpportunityInput) map[string]any {
	body := map[string]any{
		"locationId":    in.LocationID,
		"pipelineId":    in.PipelineID,
		"name":          in.Name,
		"monetaryValue": in.MonetaryValue,
	}
	if in.StageID != "" {
		body["pipelineStageId"] = in.StageID
	}
	if in.ContactID != "" {
		body["contactId"] = in.ContactID
	}
	if in.Status != "" {
		body["status"] = in.Status
	}
	return body
}

func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	op := method + " " + path

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &UpstreamError{Op: op, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &AuthError{Op: op, Detail: strings.TrimSpace(string(detail))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
