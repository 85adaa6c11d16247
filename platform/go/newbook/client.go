// Package newbook is a minimal client for the Newbook PMS REST API, covering
// the bookings_list call the sync engine polls. Credentials are per park: the
// API token forms the Basic auth pair and the api_key/region travel in the
// request body.
package newbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Credentials identifies one park's Newbook instance.
type Credentials struct {
	APIToken string
	APIKey   string
	Region   string
}

// Booking is one guest stay as reported by the PMS. The PMS owns this data;
// the sync engine only ever holds the latest poll plus the prior snapshot.
type Booking struct {
	ID            string    `json:"booking_id"`
	GuestFirst    string    `json:"guest_firstname"`
	GuestLast     string    `json:"guest_lastname"`
	SiteName      string    `json:"site_name"`
	Arrival       time.Time `json:"arrival"`
	Departure     time.Time `json:"departure"`
	Status        string    `json:"booking_status"`
	MonetaryValue float64   `json:"booking_total"`
}

// UpstreamError reports a failed PMS call.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("newbook %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("newbook %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client talks to one Newbook API host on behalf of many parks.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient constructs a Client for the given API base URL.
func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpc: httpc}
}

type bookingsListRequest struct {
	Region     string `json:"region"`
	APIKey     string `json:"api_key"`
	PeriodFrom string `json:"period_from"`
	PeriodTo   string `json:"period_to"`
	ListType   string `json:"list_type"`
}

type bookingsListResponse struct {
	Success string       `json:"success"`
	Message string       `json:"message"`
	Data    []bookingRow `json:"data"`
}

type bookingRow struct {
	BookingID     json.Number `json:"booking_id"`
	SiteName      string      `json:"site_name"`
	Arrival       string      `json:"booking_arrival"`
	Departure     string      `json:"booking_departure"`
	Status        string      `json:"booking_status"`
	Total         json.Number `json:"booking_total"`
	Guests        []guestRow  `json:"guests"`
}

type guestRow struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// Bookings fetches the booking list for the date window. Rows without a
// parseable arrival or departure are skipped rather than failing the poll.
func (c *Client) Bookings(ctx context.Context, creds Credentials, from, to time.Time) ([]Booking, error) {
	payload := bookingsListRequest{
		Region:     creds.Region,
		APIKey:     creds.APIKey,
		PeriodFrom: from.Format(timeLayout),
		PeriodTo:   to.Format(timeLayout),
		ListType:   "all",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &UpstreamError{Op: "bookings_list", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings_list", bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Op: "bookings_list", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.APIToken, creds.APIToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "bookings_list", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Op: "bookings_list", StatusCode: resp.StatusCode}
	}

	var decoded bookingsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &UpstreamError{Op: "bookings_list", Err: fmt.Errorf("decode response: %w", err)}
	}

	// Newbook signals auth and validation failures as HTTP 200 with
	// success:"false" and an empty data array.
	if decoded.Success != "true" {
		return nil, &UpstreamError{Op: "bookings_list", Err: fmt.Errorf("unsuccessful response: %s", decoded.Message)}
	}

	bookings := make([]Booking, 0, len(decoded.Data))
	for _, row := range decoded.Data {
		b, ok := row.toBooking()
		if !ok {
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r bookingRow) toBooking() (Booking, bool) {
	arrival, err := time.Parse(timeLayout, r.Arrival)
	if err != nil {
		return Booking{}, false
	}
	departure, err := time.Parse(timeLayout, r.Departure)
	if err != nil {
		return Booking{}, false
	}

	b := Booking{
		ID:        r.BookingID.String(),
		SiteName:  strings.TrimSpace(r.SiteName),
		Arrival:   arrival,
		Departure: departure,
		Status:    r.Status,
	}
	if b.ID == "" {
		return Booking{}, false
	}
	if total, err := r.Total.Float64(); err == nil {
		b.MonetaryValue = total
	}
	if len(r.Guests) > 0 {
		b.GuestFirst = strings.TrimSpace(r.Guests[0].Firstname)
		b.GuestLast = strings.TrimSpace(r.Guests[0].Lastname)
	}
	return b, true
}
