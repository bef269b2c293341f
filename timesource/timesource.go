// Package timesource reads the current UTC time from public time APIs so
// archive timestamps do not depend on the host clock.
package timesource

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// DefaultEndpoints are tried in order.
var DefaultEndpoints = []string{
	"http://worldtimeapi.org/api/timezone/Etc/UTC",
	"http://worldclockapi.com/api/json/utc/now",
}

// DefaultTimeout bounds each endpoint request.
const DefaultTimeout = 5 * time.Second

// layouts accepted in API responses. WorldClockAPI omits seconds.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// Source fetches the time from a list of endpoints, falling back to the
// local clock.
type Source struct {
	Endpoints []string
	// Verbose logs which endpoint answered.
	Verbose bool
	client  *http.Client
	local   func() time.Time
}

// New returns a source querying endpoints, or DefaultEndpoints if none are
// given.
func New(endpoints []string) *Source {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &Source{
		Endpoints: endpoints,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		local: time.Now,
	}
}

// Now returns the current UTC time from the first endpoint that answers.
// If every endpoint fails, the local clock is used.
func (s *Source) Now(ctx context.Context) time.Time {
	for _, url := range s.Endpoints {
		t, err := s.fetch(ctx, url)
		if err != nil {
			log.Printf("WARN: Failed to fetch time from %s: %v", url, err)
			continue
		}
		if s.Verbose {
			log.Printf("DEBUG: Got time %s from %s", t.Format(time.RFC3339), url)
		}
		return t
	}

	log.Printf("WARN: Failed to fetch time from online sources. Using system time.")
	return s.local().UTC()
}

// response covers the fields of both supported APIs.
type response struct {
	Datetime        string `json:"datetime"`
	CurrentDateTime string `json:"currentDateTime"`
}

func (s *Source) fetch(ctx context.Context, url string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode response: %w", err)
	}

	raw := body.Datetime
	if raw == "" {
		raw = body.CurrentDateTime
	}
	if raw == "" {
		return time.Time{}, fmt.Errorf("response has no time field")
	}

	return parse(raw)
}

func parse(raw string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", raw)
}
