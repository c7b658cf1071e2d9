package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrNotFound        = errors.New("Postcode not found")
	ErrLookupFailed    = errors.New("Could not retrieve postcode")
	ErrUnhandledStatus = errors.New("unhandled geocode response status")
)

type Location struct {
	Postcode string  `json:"postcode"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geocode status %d", e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnhandledStatus
}

// Client calls the /geocode endpoint of the postcode service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func (c *Client) Lookup(ctx context.Context, postcode string) (Location, error) {
	base := c.BaseURL
	if base == "" {
		base = "http://localhost:5000"
	}
	u, err := url.Parse(base)
	if err != nil {
		return Location{}, err
	}
	joined, err := url.JoinPath(u.Path, "/geocode")
	if err != nil {
		return Location{}, err
	}
	u.Path = joined
	params := url.Values{}
	params.Set("postcode", postcode)
	u.RawQuery = params.Encode()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Location{}, ErrNotFound
	case http.StatusInternalServerError:
		return Location{}, ErrLookupFailed
	default:
		return Location{}, &StatusError{StatusCode: resp.StatusCode}
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Location{}, fmt.Errorf("decode geocode response: %w", err)
	}
	return loc, nil
}
