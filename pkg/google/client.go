package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// Client performs Google Maps Places and Distance Matrix lookups.
type Client interface {
	// NearestPlace returns the closest place of the given type, or nil when
	// none is found.
	NearestPlace(ctx context.Context, lat, lng float64, placeType string) (*Place, error)
	// WalkingSeconds returns the walking duration to a place, or 0 when the
	// route is unknown.
	WalkingSeconds(ctx context.Context, lat, lng float64, placeID string) (int, error)
}

// Place represents a place returned by Nearby Search.
type Place struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Types    []string `json:"types"`
}

// StatusError is a non-200 HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Maps client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type nearbyResponse struct {
	Status  string  `json:"status"`
	Results []Place `json:"results"`
}

func latLng(lat, lng float64) string {
	return fmt.Sprintf("%g,%g", lat, lng)
}

func (c *httpClient) NearestPlace(ctx context.Context, lat, lng float64, placeType string) (*Place, error) {
	q := url.Values{}
	q.Set("location", latLng(lat, lng))
	q.Set("rankby", "distance")
	q.Set("type", placeType)
	q.Set("key", c.apiKey)

	var resp nearbyResponse
	if err := c.get(ctx, "/place/nearbysearch/json", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (c *httpClient) WalkingSeconds(ctx context.Context, lat, lng float64, placeID string) (int, error) {
	q := url.Values{}
	q.Set("origins", latLng(lat, lng))
	q.Set("destinations", "place_id:"+placeID)
	q.Set("mode", "walking")
	q.Set("key", c.apiKey)

	var resp matrixResponse
	if err := c.get(ctx, "/distancematrix/json", q, &resp); err != nil {
		return 0, err
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, nil
	}
	return resp.Rows[0].Elements[0].Duration.Value, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
