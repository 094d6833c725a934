// Package apify runs Apify actors synchronously and returns their dataset items.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	// DefaultActor scrapes a single Zillow listing page.
	DefaultActor = "maxcopell~zillow-scraper"
)

// Client defines the Apify operations used for listing scrapes.
type Client interface {
	// ScrapeListing runs the listing actor against one URL and returns the
	// first dataset item, or nil when the actor produced none.
	ScrapeListing(ctx context.Context, listingURL string) (*ListingItem, error)
}

// ListingItem is one dataset item from the Zillow actor.
type ListingItem struct {
	Zpid          FlexString `json:"zpid"`
	StreetAddress string     `json:"streetAddress"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	Zipcode       string     `json:"zipcode"`
	Price         *float64   `json:"price"`
	Bedrooms      *int       `json:"bedrooms"`
	Bathrooms     *float64   `json:"bathrooms"`
	LivingArea    *int       `json:"livingArea"`
	YearBuilt     *int       `json:"yearBuilt"`
	HomeType      string     `json:"homeType"`
	Description   string     `json:"description"`
	Photos        []Photo    `json:"photos"`
}

// Photo is a listing photo reference.
type Photo struct {
	URL string `json:"url"`
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return eris.Wrap(err, "apify: decode flexible string")
	}
	*f = FlexString(n.String())
	return nil
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithActor overrides the listing actor id.
func WithActor(actor string) Option {
	return func(c *httpClient) {
		if actor != "" {
			c.actor = actor
		}
	}
}

// WithRunTimeout sets the actor-side run timeout.
func WithRunTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.runTimeout = d
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token      string
	baseURL    string
	actor      string
	runTimeout time.Duration
	http       *http.Client
}

// NewClient creates a new Apify client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:      token,
		baseURL:    defaultBaseURL,
		actor:      DefaultActor,
		runTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		// Leave headroom over the actor timeout for dataset transfer.
		c.http = &http.Client{Timeout: c.runTimeout + 15*time.Second}
	}
	return c
}

type startURL struct {
	URL string `json:"url"`
}

type runInput struct {
	StartURLs []startURL `json:"startUrls"`
	MaxItems  int        `json:"maxItems"`
}

func (c *httpClient) ScrapeListing(ctx context.Context, listingURL string) (*ListingItem, error) {
	var items []ListingItem
	input := runInput{StartURLs: []startURL{{URL: listingURL}}, MaxItems: 1}
	if err := c.runSync(ctx, input, &items); err != nil {
		return nil, eris.Wrap(err, "apify: scrape listing")
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (c *httpClient) runSync(ctx context.Context, input any, out any) error {
	buf, err := json.Marshal(input)
	if err != nil {
		return eris.Wrap(err, "marshal input")
	}

	q := url.Values{}
	q.Set("token", c.token)
	q.Set("timeout", strconv.Itoa(int(c.runTimeout.Seconds())))
	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?%s", c.baseURL, c.actor, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode dataset items")
	}
	return nil
}
