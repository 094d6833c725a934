package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
)

const maxPageBytes = 2 << 20

// HTMLScraper fetches the listing page over plain HTTP and parses its
// structured data. Free, but listing sites often answer with a bot wall.
type HTMLScraper struct {
	client    *http.Client
	userAgent string
}

// NewHTMLScraper creates an HTMLScraper.
func NewHTMLScraper(userAgent string, timeout time.Duration) *HTMLScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTMLScraper{
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (h *HTMLScraper) Name() string { return "html" }

func (h *HTMLScraper) Supports(url string) bool { return model.IsSupportedListing(url) }

// Scrape fetches and parses targetURL.
func (h *HTMLScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "html: create request")
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "html: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, eris.Wrap(err, "html: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("html: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("html: status %d", resp.StatusCode)
	}

	lc, err := ParseListingHTML(targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Result{Listing: lc, Source: h.Name()}, nil
}
