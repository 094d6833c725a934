package scrape

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
)

// BrowserScraper renders the listing page in headless Chrome before parsing,
// for pages that only hydrate their structured data client-side.
type BrowserScraper struct {
	opts    []chromedp.ExecAllocatorOption
	timeout time.Duration
	settle  time.Duration
}

// NewBrowserScraper creates a BrowserScraper. chromePath may be empty to use
// the browser found on PATH.
func NewBrowserScraper(chromePath, userAgent string, timeout time.Duration) *BrowserScraper {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserScraper{opts: opts, timeout: timeout, settle: 3 * time.Second}
}

func (b *BrowserScraper) Name() string { return "browser" }

func (b *BrowserScraper) Supports(url string) bool { return model.IsSupportedListing(url) }

// Scrape navigates to targetURL, waits for the page to settle and parses the
// rendered document.
func (b *BrowserScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, eris.Wrap(err, "browser: render page")
	}

	if blocked, blockType := DetectBlock(&http.Response{StatusCode: http.StatusOK}, []byte(html)); blocked {
		return nil, eris.Errorf("browser: blocked (%s)", blockType)
	}

	lc, err := ParseListingHTML(targetURL, strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Result{Listing: lc, Source: b.Name()}, nil
}
