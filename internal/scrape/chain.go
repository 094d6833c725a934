package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries scrapers in priority order, returning the first result with an
// address. A result without one is kept as a fallback while later scrapers
// get their turn.
type Chain struct {
	scrapers []Scraper
}

// NewChain creates a Chain. Scrapers are tried in order.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// Len returns the number of configured scrapers.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.scrapers)
}

// Names lists the configured scrapers in order.
func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.scrapers))
	for i, s := range c.scrapers {
		names[i] = s.Name()
	}
	return names
}

// Scrape tries each supporting scraper for targetURL.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var (
		partial *Result
		lastErr error
	)
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if result.OK() {
			return result, nil
		}
		if partial == nil && result != nil {
			partial = result
		}
	}

	if partial != nil {
		return partial, nil
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}
