package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/scrape"
)

// ProviderNone is reported when no scraper is configured.
const ProviderNone = "none"

// ListingScraper recovers listing fields from a shared URL.
type ListingScraper struct {
	chain *scrape.Chain
}

// NewListingScraper creates a ListingScraper over chain. A nil or empty chain
// disables scraping.
func NewListingScraper(chain *scrape.Chain) *ListingScraper {
	return &ListingScraper{chain: chain}
}

// Scrape returns the scrape result, or nil, and the name of the scraper that
// produced it. When every scraper fails the provider is the first configured
// one, since that is the one attempted.
func (l *ListingScraper) Scrape(ctx context.Context, url string) (*scrape.Result, string) {
	if l == nil || l.chain.Len() == 0 {
		return nil, ProviderNone
	}
	result, err := l.chain.Scrape(ctx, url)
	if err != nil {
		zap.L().Warn("enrich: listing scrape failed", zap.String("url", url), zap.Error(err))
		return nil, l.chain.Names()[0]
	}
	return result, result.Source
}
