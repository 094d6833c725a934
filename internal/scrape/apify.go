package scrape

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/resilience"
	"github.com/sells-group/rumoo/pkg/apify"
)

// ApifyScraper runs the Apify listing actor.
type ApifyScraper struct {
	client apify.Client
	guard  *resilience.Guard
}

// NewApifyScraper creates an ApifyScraper. guard may be nil.
func NewApifyScraper(client apify.Client, guard *resilience.Guard) *ApifyScraper {
	return &ApifyScraper{client: client, guard: guard}
}

func (a *ApifyScraper) Name() string { return "apify" }

func (a *ApifyScraper) Supports(url string) bool { return model.IsSupportedListing(url) }

// Scrape runs the actor. An empty dataset yields a result without a listing
// so the raw source URL is still recorded.
func (a *ApifyScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	item, err := resilience.Call(ctx, a.guard, func(ctx context.Context) (*apify.ListingItem, error) {
		return a.client.ScrapeListing(ctx, targetURL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "apify: run actor")
	}
	if item == nil {
		return &Result{Source: a.Name()}, nil
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return nil, eris.Wrap(err, "apify: encode item")
	}
	return &Result{Listing: ListingFromApify(targetURL, item), Source: a.Name(), Raw: raw}, nil
}

// ListingFromApify maps an actor dataset item onto a listing capture.
func ListingFromApify(sourceURL string, item *apify.ListingItem) *model.ListingCapture {
	lc := &model.ListingCapture{
		SourceURL:    sourceURL,
		ExternalID:   string(item.Zpid),
		Address:      JoinAddress(item.StreetAddress, item.City, item.State, item.Zipcode),
		Price:        item.Price,
		Beds:         item.Bedrooms,
		Baths:        item.Bathrooms,
		Sqft:         item.LivingArea,
		YearBuilt:    item.YearBuilt,
		PropertyType: HumanizeType(item.HomeType),
		Description:  strings.TrimSpace(item.Description),
	}
	if item.StreetAddress != "" {
		lc.Title = strings.Join([]string{item.StreetAddress, item.City, item.State}, ", ")
	}
	for _, p := range item.Photos {
		if p.URL != "" {
			lc.ImageURLs = append(lc.ImageURLs, p.URL)
		}
	}
	lc.ImageURLs = capImages(lc.ImageURLs)
	return lc
}
