// Package scrape recovers listing details from a shared listing URL.
package scrape

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/rumoo/internal/model"
)

// Result holds a scraped listing with the scraper that produced it.
type Result struct {
	Listing *model.ListingCapture
	Source  string
	Raw     json.RawMessage
}

// OK reports whether the scrape recovered an address.
func (r *Result) OK() bool {
	return r != nil && r.Listing != nil && strings.TrimSpace(r.Listing.Address) != ""
}

// Scraper fetches a single listing URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}

// MaxImages caps the photo URLs kept from a scrape.
const MaxImages = 20

// HumanizeType turns provider enums like SINGLE_FAMILY into "Single Family".
func HumanizeType(s string) string {
	s = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}

// JoinAddress joins the non-empty address parts with ", ".
func JoinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func capImages(urls []string) []string {
	if len(urls) > MaxImages {
		return urls[:MaxImages]
	}
	return urls
}
