package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Provider is the listing site a source URL belongs to.
type Provider string

const (
	ProviderZillow  Provider = "zillow"
	ProviderRedfin  Provider = "redfin"
	ProviderRealtor Provider = "realtor"
	ProviderManual  Provider = "manual"
)

// DetectProvider classifies a URL by host substring.
func DetectProvider(rawURL string) Provider {
	switch {
	case strings.Contains(rawURL, "zillow.com"):
		return ProviderZillow
	case strings.Contains(rawURL, "redfin.com"):
		return ProviderRedfin
	case strings.Contains(rawURL, "realtor.com"):
		return ProviderRealtor
	default:
		return ProviderManual
	}
}

// IsSupportedListing reports whether a URL points at a supported listing site.
func IsSupportedListing(rawURL string) bool {
	return DetectProvider(rawURL) != ProviderManual
}

// IngestMode is how a listing entered the system.
type IngestMode string

const (
	IngestModeFullCapture IngestMode = "full_capture"
	IngestModeURLOnly     IngestMode = "url_only"
)

// Source is a deduplicated external listing URL.
type Source struct {
	ID                string          `json:"id"`
	SourceURL         string          `json:"source_url"`
	Provider          Provider        `json:"source"`
	IngestMode        IngestMode      `json:"ingest_mode"`
	ExternalID        string          `json:"external_id,omitempty"`
	RawJSON           json.RawMessage `json:"raw_json,omitempty"`
	ScrapeAttemptedAt *time.Time      `json:"scrape_attempted_at,omitempty"`
	ScrapeSuccess     *bool           `json:"scrape_success,omitempty"`
	ScrapeProvider    string          `json:"scrape_provider,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
