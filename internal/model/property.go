package model

import "time"

// PropertyStatus represents the workflow state of a property.
type PropertyStatus string

const (
	PropertyStatusNeedsConfirmation PropertyStatus = "needs_confirmation"
	PropertyStatusProcessing        PropertyStatus = "processing"
	PropertyStatusDone              PropertyStatus = "done"
	PropertyStatusError             PropertyStatus = "error"
)

// IsValid reports whether s is a known status.
func (s PropertyStatus) IsValid() bool {
	switch s {
	case PropertyStatusNeedsConfirmation, PropertyStatusProcessing, PropertyStatusDone, PropertyStatusError:
		return true
	}
	return false
}

// IsTerminal reports whether the property has finished its workflow.
func (s PropertyStatus) IsTerminal() bool {
	return s == PropertyStatusDone || s == PropertyStatusError
}

// PendingAddress is the placeholder stored when a url-only intake could not
// recover an address.
const PendingAddress = "Pending confirmation"

// Property is a real-world listing under analysis.
type Property struct {
	ID           string   `json:"id"`
	SourceID     *string  `json:"source_id,omitempty"`
	Title        string   `json:"title"`
	Address      string   `json:"address"`
	Price        *float64 `json:"price,omitempty"`
	Beds         *int     `json:"beds,omitempty"`
	Baths        *float64 `json:"baths,omitempty"`
	Sqft         *int     `json:"sqft,omitempty"`
	YearBuilt    *int     `json:"year_built,omitempty"`
	PropertyType string   `json:"property_type"`
	Description  string   `json:"description"`
	ImageURLs    []string `json:"image_urls"`

	// Set by enrichment.
	Lat             *float64       `json:"lat,omitempty"`
	Lng             *float64       `json:"lng,omitempty"`
	City            string         `json:"city"`
	State           string         `json:"state"`
	Zip             string         `json:"zip"`
	Geohash         string         `json:"geohash,omitempty"`
	PhotoInsights   *PhotoInsights `json:"photo_insights,omitempty"`
	PhotoInsightsAt *time.Time     `json:"photo_insights_at,omitempty"`

	Status            PropertyStatus `json:"status"`
	NeedsConfirmation bool           `json:"needs_confirmation"`
	ConfirmationToken string         `json:"confirmation_token,omitempty"`
	ConfirmedAt       *time.Time     `json:"confirmed_at,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayTitle returns the title, falling back to the address.
func (p *Property) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Address
}

// PropertyUpdate is a partial update. Nil fields are left untouched.
type PropertyUpdate struct {
	SourceID     *string
	Title        *string
	Address      *string
	Price        *float64
	Beds         *int
	Baths        *float64
	Sqft         *int
	YearBuilt    *int
	PropertyType *string

	Lat             *float64
	Lng             *float64
	City            *string
	State           *string
	Zip             *string
	Geohash         *string
	Location        []byte // EWKB point
	PhotoInsights   *PhotoInsights
	PhotoInsightsAt *time.Time

	Status            *PropertyStatus
	NeedsConfirmation *bool
	ConfirmedAt       *time.Time
	ErrorMessage      *string
}

// IsEmpty reports whether the update carries no fields.
func (u PropertyUpdate) IsEmpty() bool {
	return u.SourceID == nil && u.Title == nil && u.Address == nil && u.Price == nil &&
		u.Beds == nil && u.Baths == nil && u.Sqft == nil && u.YearBuilt == nil &&
		u.PropertyType == nil && u.Lat == nil && u.Lng == nil && u.City == nil &&
		u.State == nil && u.Zip == nil && u.Geohash == nil && u.Location == nil &&
		u.PhotoInsights == nil && u.PhotoInsightsAt == nil && u.Status == nil &&
		u.NeedsConfirmation == nil && u.ConfirmedAt == nil && u.ErrorMessage == nil
}

// ListingCapture is the set of listing fields known at intake, either from a
// browser capture or a scrape.
type ListingCapture struct {
	SourceURL    string   `json:"source_url" yaml:"source_url"`
	ExternalID   string   `json:"external_id,omitempty" yaml:"external_id"`
	Title        string   `json:"title,omitempty" yaml:"title"`
	Address      string   `json:"address" yaml:"address"`
	Price        *float64 `json:"price,omitempty" yaml:"price"`
	Beds         *int     `json:"beds,omitempty" yaml:"beds"`
	Baths        *float64 `json:"baths,omitempty" yaml:"baths"`
	Sqft         *int     `json:"sqft,omitempty" yaml:"sqft"`
	YearBuilt    *int     `json:"year_built,omitempty" yaml:"year_built"`
	PropertyType string   `json:"property_type,omitempty" yaml:"property_type"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	ImageURLs    []string `json:"image_urls,omitempty" yaml:"image_urls"`
}

// ConfirmationSummary is the view of an unconfirmed property shown behind a
// confirmation link.
type ConfirmationSummary struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Address           string     `json:"address"`
	Price             *float64   `json:"price"`
	Beds              *int       `json:"beds"`
	Baths             *float64   `json:"baths"`
	Sqft              *int       `json:"sqft"`
	YearBuilt         *int       `json:"year_built"`
	PropertyType      string     `json:"property_type"`
	ImageURLs         []string   `json:"image_urls"`
	NeedsConfirmation bool       `json:"needs_confirmation"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
}

// Summary projects the property onto the confirmation view.
func (p *Property) Summary() ConfirmationSummary {
	return ConfirmationSummary{
		ID:                p.ID,
		Title:             p.Title,
		Address:           p.Address,
		Price:             p.Price,
		Beds:              p.Beds,
		Baths:             p.Baths,
		Sqft:              p.Sqft,
		YearBuilt:         p.YearBuilt,
		PropertyType:      p.PropertyType,
		ImageURLs:         p.ImageURLs,
		NeedsConfirmation: p.NeedsConfirmation,
		ConfirmedAt:       p.ConfirmedAt,
	}
}
