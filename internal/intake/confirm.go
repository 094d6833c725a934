package intake

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/store"
)

// Correction holds the fields a user submits on a confirmation link. Zero
// values keep the stored value; Address is required.
type Correction struct {
	Address      string   `json:"address"`
	Price        *float64 `json:"price,omitempty"`
	Beds         *int     `json:"beds,omitempty"`
	Baths        *float64 `json:"baths,omitempty"`
	Sqft         *int     `json:"sqft,omitempty"`
	YearBuilt    *int     `json:"year_built,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
}

// Confirmer completes url-only intakes that could not be scraped.
type Confirmer struct {
	store  store.Store
	router *Router
}

// NewConfirmer creates a Confirmer sharing router's pipeline and links.
func NewConfirmer(st store.Store, router *Router) *Confirmer {
	return &Confirmer{store: st, router: router}
}

// load resolves token to an unconfirmed property. Expired links, which the
// sweeper moves to error while still unconfirmed, count as not found.
func (c *Confirmer) load(ctx context.Context, token, usedMsg string) (*model.Property, error) {
	p, err := c.store.GetPropertyByToken(ctx, token)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &NotFoundError{Token: token}
		}
		return nil, eris.Wrap(err, "intake: lookup token")
	}
	if p.ConfirmedAt != nil {
		return nil, &AlreadyConfirmedError{Message: usedMsg}
	}
	if p.Status == model.PropertyStatusError && p.NeedsConfirmation {
		return nil, &NotFoundError{Token: token}
	}
	return p, nil
}

// Lookup returns the summary shown on the confirmation page.
func (c *Confirmer) Lookup(ctx context.Context, token string) (*model.ConfirmationSummary, error) {
	p, err := c.load(ctx, token, MsgLinkUsed)
	if err != nil {
		return nil, err
	}
	s := p.Summary()
	return &s, nil
}

// Confirm merges corr into the property, consumes the token and certifies the
// property.
func (c *Confirmer) Confirm(ctx context.Context, token string, corr Correction) (*Result, error) {
	p, err := c.load(ctx, token, MsgAlreadyConfirmed)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(strings.TrimSpace(corr.Address)) < minAddressLen {
		return nil, &ValidationError{Message: MsgAddressRequired}
	}

	merged := mergeCorrection(p, corr)
	now := c.router.now().UTC()
	u := model.PropertyUpdate{
		Address:           &merged.Address,
		Price:             merged.Price,
		Beds:              merged.Beds,
		Baths:             merged.Baths,
		Sqft:              merged.Sqft,
		YearBuilt:         merged.YearBuilt,
		NeedsConfirmation: ptr(false),
		ConfirmedAt:       &now,
		Status:            ptr(model.PropertyStatusProcessing),
	}
	if merged.PropertyType != "" {
		u.PropertyType = &merged.PropertyType
	}

	// The token is consumed by the conditional write; a concurrent confirm
	// that loaded the same property loses here.
	if err := c.store.ConfirmProperty(ctx, p.ID, u); err != nil {
		if errors.Is(err, store.ErrAlreadyConfirmed) {
			return nil, &AlreadyConfirmedError{Message: MsgAlreadyConfirmed}
		}
		return nil, eris.Wrap(err, "intake: apply confirmation")
	}

	src, err := c.upsertSource(ctx, p, token, merged)
	if err != nil {
		return nil, err
	}
	if p.SourceID == nil {
		if err := c.store.UpdateProperty(ctx, p.ID, model.PropertyUpdate{SourceID: &src.ID}); err != nil {
			return nil, eris.Wrap(err, "intake: link confirmation source")
		}
	}

	zap.L().Info("intake: confirmation accepted", zap.String("property_id", p.ID))
	return c.router.certify(ctx, p.ID, model.IngestModeFullCapture)
}

// upsertSource records the confirmed listing under a synthetic URL so it is
// distinguishable from scraped sources.
func (c *Confirmer) upsertSource(ctx context.Context, p *model.Property, token string, l model.ListingCapture) (*model.Source, error) {
	l.SourceURL = "confirmation:" + token
	if p.SourceID == nil {
		l.SourceURL = "manual:" + p.ID
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, eris.Wrap(err, "intake: marshal confirmation")
	}
	src, err := c.store.UpsertSource(ctx, &model.Source{
		SourceURL:  l.SourceURL,
		Provider:   model.ProviderManual,
		IngestMode: model.IngestModeFullCapture,
		RawJSON:    raw,
	})
	if err != nil {
		return nil, eris.Wrap(err, "intake: upsert confirmation source")
	}
	return src, nil
}

// mergeCorrection lays submitted values over stored ones. A submitted value
// wins when present and non-zero.
func mergeCorrection(p *model.Property, corr Correction) model.ListingCapture {
	return model.ListingCapture{
		Title:        p.Title,
		Address:      strings.TrimSpace(corr.Address),
		Price:        pick(corr.Price, p.Price),
		Beds:         pick(corr.Beds, p.Beds),
		Baths:        pick(corr.Baths, p.Baths),
		Sqft:         pick(corr.Sqft, p.Sqft),
		YearBuilt:    pick(corr.YearBuilt, p.YearBuilt),
		PropertyType: firstNonEmpty(corr.PropertyType, p.PropertyType),
		Description:  p.Description,
		ImageURLs:    p.ImageURLs,
	}
}

func pick[T int | float64](submitted, existing *T) *T {
	if submitted != nil && *submitted != 0 {
		return submitted
	}
	return existing
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func ptr[T any](v T) *T { return &v }
