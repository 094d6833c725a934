// Package intake turns inbound listing requests into properties and decides
// whether they can be certified immediately or need user confirmation.
package intake

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/metrics"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/pipeline"
	"github.com/sells-group/rumoo/internal/scrape"
	"github.com/sells-group/rumoo/internal/store"
)

// minAddressLen is the shortest address accepted at intake and confirmation.
const minAddressLen = 5

// Runner certifies a stored property.
type Runner interface {
	Run(ctx context.Context, propertyID string) (*pipeline.RunResult, error)
}

// Scraper recovers listing fields from a URL. It returns the result, which
// may be nil, and the provider it used.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, string)
}

// Kind distinguishes finished intakes from ones awaiting confirmation.
type Kind string

const (
	KindCreated Kind = "created"
	KindPending Kind = "needs_confirmation"
)

// Result describes an accepted intake.
type Result struct {
	Kind              Kind
	Mode              model.IngestMode
	PropertyID        string
	CertificateID     string
	RedirectURL       string
	ConfirmationURL   string
	ConfirmationToken string
	Message           string
}

// Router classifies requests, creates properties and hands them to the
// pipeline.
type Router struct {
	store   store.Store
	runner  Runner
	scraper Scraper
	appURL  string
	metrics *metrics.Metrics
	now     func() time.Time
	token   func() (string, error)
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics records intake outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithTokenSource overrides confirmation token generation.
func WithTokenSource(fn func() (string, error)) Option {
	return func(r *Router) { r.token = fn }
}

// NewRouter creates a Router. appURL is the public base used in links.
func NewRouter(st store.Store, runner Runner, scraper Scraper, appURL string, opts ...Option) *Router {
	r := &Router{
		store:   st,
		runner:  runner,
		scraper: scraper,
		appURL:  strings.TrimRight(appURL, "/"),
		now:     time.Now,
		token:   NewToken,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewToken returns 4 random bytes as 8 uppercase hex characters.
func NewToken() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", eris.Wrap(err, "intake: generate token")
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// CertificateURL is the public page for a certificate.
func (r *Router) CertificateURL(id string) string { return r.appURL + "/certificates/" + id }

// ConfirmationURL is the public confirmation page for a token.
func (r *Router) ConfirmationURL(token string) string { return r.appURL + "/confirm/" + token }

// Ingest handles a decoded request. Pipeline failures are returned together
// with a Result carrying the property id.
func (r *Router) Ingest(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode()
	var (
		res *Result
		err error
	)
	if req.Listing != nil {
		res, err = r.ingestCapture(ctx, *req.Listing)
	} else {
		res, err = r.ingestURL(ctx, req.URL)
	}
	r.metrics.ObserveIntake(string(mode), outcome(res, err))
	return res, err
}

func outcome(res *Result, err error) string {
	switch {
	case err != nil && (res == nil || res.PropertyID == ""):
		return "rejected"
	case err != nil:
		return "failed"
	case res.Kind == KindPending:
		return "pending"
	default:
		return "created"
	}
}

func (r *Router) ingestCapture(ctx context.Context, l model.ListingCapture) (*Result, error) {
	if l.SourceURL == "" {
		return nil, &ValidationError{Message: MsgMissingSourceURL}
	}
	if utf8.RuneCountInString(l.Address) < minAddressLen {
		return nil, &ValidationError{Message: MsgMissingAddress}
	}

	raw, err := json.Marshal(l)
	if err != nil {
		return nil, eris.Wrap(err, "intake: marshal listing")
	}
	src, err := r.store.UpsertSource(ctx, &model.Source{
		SourceURL:  l.SourceURL,
		Provider:   model.DetectProvider(l.SourceURL),
		IngestMode: model.IngestModeFullCapture,
		ExternalID: l.ExternalID,
		RawJSON:    raw,
	})
	if err != nil {
		return nil, eris.Wrap(err, "intake: upsert source")
	}

	prop := propertyFromCapture(l)
	prop.SourceID = &src.ID
	prop.Status = model.PropertyStatusProcessing
	created, err := r.store.CreateProperty(ctx, prop)
	if err != nil {
		return nil, eris.Wrap(err, "intake: create property")
	}

	zap.L().Info("intake: full capture accepted",
		zap.String("property_id", created.ID),
		zap.String("source", string(src.Provider)),
	)
	return r.certify(ctx, created.ID, model.IngestModeFullCapture)
}

func (r *Router) ingestURL(ctx context.Context, url string) (*Result, error) {
	if !model.IsSupportedListing(url) {
		return nil, &UnsupportedSourceError{URL: url}
	}

	var (
		scraped  *scrape.Result
		provider = "none"
	)
	if r.scraper != nil {
		scraped, provider = r.scraper.Scrape(ctx, url)
	}
	ok := scraped.OK()

	raw := json.RawMessage(nil)
	if scraped != nil && len(scraped.Raw) > 0 {
		raw = scraped.Raw
	} else if ok {
		raw, _ = json.Marshal(scraped.Listing)
	}
	if raw == nil {
		raw, _ = json.Marshal(map[string]string{"source_url": url})
	}

	attempted := r.now().UTC()
	src := &model.Source{
		SourceURL:         url,
		Provider:          model.DetectProvider(url),
		IngestMode:        model.IngestModeURLOnly,
		RawJSON:           raw,
		ScrapeAttemptedAt: &attempted,
		ScrapeSuccess:     &ok,
		ScrapeProvider:    provider,
	}
	if scraped != nil && scraped.Listing != nil {
		src.ExternalID = scraped.Listing.ExternalID
	}
	src, err := r.store.UpsertSource(ctx, src)
	if err != nil {
		return nil, eris.Wrap(err, "intake: upsert source")
	}

	token, err := r.token()
	if err != nil {
		return nil, err
	}

	prop := &model.Property{Address: model.PendingAddress}
	if scraped != nil && scraped.Listing != nil {
		prop = propertyFromCapture(*scraped.Listing)
		if strings.TrimSpace(prop.Address) == "" {
			prop.Address = model.PendingAddress
		}
	}
	prop.SourceID = &src.ID
	prop.ConfirmationToken = token
	prop.NeedsConfirmation = !ok
	prop.Status = model.PropertyStatusProcessing
	if !ok {
		prop.Status = model.PropertyStatusNeedsConfirmation
	}

	created, err := r.store.CreateProperty(ctx, prop)
	if err != nil {
		return nil, eris.Wrap(err, "intake: create property")
	}

	log := zap.L().With(zap.String("property_id", created.ID), zap.String("scrape_provider", provider))
	if !ok {
		log.Info("intake: url accepted, awaiting confirmation")
		return &Result{
			Kind:              KindPending,
			Mode:              model.IngestModeURLOnly,
			PropertyID:        created.ID,
			ConfirmationURL:   r.ConfirmationURL(token),
			ConfirmationToken: token,
			Message:           MsgNeedsConfirmation,
		}, nil
	}
	log.Info("intake: url scraped, certifying")
	return r.certify(ctx, created.ID, model.IngestModeURLOnly)
}

func (r *Router) certify(ctx context.Context, propertyID string, mode model.IngestMode) (*Result, error) {
	res := &Result{Kind: KindCreated, Mode: mode, PropertyID: propertyID}
	run, err := r.runner.Run(ctx, propertyID)
	if err != nil {
		return res, eris.Wrap(err, "intake: run pipeline")
	}
	res.CertificateID = run.CertificateID
	res.RedirectURL = r.CertificateURL(run.CertificateID)
	return res, nil
}

func propertyFromCapture(l model.ListingCapture) *model.Property {
	images := l.ImageURLs
	if images == nil {
		images = []string{}
	}
	return &model.Property{
		Title:        l.Title,
		Address:      l.Address,
		Price:        l.Price,
		Beds:         l.Beds,
		Baths:        l.Baths,
		Sqft:         l.Sqft,
		YearBuilt:    l.YearBuilt,
		PropertyType: l.PropertyType,
		Description:  l.Description,
		ImageURLs:    images,
	}
}
