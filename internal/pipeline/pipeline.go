// Package pipeline runs the ingestion stages for a property and produces its
// certificate.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/certificate"
	"github.com/sells-group/rumoo/internal/config"
	"github.com/sells-group/rumoo/internal/geo"
	"github.com/sells-group/rumoo/internal/metrics"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/store"
)

// Stage names, used in logs and metrics.
const (
	StageGeocode     = "geocode"
	StageLocation    = "location_insights"
	StagePhotos      = "photo_analysis"
	StageCertificate = "certificate"
)

// ErrRunInProgress is returned when another run holds the property's guard.
var ErrRunInProgress = eris.New("pipeline: run already in progress")

// StageError is an unabsorbed failure inside one stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Geocoder resolves an address. Nil means unresolved.
type Geocoder interface {
	Geocode(ctx context.Context, address string) *model.GeoResult
}

// LocationAnalyzer builds a neighbourhood snapshot. It never returns nil.
type LocationAnalyzer interface {
	Analyze(ctx context.Context, lat, lng float64) *model.LocationInsight
}

// VisionAnalyzer assesses listing photos. Nil means no assessment.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, urls []string) *model.PhotoInsights
}

// RunGuard serializes runs per key. TryLock reports ok=false when the key is
// already held; unlock releases it.
type RunGuard interface {
	TryLock(ctx context.Context, key string) (unlock func(context.Context), ok bool, err error)
}

// Publisher announces finished certificates.
type Publisher interface {
	PublishCertificateReady(ctx context.Context, ev model.CertificateReady) error
}

// RunResult describes a finished run.
type RunResult struct {
	PropertyID    string
	JobID         string
	CertificateID string
	Geocoded      bool
	PhotoAnalyzed bool
}

// Pipeline coordinates enrichment and certificate generation.
type Pipeline struct {
	store    store.Store
	geocoder Geocoder
	location LocationAnalyzer
	vision   VisionAnalyzer
	builder  *certificate.Builder
	cfg      config.PipelineConfig

	guard     RunGuard
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithRunGuard serializes runs per property id.
func WithRunGuard(g RunGuard) Option {
	return func(p *Pipeline) { p.guard = g }
}

// WithPublisher announces finished certificates.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithMetrics records stage and run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline.
func New(
	st store.Store,
	geocoder Geocoder,
	location LocationAnalyzer,
	vision VisionAnalyzer,
	builder *certificate.Builder,
	cfg config.PipelineConfig,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		store:    st,
		geocoder: geocoder,
		location: location,
		vision:   vision,
		builder:  builder,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) tier() model.Tier {
	if t := model.Tier(p.cfg.DefaultTier); t.IsValid() {
		return t
	}
	return model.TierNormal
}

// lock acquires the run guard for key. A guard backend failure is logged and
// the run proceeds unguarded.
func (p *Pipeline) lock(ctx context.Context, log *zap.Logger, key string) (func(), error) {
	if p.guard == nil {
		return func() {}, nil
	}
	unlock, ok, err := p.guard.TryLock(ctx, key)
	if err != nil {
		log.Warn("pipeline: run guard unavailable, continuing unguarded", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() { unlock(context.WithoutCancel(ctx)) }, nil
}

// trackStage times fn, logs its outcome and records metrics. A failed stage is
// returned as a *StageError.
func (p *Pipeline) trackStage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.metrics.ObserveStage(name, elapsed, err)

	if err != nil {
		log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return &StageError{Stage: name, Err: err}
	}
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	return nil
}

// Run executes geocode, location insights, photo analysis and certificate
// generation for a property. Writes from completed stages are kept when a
// later stage fails; the failure is recorded on the property and the job.
func (p *Pipeline) Run(ctx context.Context, propertyID string) (*RunResult, error) {
	log := zap.L().With(zap.String("property_id", propertyID))

	unlock, err := p.lock(ctx, log, propertyID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prop, err := p.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get property")
	}

	job, err := p.store.CreateJob(ctx, propertyID)
	if err != nil {
		err = eris.Wrap(err, "pipeline: create job")
		p.fail(ctx, log, propertyID, "", err)
		p.metrics.ObserveRun(err)
		return nil, err
	}
	log = log.With(zap.String("job_id", job.ID))
	log.Info("pipeline: starting run")

	result := &RunResult{PropertyID: propertyID, JobID: job.ID}
	if err := p.run(ctx, log, prop, job.ID, result); err != nil {
		p.fail(ctx, log, propertyID, job.ID, err)
		p.metrics.ObserveRun(err)
		return result, err
	}

	p.metrics.ObserveRun(nil)
	log.Info("pipeline: run complete", zap.String("certificate_id", result.CertificateID))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, prop *model.Property, jobID string, result *RunResult) error {
	lat, lng := p.cfg.FallbackLat, p.cfg.FallbackLng
	if err := p.trackStage(log, StageGeocode, func() error {
		g := p.geocoder.Geocode(ctx, prop.Address)
		if g != nil {
			lat, lng = g.Lat, g.Lng
			if err := p.store.UpdateProperty(ctx, prop.ID, geoUpdate(g)); err != nil {
				return eris.Wrap(err, "pipeline: save geocode")
			}
			result.Geocoded = true
		} else {
			log.Info("pipeline: geocode unavailable, using fallback coordinate",
				zap.Float64("lat", lat), zap.Float64("lng", lng))
		}
		return p.markJob(ctx, jobID, model.JobUpdate{GeocodeDone: ptr(true)})
	}); err != nil {
		return err
	}

	var loc *model.LocationInsight
	if err := p.trackStage(log, StageLocation, func() error {
		loc = p.location.Analyze(ctx, lat, lng)
		loc.PropertyID = prop.ID
		if err := p.store.UpsertLocationInsight(ctx, loc); err != nil {
			return eris.Wrap(err, "pipeline: save location insights")
		}
		return p.markJob(ctx, jobID, model.JobUpdate{LocationInsightsDone: ptr(true)})
	}); err != nil {
		return err
	}

	if err := p.trackStage(log, StagePhotos, func() error {
		var photos *model.PhotoInsights
		if len(prop.ImageURLs) > 0 {
			photos = p.vision.Analyze(ctx, prop.ImageURLs)
		}
		if photos != nil {
			err := p.store.UpdateProperty(ctx, prop.ID, model.PropertyUpdate{
				PhotoInsights:   photos,
				PhotoInsightsAt: ptr(p.now().UTC()),
			})
			if err != nil {
				return eris.Wrap(err, "pipeline: save photo insights")
			}
			result.PhotoAnalyzed = true
		}
		return p.markJob(ctx, jobID, model.JobUpdate{PhotoAnalysisDone: ptr(true)})
	}); err != nil {
		return err
	}

	return p.trackStage(log, StageCertificate, func() error {
		certID, err := p.certifyProperty(ctx, prop.ID, loc)
		if err != nil {
			return err
		}
		result.CertificateID = certID

		if err := p.store.UpdateProperty(ctx, prop.ID, model.PropertyUpdate{
			Status: ptr(model.PropertyStatusDone),
		}); err != nil {
			return eris.Wrap(err, "pipeline: mark property done")
		}
		return p.markJob(ctx, jobID, model.JobUpdate{
			CertificateDone: ptr(true),
			CertificateID:   ptr(certID),
			CompletedAt:     ptr(p.now().UTC()),
		})
	})
}

// certifyProperty builds the certificate from the enriched property, stores
// it, and backfills the stored id into the document.
func (p *Pipeline) certifyProperty(ctx context.Context, propertyID string, loc *model.LocationInsight) (string, error) {
	fresh, err := p.store.GetProperty(ctx, propertyID)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: property not found for certificate generation")
	}

	tier := p.tier()
	doc, err := p.builder.Property(ctx, certificate.PropertyInput{
		Property: fresh,
		Location: loc,
		Photos:   fresh.PhotoInsights,
		Tier:     tier,
	})
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal certificate")
	}
	completed := p.now().UTC()
	cert, err := p.store.CreateCertificate(ctx, &model.Certificate{
		PropertyID:  &propertyID,
		Tier:        tier,
		Status:      model.CertificateStatusDone,
		Version:     model.CertificateVersion,
		Document:    raw,
		CompletedAt: &completed,
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: insert certificate")
	}

	doc.Meta.ID = cert.ID
	raw, err = json.Marshal(doc)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal certificate")
	}
	if err := p.store.UpdateCertificate(ctx, cert.ID, model.CertificateUpdate{Document: raw}); err != nil {
		return "", eris.Wrap(err, "pipeline: backfill certificate id")
	}

	p.publish(ctx, model.CertificateReady{
		CertificateID: cert.ID,
		PropertyID:    propertyID,
		Tier:          tier,
		Version:       model.CertificateVersion,
		CompletedAt:   completed,
	})
	return cert.ID, nil
}

func (p *Pipeline) markJob(ctx context.Context, jobID string, u model.JobUpdate) error {
	if err := p.store.UpdateJob(ctx, jobID, u); err != nil {
		return eris.Wrap(err, "pipeline: update job")
	}
	return nil
}

// fail records err on the property and, when one was created, the job.
// Write failures here are logged; the original error is what the caller sees.
func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, propertyID, jobID string, err error) {
	msg := err.Error()
	if uerr := p.store.UpdateProperty(ctx, propertyID, model.PropertyUpdate{
		Status:       ptr(model.PropertyStatusError),
		ErrorMessage: &msg,
	}); uerr != nil {
		log.Error("pipeline: failed to record property error", zap.Error(uerr))
	}
	if jobID == "" {
		return
	}
	if uerr := p.store.UpdateJob(ctx, jobID, model.JobUpdate{ErrorMessage: &msg}); uerr != nil {
		log.Error("pipeline: failed to record job error", zap.Error(uerr))
	}
}

func (p *Pipeline) publish(ctx context.Context, ev model.CertificateReady) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishCertificateReady(ctx, ev); err != nil {
		zap.L().Warn("pipeline: publish certificate event failed",
			zap.String("certificate_id", ev.CertificateID), zap.Error(err))
	}
}

func geoUpdate(g *model.GeoResult) model.PropertyUpdate {
	pt := geo.Point{Lat: g.Lat, Lng: g.Lng}
	u := model.PropertyUpdate{
		Lat:     ptr(g.Lat),
		Lng:     ptr(g.Lng),
		City:    ptr(g.City),
		State:   ptr(g.State),
		Zip:     ptr(g.Zip),
		Geohash: ptr(geo.Hash(pt)),
	}
	if wkb, err := geo.EncodePoint(pt); err == nil {
		u.Location = wkb
	}
	return u
}

func ptr[T any](v T) *T { return &v }
