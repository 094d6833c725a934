package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/certificate"
	"github.com/sells-group/rumoo/internal/config"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/scoring"
	"github.com/sells-group/rumoo/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubGeocoder struct{ result *model.GeoResult }

func (s stubGeocoder) Geocode(context.Context, string) *model.GeoResult { return s.result }

type recordingLocation struct{ lat, lng float64 }

func (r *recordingLocation) Analyze(_ context.Context, lat, lng float64) *model.LocationInsight {
	r.lat, r.lng = lat, lng
	li := scoring.DeriveLocation(model.DefaultAmenities())
	return &li
}

type stubVision struct {
	result *model.PhotoInsights
	calls  int
}

func (s *stubVision) Analyze(context.Context, []string) *model.PhotoInsights {
	s.calls++
	return s.result
}

type stubGuard struct {
	held     bool
	err      error
	released bool
}

func (g *stubGuard) TryLock(context.Context, string) (func(context.Context), bool, error) {
	if g.err != nil {
		return nil, false, g.err
	}
	if g.held {
		return nil, false, nil
	}
	return func(context.Context) { g.released = true }, true, nil
}

type stubPublisher struct{ events []model.CertificateReady }

func (s *stubPublisher) PublishCertificateReady(_ context.Context, ev model.CertificateReady) error {
	s.events = append(s.events, ev)
	return errors.New("broker down")
}

// failingStore fails location upserts.
type failingStore struct{ store.Store }

func (failingStore) UpsertLocationInsight(context.Context, *model.LocationInsight) error {
	return errors.New("disk full")
}

// noJobStore fails job creation.
type noJobStore struct{ store.Store }

func (noJobStore) CreateJob(context.Context, string) (*model.IngestJob, error) {
	return nil, errors.New("jobs table locked")
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{FallbackLat: 34.0522, FallbackLng: -118.2437, DefaultTier: "normal"}
}

func newTestPipeline(st store.Store, g Geocoder, loc LocationAnalyzer, v VisionAnalyzer, opts ...Option) *Pipeline {
	builder := certificate.NewBuilder(nil, certificate.WithClock(func() time.Time { return testNow }))
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(st, g, loc, v, builder, testConfig(), opts...)
}

func createProperty(t *testing.T, st store.Store, images []string) *model.Property {
	t.Helper()
	sqft := 1650
	p, err := st.CreateProperty(context.Background(), &model.Property{
		Title:        "Sunny bungalow",
		Address:      "123 Main St, Los Angeles, CA",
		Sqft:         &sqft,
		PropertyType: "Single Family",
		ImageURLs:    images,
		Status:       model.PropertyStatusProcessing,
	})
	require.NoError(t, err)
	return p
}

func TestRun_HappyPath(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	prop := createProperty(t, st, []string{"https://img.example/1.jpg"})

	loc := &recordingLocation{}
	vision := &stubVision{result: &model.PhotoInsights{
		LightAssessment: model.LightAssessment{Quality: "good", NaturalLightVisible: true},
		Confidence:      "high",
	}}
	pub := &stubPublisher{}
	geo := stubGeocoder{result: &model.GeoResult{Lat: 40.7128, Lng: -74.006, City: "New York", State: "NY", Zip: "10007"}}

	res, err := newTestPipeline(st, geo, loc, vision, WithPublisher(pub)).Run(ctx, prop.ID)
	require.NoError(t, err)
	assert.True(t, res.Geocoded)
	assert.True(t, res.PhotoAnalyzed)
	assert.InDelta(t, 40.7128, loc.lat, 1e-9)

	got, err := st.GetProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusDone, got.Status)
	assert.Equal(t, "New York", got.City)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, 40.7128, *got.Lat, 1e-9)
	assert.NotEmpty(t, got.Geohash)
	require.NotNil(t, got.PhotoInsights)
	assert.Equal(t, "good", got.PhotoInsights.LightAssessment.Quality)

	job, err := st.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	assert.True(t, job.GeocodeDone)
	assert.True(t, job.LocationInsightsDone)
	assert.True(t, job.PhotoAnalysisDone)
	assert.True(t, job.CertificateDone)
	require.NotNil(t, job.CertificateID)
	assert.Equal(t, res.CertificateID, *job.CertificateID)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMessage)

	cert, err := st.GetCertificate(ctx, res.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificateStatusDone, cert.Status)
	assert.Equal(t, model.CertificateVersion, cert.Version)
	var doc model.PropertyCertificate
	require.NoError(t, json.Unmarshal(cert.Document, &doc))
	assert.Equal(t, cert.ID, doc.Meta.ID)

	li, err := st.GetLocationInsight(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, li.ProximityScore)

	// Publish failures are logged only.
	require.Len(t, pub.events, 1)
	assert.Equal(t, res.CertificateID, pub.events[0].CertificateID)
}

func TestRun_GeocodeMissUsesFallback(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	prop := createProperty(t, st, nil)

	loc := &recordingLocation{}
	vision := &stubVision{}
	res, err := newTestPipeline(st, stubGeocoder{}, loc, vision).Run(ctx, prop.ID)
	require.NoError(t, err)

	assert.False(t, res.Geocoded)
	assert.InDelta(t, 34.0522, loc.lat, 1e-9)
	assert.InDelta(t, -118.2437, loc.lng, 1e-9)
	assert.Zero(t, vision.calls, "no images means no vision call")

	got, err := st.GetProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Lat)
	assert.Nil(t, got.PhotoInsights)

	job, err := st.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	assert.True(t, job.GeocodeDone)
	assert.True(t, job.PhotoAnalysisDone)
	assert.True(t, job.CertificateDone)

	cert, err := st.GetCertificate(ctx, res.CertificateID)
	require.NoError(t, err)
	var doc model.PropertyCertificate
	require.NoError(t, json.Unmarshal(cert.Document, &doc))
	assert.Equal(t, certificate.NaturalLightFallback, doc.RealfeelEnvironment.NaturalLightSummary)
	for _, s := range doc.Signals {
		assert.NotEqual(t, "Photo Analysis", s.Name)
	}
}

func TestRun_StageFailureRecorded(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	prop := createProperty(t, st, nil)

	geo := stubGeocoder{result: &model.GeoResult{Lat: 1, Lng: 2, City: "Kept"}}
	res, err := newTestPipeline(failingStore{st}, geo, &recordingLocation{}, &stubVision{}).Run(ctx, prop.ID)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLocation, se.Stage)

	got, err := st.GetProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusError, got.Status)
	assert.Contains(t, got.ErrorMessage, "disk full")
	assert.Equal(t, "Kept", got.City, "earlier stage writes are kept")

	job, err := st.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	assert.True(t, job.GeocodeDone)
	assert.False(t, job.LocationInsightsDone)
	assert.False(t, job.CertificateDone)
	assert.Contains(t, job.ErrorMessage, "disk full")
}

func TestRun_CreateJobFailureRecorded(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	prop := createProperty(t, st, nil)

	res, err := newTestPipeline(noJobStore{st}, stubGeocoder{}, &recordingLocation{}, &stubVision{}).Run(ctx, prop.ID)
	require.Error(t, err)
	assert.Nil(t, res)

	got, err := st.GetProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusError, got.Status)
	assert.Contains(t, got.ErrorMessage, "pipeline: create job")
	assert.Contains(t, got.ErrorMessage, "jobs table locked")
}

func TestRun_MissingProperty(t *testing.T) {
	st := newTestStore(t)
	_, err := newTestPipeline(st, stubGeocoder{}, &recordingLocation{}, &stubVision{}).Run(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestRun_Guard(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	prop := createProperty(t, st, nil)

	held := &stubGuard{held: true}
	_, err := newTestPipeline(st, stubGeocoder{}, &recordingLocation{}, &stubVision{}, WithRunGuard(held)).Run(ctx, prop.ID)
	assert.ErrorIs(t, err, ErrRunInProgress)

	got, err := st.GetProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusProcessing, got.Status, "no writes while another run holds the guard")

	free := &stubGuard{}
	_, err = newTestPipeline(st, stubGeocoder{}, &recordingLocation{}, &stubVision{}, WithRunGuard(free)).Run(ctx, prop.ID)
	require.NoError(t, err)
	assert.True(t, free.released)

	broken := &stubGuard{err: errors.New("redis down")}
	_, err = newTestPipeline(st, stubGeocoder{}, &recordingLocation{}, &stubVision{}, WithRunGuard(broken)).Run(ctx, prop.ID)
	assert.NoError(t, err)
}
