package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr[T any](v T) *T { return &v }

func createTestProperty(t *testing.T, st Store, mutate func(*model.Property)) *model.Property {
	t.Helper()
	p := &model.Property{
		Title:        "Sunny bungalow",
		Address:      "123 Main St, Los Angeles, CA",
		Price:        ptr(850000.0),
		Beds:         ptr(3),
		Baths:        ptr(2.5),
		Sqft:         ptr(1650),
		PropertyType: "SingleFamily",
		ImageURLs:    []string{"https://img.example/1.jpg", "https://img.example/2.jpg"},
		Status:       model.PropertyStatusProcessing,
	}
	if mutate != nil {
		mutate(p)
	}
	out, err := st.CreateProperty(context.Background(), p)
	require.NoError(t, err)
	return out
}

// --- Sources ---

func TestSQLite_UpsertSource_DedupesByURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.UpsertSource(ctx, &model.Source{
		SourceURL:  "https://www.zillow.com/homedetails/1_zpid/",
		Provider:   model.ProviderZillow,
		IngestMode: model.IngestModeFullCapture,
		RawJSON:    json.RawMessage(`{"address":"1 Main"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	attempted := time.Now().UTC()
	second, err := st.UpsertSource(ctx, &model.Source{
		SourceURL:         "https://www.zillow.com/homedetails/1_zpid/",
		Provider:          model.ProviderZillow,
		IngestMode:        model.IngestModeURLOnly,
		ScrapeAttemptedAt: &attempted,
		ScrapeSuccess:     ptr(false),
		ScrapeProvider:    "apify",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

// --- Properties ---

func TestSQLite_Property_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := createTestProperty(t, st, nil)

	got, err := st.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunny bungalow", got.Title)
	assert.Equal(t, model.PropertyStatusProcessing, got.Status)
	require.NotNil(t, got.Beds)
	assert.Equal(t, 3, *got.Beds)
	require.NotNil(t, got.Baths)
	assert.InDelta(t, 2.5, *got.Baths, 0.001)
	assert.Nil(t, got.YearBuilt)
	assert.Nil(t, got.Lat)
	assert.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, got.ImageURLs)
	assert.Nil(t, got.PhotoInsights)
	assert.Empty(t, got.ConfirmationToken)
}

func TestSQLite_Property_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetProperty(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_Property_PartialUpdateKeepsOtherFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	created := createTestProperty(t, st, nil)

	now := time.Now().UTC()
	err := st.UpdateProperty(ctx, created.ID, model.PropertyUpdate{
		Lat:             ptr(34.1),
		Lng:             ptr(-118.3),
		City:            ptr("Los Angeles"),
		Geohash:         ptr("9q5ctr"),
		Location:        []byte{0x01, 0x01},
		PhotoInsights:   &model.PhotoInsights{RedFlags: []string{"water stain"}, Confidence: "medium"},
		PhotoInsightsAt: &now,
	})
	require.NoError(t, err)

	got, err := st.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunny bungalow", got.Title)
	assert.Equal(t, "Los Angeles", got.City)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, 34.1, *got.Lat, 0.0001)
	require.NotNil(t, got.PhotoInsights)
	assert.Equal(t, []string{"water stain"}, got.PhotoInsights.RedFlags)
	assert.NotNil(t, got.PhotoInsightsAt)
	require.NotNil(t, got.Sqft)
	assert.Equal(t, 1650, *got.Sqft)
}

func TestSQLite_Property_UpdateMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateProperty(context.Background(), "missing", model.PropertyUpdate{City: ptr("X")})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_ConfirmProperty_ConsumesOnce(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	created := createTestProperty(t, st, func(p *model.Property) {
		p.NeedsConfirmation = true
		p.ConfirmationToken = "AB12CD34"
		p.Status = model.PropertyStatusNeedsConfirmation
	})

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.ConfirmProperty(ctx, created.ID, model.PropertyUpdate{
		Address:     ptr("1 Confirmed Way, Austin, TX"),
		ConfirmedAt: &first,
		Status:      ptr(model.PropertyStatusProcessing),
	}))

	second := first.Add(time.Minute)
	err := st.ConfirmProperty(ctx, created.ID, model.PropertyUpdate{
		Address:     ptr("2 Late Way, Austin, TX"),
		ConfirmedAt: &second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.False(t, IsNotFound(err))

	got, err := st.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Confirmed Way, Austin, TX", got.Address)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, first.Equal(*got.ConfirmedAt))
}

func TestSQLite_ConfirmProperty_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	now := time.Now().UTC()

	err := st.ConfirmProperty(context.Background(), "missing", model.PropertyUpdate{ConfirmedAt: &now})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_Property_EmptyUpdateIsNoop(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.UpdateProperty(context.Background(), "missing", model.PropertyUpdate{}))
}

func TestSQLite_Property_ByToken(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := createTestProperty(t, st, func(p *model.Property) {
		p.Address = model.PendingAddress
		p.Status = model.PropertyStatusNeedsConfirmation
		p.NeedsConfirmation = true
		p.ConfirmationToken = "A1B2C3D4"
	})
	// Properties without a token must not collide on the unique index.
	createTestProperty(t, st, nil)
	createTestProperty(t, st, nil)

	got, err := st.GetPropertyByToken(ctx, "A1B2C3D4")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.NeedsConfirmation)
	assert.Nil(t, got.ConfirmedAt)

	_, err = st.GetPropertyByToken(ctx, "FFFFFFFF")
	assert.True(t, IsNotFound(err))
}

// --- Jobs ---

func TestSQLite_Job_Lifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	prop := createTestProperty(t, st, nil)

	job, err := st.CreateJob(ctx, prop.ID)
	require.NoError(t, err)

	require.NoError(t, st.UpdateJob(ctx, job.ID, model.JobUpdate{GeocodeDone: ptr(true)}))
	require.NoError(t, st.UpdateJob(ctx, job.ID, model.JobUpdate{LocationInsightsDone: ptr(true)}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.GeocodeDone)
	assert.True(t, got.LocationInsightsDone)
	assert.False(t, got.PhotoAnalysisDone)
	assert.False(t, got.CertificateDone)
	assert.Nil(t, got.CertificateID)
	assert.Nil(t, got.CompletedAt)

	now := time.Now().UTC()
	require.NoError(t, st.UpdateJob(ctx, job.ID, model.JobUpdate{
		CertificateDone: ptr(true),
		CertificateID:   ptr("cert-1"),
		CompletedAt:     &now,
	}))
	got, err = st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.CertificateDone)
	require.NotNil(t, got.CertificateID)
	assert.Equal(t, "cert-1", *got.CertificateID)
	assert.NotNil(t, got.CompletedAt)
}

func TestSQLite_Job_UpdateMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateJob(context.Background(), "missing", model.JobUpdate{GeocodeDone: ptr(true)})
	assert.True(t, IsNotFound(err))
}

// --- Location insights ---

func TestSQLite_LocationInsight_Upsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	prop := createTestProperty(t, st, nil)

	li := &model.LocationInsight{
		PropertyID:          prop.ID,
		Walkability:         "moderate",
		DailyConvenience:    "moderate",
		TrafficExposure:     "moderate",
		NeighbourhoodEnergy: "balanced",
		ProximityScore:      70,
		Amenities:           model.DefaultAmenities(),
		Noise:               model.Noise{DaytimeDB: 55, NighttimeDB: 45},
	}
	require.NoError(t, st.UpsertLocationInsight(ctx, li))

	li.Walkability = "high"
	li.ProximityScore = 88
	require.NoError(t, st.UpsertLocationInsight(ctx, li))

	got, err := st.GetLocationInsight(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, "high", got.Walkability)
	assert.Equal(t, 88, got.ProximityScore)
	assert.Equal(t, 15, got.Amenities.MetroMin)
	assert.Equal(t, 45, got.Noise.NighttimeDB)
}

func TestSQLite_LocationInsight_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLocationInsight(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

// --- Certificates ---

func TestSQLite_Certificate_CreateBackfillAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	prop := createTestProperty(t, st, nil)

	now := time.Now().UTC()
	cert, err := st.CreateCertificate(ctx, &model.Certificate{
		PropertyID:  &prop.ID,
		Tier:        model.TierNormal,
		Status:      model.CertificateStatusDone,
		Document:    json.RawMessage(`{"meta":{"id":""}}`),
		CompletedAt: &now,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CertificateVersion, cert.Version)

	doc := json.RawMessage(`{"meta":{"id":"` + cert.ID + `"}}`)
	require.NoError(t, st.UpdateCertificate(ctx, cert.ID, model.CertificateUpdate{Document: doc}))

	got, err := st.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got.Document))
	assert.Equal(t, model.CertificateStatusDone, got.Status)
	require.NotNil(t, got.PropertyID)
	assert.Equal(t, prop.ID, *got.PropertyID)
	assert.Nil(t, got.SpaceID)

	list, err := st.ListCertificates(ctx, model.CertificateFilter{PropertyID: prop.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cert.ID, list[0].ID)

	list, err = st.ListCertificates(ctx, model.CertificateFilter{PropertyID: prop.ID, Tier: model.TierPro})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLite_Certificate_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetCertificate(context.Background(), "missing")
	assert.True(t, IsNotFound(err))

	err = st.UpdateCertificate(context.Background(), "missing", model.CertificateUpdate{ErrorMessage: ptr("x")})
	assert.True(t, IsNotFound(err))
}

// --- Spaces ---

func TestSQLite_Spaces_CreateListFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, s := range []model.Space{
		{Name: "A", City: "Lisbon", PropertyType: "T1", Floor: "2", AreaM2: 45, Neighborhood: ptr("Chiado")},
		{Name: "B", City: "Lisbon", PropertyType: "T2", Floor: "ground", AreaM2: 70, ListingPrice: ptr(300000.0)},
		{Name: "C", City: "Porto", PropertyType: "T1", Floor: "4", AreaM2: 30},
	} {
		_, err := st.CreateSpace(ctx, &s)
		require.NoError(t, err)
	}

	all, total, err := st.ListSpaces(ctx, model.SpaceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	lisbon, total, err := st.ListSpaces(ctx, model.SpaceFilter{City: "Lisbon", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, lisbon, 1)

	t1, total, err := st.ListSpaces(ctx, model.SpaceFilter{PropertyType: "T1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, t1, 2)

	got, err := st.GetSpace(ctx, t1[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "T1", got.PropertyType)

	_, err = st.GetSpace(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

// --- Mobile sessions ---

func TestSQLite_MobileSession(t *testing.T) {
	st := newTestSQLiteStore(t)
	prop := createTestProperty(t, st, nil)

	s := &model.MobileSession{
		PhoneNumber: "whatsapp:+15551234567",
		PropertyID:  &prop.ID,
		Channel:     model.ChannelWhatsApp,
		State:       model.SessionDone,
	}
	require.NoError(t, st.CreateMobileSession(context.Background(), s))
	assert.NotEmpty(t, s.ID)
}

// --- Maintenance ---

func TestSQLite_FailStuckProperties(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stuck := createTestProperty(t, st, nil)
	done := createTestProperty(t, st, func(p *model.Property) { p.Status = model.PropertyStatusDone })

	n, err := st.FailStuckProperties(ctx, time.Now().Add(time.Minute), "pipeline interrupted")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetProperty(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusError, got.Status)
	assert.Equal(t, "pipeline interrupted", got.ErrorMessage)

	got, err = st.GetProperty(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusDone, got.Status)
}

func TestSQLite_ExpireConfirmations(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	pending := createTestProperty(t, st, func(p *model.Property) {
		p.Status = model.PropertyStatusNeedsConfirmation
		p.NeedsConfirmation = true
		p.ConfirmationToken = "DEADBEEF"
	})

	n, err := st.ExpireConfirmations(ctx, time.Now().Add(-time.Hour), "confirmation link expired")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = st.ExpireConfirmations(ctx, time.Now().Add(time.Minute), "confirmation link expired")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetProperty(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusError, got.Status)
	assert.True(t, got.NeedsConfirmation)
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}
