package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/db"
	"github.com/sells-group/rumoo/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return newPostgresStore(mock, nil), mock
}

func TestPostgresStore_GetProperty_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, source_id, .+ FROM properties WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetProperty(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProperty_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM properties WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetProperty(context.Background(), "p-1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "postgres: get property p-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProperty_OnlyTouchesSetFields(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	status := model.PropertyStatusError
	msg := "boom"
	mock.ExpectExec(`UPDATE "properties" SET "status" = \$1, "error_message" = \$2, "updated_at" = \$3 WHERE "id" = \$4`).
		WithArgs("error", "boom", pgxmock.AnyArg(), "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateProperty(context.Background(), "p-1", model.PropertyUpdate{Status: &status, ErrorMessage: &msg})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProperty_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	city := "Austin"
	mock.ExpectExec(`UPDATE "properties" SET "city" = \$1`).
		WithArgs("Austin", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateProperty(context.Background(), "missing", model.PropertyUpdate{City: &city})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProperty_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.UpdateProperty(context.Background(), "p-1", model.PropertyUpdate{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ConfirmProperty_GuardsConfirmedAt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE "properties" SET "confirmed_at" = \$1, "updated_at" = \$2 WHERE "id" = \$3 AND confirmed_at IS NULL`).
		WithArgs(now, pgxmock.AnyArg(), "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.ConfirmProperty(context.Background(), "p-1", model.PropertyUpdate{ConfirmedAt: &now}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ConfirmProperty_MissingProperty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`AND confirmed_at IS NULL`).
		WithArgs(now, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`FROM properties WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	err := s.ConfirmProperty(context.Background(), "missing", model.PropertyUpdate{ConfirmedAt: &now})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ConfirmProperty_RequiresTimestamp(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.ConfirmProperty(context.Background(), "p-1", model.PropertyUpdate{Status: ptr(model.PropertyStatusProcessing)})
	assert.ErrorContains(t, err, "confirmed_at is required")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO ingest_jobs \(id, property_id, created_at\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(pgxmock.AnyArg(), "p-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job, err := s.CreateJob(context.Background(), "p-1")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "p-1", job.PropertyID)
	assert.False(t, job.CertificateDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateJob_Flags(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE "ingest_jobs" SET "geocode_done" = \$1 WHERE "id" = \$2`).
		WithArgs(true, "j-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	done := true
	require.NoError(t, s.UpdateJob(context.Background(), "j-1", model.JobUpdate{GeocodeDone: &done}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, property_id, geocode_done, .+ FROM ingest_jobs WHERE id = \$1`).
		WithArgs("j-1").
		WillReturnRows(mock.NewRows([]string{
			"id", "property_id", "geocode_done", "location_insights_done", "photo_analysis_done",
			"certificate_done", "certificate_id", "error_message", "created_at", "completed_at",
		}).AddRow("j-1", "p-1", true, true, false, false, nil, "", now, nil))

	job, err := s.GetJob(context.Background(), "j-1")
	require.NoError(t, err)
	assert.True(t, job.GeocodeDone)
	assert.True(t, job.LocationInsightsDone)
	assert.False(t, job.PhotoAnalysisDone)
	assert.Nil(t, job.CertificateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertSource_ReturnsExistingID(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Now().UTC().Add(-time.Hour)

	mock.ExpectQuery(`INSERT INTO "sources" .+ ON CONFLICT \("source_url"\) DO UPDATE SET .+ RETURNING "id", "created_at"`).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow("src-existing", created))

	src, err := s.UpsertSource(context.Background(), &model.Source{
		SourceURL:  "https://www.redfin.com/home/1",
		Provider:   model.ProviderRedfin,
		IngestMode: model.IngestModeFullCapture,
	})
	require.NoError(t, err)
	assert.Equal(t, "src-existing", src.ID)
	assert.Equal(t, created, src.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLocationInsight(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "location_insights" .+ ON CONFLICT \("property_id"\) DO UPDATE`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertLocationInsight(context.Background(), &model.LocationInsight{
		PropertyID: "p-1",
		Amenities:  model.DefaultAmenities(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCertificate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, property_id, space_id, .+ FROM certificates WHERE id = \$1`).
		WithArgs("c-1").
		WillReturnRows(mock.NewRows([]string{
			"id", "property_id", "space_id", "tier", "status", "version", "document",
			"source_inputs", "error_message", "created_at", "updated_at", "completed_at",
		}).AddRow("c-1", nil, nil, "pro", "done", "1.0.0", []byte(`{"meta":{"id":"c-1"}}`), nil, "", now, now, nil))

	c, err := s.GetCertificate(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, c.Tier)
	assert.Equal(t, model.CertificateStatusDone, c.Status)
	assert.JSONEq(t, `{"meta":{"id":"c-1"}}`, string(c.Document))
	assert.Nil(t, c.SourceInputs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailStuckProperties(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	before := time.Now().UTC()

	mock.ExpectExec(`UPDATE properties SET status = \$1, error_message = \$2, updated_at = \$3\s+WHERE status = \$4 AND updated_at < \$5`).
		WithArgs("error", "pipeline interrupted", pgxmock.AnyArg(), "processing", before).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := s.FailStuckProperties(context.Background(), before, "pipeline interrupted")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sources`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	q := &queries{ph: db.Dollar}
	assert.Equal(t, "a = $1 AND b = $2", q.rebind("a = ? AND b = ?"))
}
