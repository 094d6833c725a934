package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
)

// ErrNotFound is returned (wrapped) when a keyed lookup misses.
var ErrNotFound = eris.New("store: record not found")

// ErrAlreadyConfirmed is returned (wrapped) by ConfirmProperty when the
// property's confirmation token was already consumed.
var ErrAlreadyConfirmed = eris.New("store: property already confirmed")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store defines the persistence interface for ingestion and certificates.
type Store interface {
	// Sources
	UpsertSource(ctx context.Context, src *model.Source) (*model.Source, error)

	// Properties
	CreateProperty(ctx context.Context, p *model.Property) (*model.Property, error)
	GetProperty(ctx context.Context, id string) (*model.Property, error)
	GetPropertyByToken(ctx context.Context, token string) (*model.Property, error)
	UpdateProperty(ctx context.Context, id string, u model.PropertyUpdate) error
	// ConfirmProperty applies u only while confirmed_at is unset, so a
	// confirmation token is consumed at most once.
	ConfirmProperty(ctx context.Context, id string, u model.PropertyUpdate) error

	// Ingest jobs
	CreateJob(ctx context.Context, propertyID string) (*model.IngestJob, error)
	UpdateJob(ctx context.Context, id string, u model.JobUpdate) error
	GetJob(ctx context.Context, id string) (*model.IngestJob, error)

	// Location insights
	UpsertLocationInsight(ctx context.Context, li *model.LocationInsight) error
	GetLocationInsight(ctx context.Context, propertyID string) (*model.LocationInsight, error)

	// Certificates
	CreateCertificate(ctx context.Context, c *model.Certificate) (*model.Certificate, error)
	UpdateCertificate(ctx context.Context, id string, u model.CertificateUpdate) error
	GetCertificate(ctx context.Context, id string) (*model.Certificate, error)
	ListCertificates(ctx context.Context, filter model.CertificateFilter) ([]model.Certificate, error)

	// Spaces
	CreateSpace(ctx context.Context, s *model.Space) (*model.Space, error)
	GetSpace(ctx context.Context, id string) (*model.Space, error)
	ListSpaces(ctx context.Context, filter model.SpaceFilter) ([]model.Space, int, error)

	// Mobile sessions
	CreateMobileSession(ctx context.Context, s *model.MobileSession) error

	// Maintenance
	FailStuckProperties(ctx context.Context, before time.Time, message string) (int, error)
	ExpireConfirmations(ctx context.Context, before time.Time, message string) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
