// Package spaces manages spaces described by static attributes and their
// certificates.
package spaces

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/scoring"
	"github.com/sells-group/rumoo/internal/store"
)

// DefaultLimit is the page size when none is given.
const DefaultLimit = 20

// ValidationError lists invalid fields of a submitted space.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "spaces: validation failed: " + strings.Join(e.Fields, "; ")
}

// CertificateRef is the short form of a certificate listed under a space.
type CertificateRef struct {
	ID        string                  `json:"id"`
	Tier      model.Tier              `json:"tier"`
	Status    model.CertificateStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}

// Detail is a space with its certificates.
type Detail struct {
	model.Space
	Certificates []CertificateRef `json:"certificates"`
}

// Page is one page of spaces.
type Page struct {
	Spaces []model.Space `json:"spaces"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Service wraps the store with space validation and listing rules.
type Service struct {
	store store.Store
}

// NewService creates a Service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create validates and stores a space.
func (s *Service) Create(ctx context.Context, sp *model.Space) (*model.Space, error) {
	if errs := scoring.ValidateSpace(sp); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	out, err := s.store.CreateSpace(ctx, sp)
	if err != nil {
		return nil, eris.Wrap(err, "spaces: create")
	}
	return out, nil
}

// Get returns a space with all its certificates, newest first.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	sp, err := s.store.GetSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	refs, err := s.Certificates(ctx, id, "", false)
	if err != nil {
		return nil, err
	}
	return &Detail{Space: *sp, Certificates: refs}, nil
}

// List pages through spaces.
func (s *Service) List(ctx context.Context, f model.SpaceFilter) (*Page, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	list, total, err := s.store.ListSpaces(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "spaces: list")
	}
	if list == nil {
		list = []model.Space{}
	}
	return &Page{Spaces: list, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Certificates lists a space's certificates, optionally for one tier. With
// latest set only the newest certificate per tier is kept.
func (s *Service) Certificates(ctx context.Context, spaceID string, tier model.Tier, latest bool) ([]CertificateRef, error) {
	certs, err := s.store.ListCertificates(ctx, model.CertificateFilter{SpaceID: spaceID, Tier: tier})
	if err != nil {
		return nil, eris.Wrap(err, "spaces: list certificates")
	}

	seen := make(map[model.Tier]bool)
	refs := make([]CertificateRef, 0, len(certs))
	for _, c := range certs {
		if latest {
			if seen[c.Tier] {
				continue
			}
			seen[c.Tier] = true
		}
		refs = append(refs, CertificateRef{
			ID:        c.ID,
			Tier:      c.Tier,
			Status:    c.Status,
			CreatedAt: c.CreatedAt,
		})
	}
	return refs, nil
}
