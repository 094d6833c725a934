package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/certificate"
	"github.com/sells-group/rumoo/internal/model"
)

// ErrCertificateExists is returned when a finished certificate already exists
// for the space and tier and regeneration was not forced.
var ErrCertificateExists = eris.New("pipeline: certificate already exists")

// ErrInvalidTier is returned for a tier other than normal or pro.
var ErrInvalidTier = eris.New("pipeline: tier must be 'normal' or 'pro'")

// ExistsError carries the id of the certificate that blocked generation.
type ExistsError struct {
	CertificateID string
}

func (e *ExistsError) Error() string { return ErrCertificateExists.Error() }

// Is matches ErrCertificateExists.
func (e *ExistsError) Is(target error) bool { return target == ErrCertificateExists }

// SpaceRequest asks for a space certificate.
type SpaceRequest struct {
	SpaceID   string
	Tier      model.Tier
	Force     bool
	Overrides *model.StateOverrides
}

type spaceInputs struct {
	Space     *model.Space          `json:"space"`
	Tier      model.Tier            `json:"tier"`
	Overrides *model.StateOverrides `json:"overrides,omitempty"`
}

// CertifySpace generates a certificate for a space. The record is created in
// processing state first so a failed generation leaves an error record.
func (p *Pipeline) CertifySpace(ctx context.Context, req SpaceRequest) (*model.Certificate, *model.SpaceCertificate, error) {
	if !req.Tier.IsValid() {
		return nil, nil, ErrInvalidTier
	}
	log := zap.L().With(zap.String("space_id", req.SpaceID), zap.String("tier", string(req.Tier)))

	sp, err := p.store.GetSpace(ctx, req.SpaceID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: get space")
	}

	if !req.Force {
		existing, err := p.store.ListCertificates(ctx, model.CertificateFilter{
			SpaceID: req.SpaceID,
			Tier:    req.Tier,
			Status:  model.CertificateStatusDone,
			Limit:   1,
		})
		if err != nil {
			return nil, nil, eris.Wrap(err, "pipeline: list space certificates")
		}
		if len(existing) > 0 {
			return nil, nil, &ExistsError{CertificateID: existing[0].ID}
		}
	}

	inputs, err := json.Marshal(spaceInputs{Space: sp, Tier: req.Tier, Overrides: req.Overrides})
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: marshal source inputs")
	}
	rec, err := p.store.CreateCertificate(ctx, &model.Certificate{
		SpaceID:      &req.SpaceID,
		Tier:         req.Tier,
		Status:       model.CertificateStatusProcessing,
		Version:      model.CertificateVersion,
		SourceInputs: inputs,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: create space certificate")
	}
	log = log.With(zap.String("certificate_id", rec.ID))

	var doc *model.SpaceCertificate
	err = p.trackStage(log, "space_certificate", func() error {
		var buildErr error
		doc, buildErr = p.builder.Space(ctx, certificate.SpaceInput{Space: sp, Tier: req.Tier, Overrides: req.Overrides})
		if buildErr != nil {
			return buildErr
		}
		doc.Meta.ID = rec.ID
		raw, mErr := json.Marshal(doc)
		if mErr != nil {
			return eris.Wrap(mErr, "pipeline: marshal certificate")
		}

		completed := p.now().UTC()
		status := model.CertificateStatusDone
		if uErr := p.store.UpdateCertificate(ctx, rec.ID, model.CertificateUpdate{
			Status:      &status,
			Document:    raw,
			CompletedAt: &completed,
		}); uErr != nil {
			return eris.Wrap(uErr, "pipeline: save space certificate")
		}
		rec.Status, rec.Document, rec.CompletedAt = status, raw, &completed
		return nil
	})
	if err != nil {
		msg := err.Error()
		status := model.CertificateStatusError
		if uErr := p.store.UpdateCertificate(ctx, rec.ID, model.CertificateUpdate{
			Status:       &status,
			ErrorMessage: &msg,
		}); uErr != nil {
			log.Error("pipeline: failed to record certificate error", zap.Error(uErr))
		}
		return rec, nil, err
	}

	p.publish(ctx, model.CertificateReady{
		CertificateID: rec.ID,
		SpaceID:       req.SpaceID,
		Tier:          req.Tier,
		Version:       model.CertificateVersion,
		CompletedAt:   *rec.CompletedAt,
	})
	return rec, doc, nil
}
