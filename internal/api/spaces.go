package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/pipeline"
	"github.com/sells-group/rumoo/internal/spaces"
	"github.com/sells-group/rumoo/internal/store"
)

const (
	maxSpaceLimit  = 100
	msgInvalidTier = "tier must be 'normal' or 'pro'"
)

type spaceCreated struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type generateRequest struct {
	Force     bool                  `json:"force"`
	Overrides *model.StateOverrides `json:"overrides,omitempty"`
}

type generateResponse struct {
	CertificateID string                  `json:"certificate_id"`
	Status        model.CertificateStatus `json:"status"`
	Certificate   *model.SpaceCertificate `json:"certificate"`
}

type existsResponse struct {
	Error                 string `json:"error"`
	ExistingCertificateID string `json:"existing_certificate_id"`
	Message               string `json:"message"`
}

// handleCreateSpace handles POST /api/spaces.
func (h *Handler) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var sp model.Space
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&sp); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Validation error", []string{"body must be a JSON object"})
		return
	}

	created, err := h.spaces.Create(r.Context(), &sp)
	if err != nil {
		var ve *spaces.ValidationError
		if errors.As(err, &ve) {
			writeErrorDetails(w, http.StatusBadRequest, "Validation error", ve.Fields)
			return
		}
		zap.L().Error("api: create space", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, spaceCreated{ID: created.ID, Name: created.Name, CreatedAt: created.CreatedAt})
}

// handleListSpaces handles GET /api/spaces.
func (h *Handler) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.SpaceFilter{
		City:         q.Get("city"),
		PropertyType: q.Get("property_type"),
		Limit:        queryInt(q.Get("limit")),
		Offset:       queryInt(q.Get("offset")),
	}
	if f.Limit > maxSpaceLimit {
		f.Limit = maxSpaceLimit
	}

	page, err := h.spaces.List(r.Context(), f)
	if err != nil {
		zap.L().Error("api: list spaces", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleGetSpace handles GET /api/spaces/{id}.
func (h *Handler) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	d, err := h.spaces.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeSpaceLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSpaceCertificates handles GET /api/spaces/{id}/certificates.
func (h *Handler) handleSpaceCertificates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tier := model.Tier(r.URL.Query().Get("tier"))
	if tier != "" && !tier.IsValid() {
		writeErrorDetails(w, http.StatusBadRequest, "Invalid tier", msgInvalidTier)
		return
	}
	latest, _ := strconv.ParseBool(r.URL.Query().Get("latest"))

	if _, err := h.spaces.Get(r.Context(), id); err != nil {
		writeSpaceLookupError(w, err)
		return
	}
	refs, err := h.spaces.Certificates(r.Context(), id, tier, latest)
	if err != nil {
		zap.L().Error("api: list space certificates", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"certificates": refs})
}

// handleGenerateSpaceCertificate handles
// POST /api/spaces/{id}/generate-certificate.
func (h *Handler) handleGenerateSpaceCertificate(w http.ResponseWriter, r *http.Request) {
	tier := model.TierNormal
	if t := r.URL.Query().Get("tier"); t != "" {
		tier = model.Tier(t)
	}
	if !tier.IsValid() {
		writeErrorDetails(w, http.StatusBadRequest, "Invalid tier", msgInvalidTier)
		return
	}

	var body generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeErrorDetails(w, http.StatusBadRequest, "Validation error", []string{"body must be a JSON object"})
		return
	}

	rec, doc, err := h.certifier.CertifySpace(r.Context(), pipeline.SpaceRequest{
		SpaceID:   chi.URLParam(r, "id"),
		Tier:      tier,
		Force:     body.Force,
		Overrides: body.Overrides,
	})
	if err != nil {
		var exists *pipeline.ExistsError
		switch {
		case errors.As(err, &exists):
			writeJSON(w, http.StatusConflict, existsResponse{
				Error:                 "Certificate already exists",
				ExistingCertificateID: exists.CertificateID,
				Message:               "Use force=true to regenerate",
			})
		case errors.Is(err, pipeline.ErrInvalidTier):
			writeErrorDetails(w, http.StatusBadRequest, "Invalid tier", msgInvalidTier)
		case store.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Space not found")
		default:
			zap.L().Error("api: generate space certificate", zap.Error(err))
			writeErrorDetails(w, http.StatusInternalServerError, "Generation failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, generateResponse{
		CertificateID: rec.ID,
		Status:        rec.Status,
		Certificate:   doc,
	})
}

func writeSpaceLookupError(w http.ResponseWriter, err error) {
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Space not found")
		return
	}
	zap.L().Error("api: get space", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// queryInt parses a non-negative integer parameter. Anything else is 0.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
