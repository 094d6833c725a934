package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/store"
)

type certificateView struct {
	ID           string                  `json:"id"`
	PropertyID   *string                 `json:"property_id,omitempty"`
	SpaceID      *string                 `json:"space_id,omitempty"`
	Tier         model.Tier              `json:"tier"`
	Status       model.CertificateStatus `json:"status"`
	Version      string                  `json:"version"`
	Certificate  json.RawMessage         `json:"certificate"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

func viewCertificate(c *model.Certificate) certificateView {
	doc := c.Document
	if len(doc) == 0 {
		doc = json.RawMessage("null")
	}
	return certificateView{
		ID:           c.ID,
		PropertyID:   c.PropertyID,
		SpaceID:      c.SpaceID,
		Tier:         c.Tier,
		Status:       c.Status,
		Version:      c.Version,
		Certificate:  doc,
		ErrorMessage: c.ErrorMessage,
		CreatedAt:    c.CreatedAt,
		CompletedAt:  c.CompletedAt,
	}
}

// handleGetCertificate handles GET /api/certificates/{id}.
func (h *Handler) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := h.certs.GetCertificate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Certificate not found")
			return
		}
		zap.L().Error("api: get certificate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, viewCertificate(c))
}
