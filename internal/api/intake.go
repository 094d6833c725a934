package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/intake"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/notify"
	"github.com/sells-group/rumoo/internal/pipeline"
)

const msgRunInProgress = "Certificate generation already in progress"

type createdResponse struct {
	CertificateID string           `json:"certificate_id"`
	RedirectURL   string           `json:"redirect_url"`
	PropertyID    string           `json:"property_id"`
	Mode          model.IngestMode `json:"mode"`
}

type pendingResponse struct {
	Status            string           `json:"status"`
	PropertyID        string           `json:"property_id"`
	ConfirmationURL   string           `json:"confirmation_url"`
	ConfirmationToken string           `json:"confirmation_token"`
	Message           string           `json:"message"`
	Mode              model.IngestMode `json:"mode"`
}

type confirmedResponse struct {
	CertificateID string `json:"certificate_id"`
	RedirectURL   string `json:"redirect_url"`
}

// handleIngest handles POST /api/ingest.
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, intake.MsgInvalidBody)
		return
	}
	req, err := intake.DecodeRequest(body)
	if err != nil {
		h.writeIntakeError(w, r, err)
		return
	}

	res, err := h.ingestor.Ingest(r.Context(), req)
	if err != nil {
		h.writeIntakeError(w, r, err)
		return
	}

	if res.Kind == intake.KindPending {
		writeJSON(w, http.StatusAccepted, pendingResponse{
			Status:            string(intake.KindPending),
			PropertyID:        res.PropertyID,
			ConfirmationURL:   res.ConfirmationURL,
			ConfirmationToken: res.ConfirmationToken,
			Message:           res.Message,
			Mode:              res.Mode,
		})
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{
		CertificateID: res.CertificateID,
		RedirectURL:   res.RedirectURL,
		PropertyID:    res.PropertyID,
		Mode:          res.Mode,
	})
}

func (h *Handler) writeIntakeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *intake.ValidationError
		unsupported *intake.UnsupportedSourceError
		invalid     *intake.InvalidRequestError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &unsupported):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalid):
		if invalid.Details == "" {
			writeError(w, http.StatusBadRequest, intake.MsgInvalidBody)
			return
		}
		writeErrorDetails(w, http.StatusBadRequest, intake.MsgInvalidBody, invalid.Details)
	case errors.Is(err, pipeline.ErrRunInProgress):
		writeError(w, http.StatusConflict, msgRunInProgress)
	default:
		zap.L().Error("api: ingest failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeErrorDetails(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

// handleConfirmLookup handles GET /api/confirm/{token}.
func (h *Handler) handleConfirmLookup(w http.ResponseWriter, r *http.Request) {
	summary, err := h.confirmer.Lookup(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeConfirmError(w, r, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleConfirm handles POST /api/confirm/{token}. An unreadable body is
// treated as an empty correction so link state is reported first.
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var corr intake.Correction
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&corr); err != nil {
		corr = intake.Correction{}
	}

	res, err := h.confirmer.Confirm(r.Context(), chi.URLParam(r, "token"), corr)
	if err != nil {
		h.writeConfirmError(w, r, err, "Pipeline error")
		return
	}
	writeJSON(w, http.StatusOK, confirmedResponse{
		CertificateID: res.CertificateID,
		RedirectURL:   res.RedirectURL,
	})
}

func (h *Handler) writeConfirmError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		notFound   *intake.NotFoundError
		confirmed  *intake.AlreadyConfirmedError
		validation *intake.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &confirmed):
		writeError(w, http.StatusGone, confirmed.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, pipeline.ErrRunInProgress):
		writeError(w, http.StatusConflict, msgRunInProgress)
	default:
		zap.L().Error("api: confirmation failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeErrorDetails(w, http.StatusInternalServerError, fallback, err.Error())
	}
}

// handleSMS handles the Twilio-style form webhook POST /api/sms. It always
// answers 200 with a TwiML reply.
func (h *Handler) handleSMS(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		zap.L().Warn("api: unreadable sms form", zap.Error(err))
	}
	reply := h.responder.Handle(r.Context(), notify.Inbound{
		From: r.PostFormValue("From"),
		Body: r.PostFormValue("Body"),
	})

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(notify.TwiML(reply))
}
