// Package api exposes intake, confirmation, SMS, certificate and space
// endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/intake"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/notify"
	"github.com/sells-group/rumoo/internal/pipeline"
	"github.com/sells-group/rumoo/internal/spaces"
)

// maxBodyBytes caps JSON and form request bodies.
const maxBodyBytes = 1 << 20

// Ingestor accepts intake requests.
type Ingestor interface {
	Ingest(ctx context.Context, req intake.Request) (*intake.Result, error)
}

// Confirmer serves confirmation links.
type Confirmer interface {
	Lookup(ctx context.Context, token string) (*model.ConfirmationSummary, error)
	Confirm(ctx context.Context, token string, corr intake.Correction) (*intake.Result, error)
}

// Responder answers inbound text messages.
type Responder interface {
	Handle(ctx context.Context, in notify.Inbound) string
}

// Spaces manages spaces.
type Spaces interface {
	Create(ctx context.Context, sp *model.Space) (*model.Space, error)
	Get(ctx context.Context, id string) (*spaces.Detail, error)
	List(ctx context.Context, f model.SpaceFilter) (*spaces.Page, error)
	Certificates(ctx context.Context, spaceID string, tier model.Tier, latest bool) ([]spaces.CertificateRef, error)
}

// SpaceCertifier generates space certificates.
type SpaceCertifier interface {
	CertifySpace(ctx context.Context, req pipeline.SpaceRequest) (*model.Certificate, *model.SpaceCertificate, error)
}

// CertificateReader loads certificate records.
type CertificateReader interface {
	GetCertificate(ctx context.Context, id string) (*model.Certificate, error)
}

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the services behind the handlers.
type Deps struct {
	Ingestor     Ingestor
	Confirmer    Confirmer
	Responder    Responder
	Spaces       Spaces
	Certifier    SpaceCertifier
	Certificates CertificateReader
	Checks       []HealthCheck
}

// Handler serves the HTTP API.
type Handler struct {
	ingestor  Ingestor
	confirmer Confirmer
	responder Responder
	spaces    Spaces
	certifier SpaceCertifier
	certs     CertificateReader
	checks    []HealthCheck
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		ingestor:  d.Ingestor,
		confirmer: d.Confirmer,
		responder: d.Responder,
		spaces:    d.Spaces,
		certifier: d.Certifier,
		certs:     d.Certificates,
		checks:    d.Checks,
	}
}

// Register mounts the API endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", h.handleIngest)
		r.Get("/confirm/{token}", h.handleConfirmLookup)
		r.Post("/confirm/{token}", h.handleConfirm)
		r.Get("/certificates/{id}", h.handleGetCertificate)
		r.Post("/sms", h.handleSMS)

		r.Route("/spaces", func(r chi.Router) {
			r.Post("/", h.handleCreateSpace)
			r.Get("/", h.handleListSpaces)
			r.Get("/{id}", h.handleGetSpace)
			r.Get("/{id}/certificates", h.handleSpaceCertificates)
			r.Post("/{id}/generate-certificate", h.handleGenerateSpaceCertificate)
		})
	})
}

// RouterConfig configures the outer router.
type RouterConfig struct {
	CORSOrigins []string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter wraps h with request ids, logging, recovery and CORS.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	h.Register(r)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zap.L().Info("api: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(r.Context()); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}
