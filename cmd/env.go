package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/certificate"
	"github.com/sells-group/rumoo/internal/enrich"
	"github.com/sells-group/rumoo/internal/events"
	"github.com/sells-group/rumoo/internal/intake"
	"github.com/sells-group/rumoo/internal/metrics"
	"github.com/sells-group/rumoo/internal/notify"
	"github.com/sells-group/rumoo/internal/pipeline"
	rredis "github.com/sells-group/rumoo/internal/redis"
	"github.com/sells-group/rumoo/internal/resilience"
	"github.com/sells-group/rumoo/internal/scoring"
	"github.com/sells-group/rumoo/internal/scrape"
	"github.com/sells-group/rumoo/internal/spaces"
	"github.com/sells-group/rumoo/internal/store"
	anthropicpkg "github.com/sells-group/rumoo/pkg/anthropic"
	"github.com/sells-group/rumoo/pkg/apify"
	"github.com/sells-group/rumoo/pkg/geocode"
	"github.com/sells-group/rumoo/pkg/google"
)

// Guard names, also used as the breaker metric label.
const (
	serviceGeocode = "geocode"
	servicePlaces  = "google_places"
	serviceVision  = "anthropic_vision"
	serviceApify   = "apify"
)

// appEnv holds the store, clients and services shared by the commands.
type appEnv struct {
	Store     store.Store
	Redis     *rredis.Client // may be nil
	Publisher *events.Publisher
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Pipeline  *pipeline.Pipeline
	Router    *intake.Router
	Confirmer *intake.Confirmer
	Responder *notify.Responder
	Spaces    *spaces.Service
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Publisher != nil {
		if err := e.Publisher.Close(); err != nil {
			zap.L().Warn("close event publisher", zap.Error(err))
		}
	}
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the store, connects the optional backends and wires the
// pipeline and intake services. Callers should defer env.Close().
func initEnv(ctx context.Context, command string) (*appEnv, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st}

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env.Redis, err = rredis.New(ctx, cfg.Redis)
	if err != nil {
		// Redis only backs the cache and run guard; run without both.
		zap.L().Warn("redis unavailable, continuing without cache and run guard", zap.Error(err))
		env.Redis = nil
	}

	env.Publisher, err = events.Dial(cfg.RabbitMQ)
	if err != nil {
		zap.L().Warn("rabbitmq unavailable, certificate events disabled", zap.Error(err))
		env.Publisher = nil
	}

	env.Registry = prometheus.NewRegistry()
	env.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	env.Metrics = metrics.New(env.Registry)

	guards := resilience.NewGuards(cfg.Resilience, func(name string, to resilience.State) {
		env.Metrics.SetBreakerState(name, float64(to))
	})

	env.Pipeline = buildPipeline(env, guards)
	env.Router = intake.NewRouter(st, env.Pipeline, buildListingScraper(guards), cfg.Server.AppURL,
		intake.WithMetrics(env.Metrics))
	env.Confirmer = intake.NewConfirmer(st, env.Router)
	env.Responder = notify.NewResponder(env.Router, st)
	env.Spaces = spaces.NewService(st)

	return env, nil
}

func buildPipeline(env *appEnv, guards *resilience.Guards) *pipeline.Pipeline {
	geoOpts := []geocode.Option{
		geocode.WithGoogleAPIKey(cfg.Google.Key),
		geocode.WithBaseURL(cfg.Google.MapsBaseURL),
		geocode.WithRateLimit(cfg.Google.RateLimit),
	}
	if env.Redis != nil {
		ttl := time.Duration(cfg.Google.GeocodeCacheHr) * time.Hour
		geoOpts = append(geoOpts, geocode.WithCache(rredis.NewGeocodeCache(env.Redis, ttl)))
	}
	geocoder := enrich.NewGeocoder(geocode.NewClient(geoOpts...), guards.For(serviceGeocode))

	var locator enrich.Locator
	if cfg.Google.Key != "" {
		places := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.MapsBaseURL))
		locator = enrich.NewAmenityLocator(places, guards.For(servicePlaces), cfg.Google.RateLimit)
	} else {
		zap.L().Debug("RUMOO_GOOGLE_KEY not set, using default amenity minutes")
	}
	location := enrich.NewLocationAnalyzer(locator)

	var anthropicClient anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		anthropicClient = anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	} else {
		zap.L().Debug("RUMOO_ANTHROPIC_KEY not set, photo analysis disabled")
	}
	vision := enrich.NewVisionAnalyzer(anthropicClient, guards.For(serviceVision), cfg.Anthropic.VisionModel, cfg.Pipeline.MaxPhotos)

	var editorial scoring.EditorialGenerator = scoring.TemplateEditorial{}
	if cfg.Editorial.Provider == "anthropic" && anthropicClient != nil {
		editorial = scoring.NewAnthropicEditorial(anthropicClient, cfg.Anthropic.EditorialModel, cfg.Anthropic.MaxTokens)
	}
	builder := certificate.NewBuilder(editorial)

	opts := []pipeline.Option{pipeline.WithMetrics(env.Metrics)}
	if env.Redis != nil {
		opts = append(opts, pipeline.WithRunGuard(rredis.NewRunGuard(env.Redis, cfg.Pipeline.RunLockTTL())))
	}
	if env.Publisher != nil {
		opts = append(opts, pipeline.WithPublisher(env.Publisher))
	}
	return pipeline.New(env.Store, geocoder, location, vision, builder, cfg.Pipeline, opts...)
}

// buildListingScraper chains Apify, static HTML and headless browser
// scrapers in that order, skipping the ones not configured.
func buildListingScraper(guards *resilience.Guards) *enrich.ListingScraper {
	timeout := time.Duration(cfg.Scrape.TimeoutSecs) * time.Second

	var scrapers []scrape.Scraper
	if cfg.Apify.Key != "" {
		client := apify.NewClient(cfg.Apify.Key,
			apify.WithBaseURL(cfg.Apify.BaseURL),
			apify.WithActor(cfg.Apify.Actor),
			apify.WithRunTimeout(time.Duration(cfg.Apify.TimeoutSecs)*time.Second),
		)
		scrapers = append(scrapers, scrape.NewApifyScraper(client, guards.For(serviceApify)))
	}
	if cfg.Scrape.HTMLEnabled {
		scrapers = append(scrapers, scrape.NewHTMLScraper(cfg.Scrape.UserAgent, timeout))
	}
	if cfg.Scrape.BrowserEnabled {
		scrapers = append(scrapers, scrape.NewBrowserScraper(cfg.Scrape.ChromePath, cfg.Scrape.UserAgent, timeout))
	}
	return enrich.NewListingScraper(scrape.NewChain(scrapers...))
}
