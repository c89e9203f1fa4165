package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/vaultdrop-server/internal/api/http/handler"
	"github.com/dtroode/vaultdrop-server/internal/api/http/middleware"
	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

// Services are the business operations exposed over HTTP.
type Services struct {
	Checkout    handler.CheckoutService
	Webhook     handler.WebhookService
	Media       handler.MediaService
	Progression handler.ProgressionService
	Library     handler.LibraryService
	DB          handler.Pinger
}

// Config holds transport parameters.
type Config struct {
	AllowedOrigins    []string
	RequestTimeout    time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	DefaultWeek       string
}

// Router builds the public HTTP API.
type Router struct {
	services       Services
	tokenParser    model.TokenParser
	contextManager model.ContextManager
	cfg            Config
	logger         *logger.Logger
}

func New(
	services Services,
	tokenParser model.TokenParser,
	contextManager model.ContextManager,
	cfg Config,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		tokenParser:    tokenParser,
		contextManager: contextManager,
		cfg:            cfg,
		logger:         logger,
	}
}

// Register returns the HTTP handler with every route and middleware attached.
func (rt *Router) Register() http.Handler {
	logging := middleware.NewLogging(rt.logger)
	authenticate := middleware.NewAuthenticate(rt.tokenParser, rt.contextManager, rt.logger)

	checkout := handler.NewCheckout(rt.services.Checkout, rt.contextManager, rt.logger)
	webhook := handler.NewWebhook(rt.services.Webhook, rt.logger)
	media := handler.NewMedia(rt.services.Media, rt.contextManager, rt.cfg.DefaultWeek, rt.logger)
	bundle := handler.NewBundle(rt.services.Progression, rt.contextManager, rt.logger)
	library := handler.NewLibrary(rt.services.Library, rt.contextManager, rt.logger)
	health := handler.NewHealth(rt.services.DB, rt.logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logging.Handle)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", health.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
		if rt.cfg.RequestTimeout > 0 {
			api.Use(chimiddleware.Timeout(rt.cfg.RequestTimeout))
		}

		api.Post("/webhook/stripe", webhook.Receive)

		api.Group(func(authed chi.Router) {
			authed.Use(authenticate.Handle)

			authed.With(rt.userRateLimit()).Post("/checkout", checkout.Create)
			authed.Get("/media-url", media.URL)

			authed.Route("/bundles/{periodId}/{tier}", func(b chi.Router) {
				b.Get("/", bundle.State)
				b.With(rt.userRateLimit()).Post("/advance", bundle.Advance)
				b.With(rt.userRateLimit()).Post("/items/{n}/reveal", bundle.Reveal)
			})

			authed.Get("/library", library.Get)
			authed.Get("/periods", library.Periods)
			authed.Get("/periods/active", library.ActivePeriod)
			authed.Delete("/account/entitlements", library.Reset)
		})
	})

	return r
}

// userRateLimit limits write routes per authenticated user, falling back to the client IP.
func (rt *Router) userRateLimit() func(http.Handler) http.Handler {
	if rt.cfg.RateLimitRequests <= 0 || rt.cfg.RateLimitWindow <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	keyByUser := func(r *http.Request) (string, error) {
		if userID, ok := rt.contextManager.GetUserIDFromContext(r.Context()); ok {
			return userID.String(), nil
		}
		return httprate.KeyByIP(r)
	}

	return httprate.Limit(
		rt.cfg.RateLimitRequests,
		rt.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(keyByUser, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			handler.WriteError(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
}
