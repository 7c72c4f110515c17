// Package api exposes the pricing engine and marketplace over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/market"
	"github.com/sells-group/market-pricing/internal/model"
)

// Service is the marketplace surface the handlers call.
type Service interface {
	PriceBand(ctx context.Context, req market.JobRequest) (model.PriceBand, error)
	ScoreOffer(ctx context.Context, in model.OfferScoreInput) (model.OfferScore, error)
	RegisterProvider(ctx context.Context, req market.ProviderRequest) (*model.Provider, error)
	CreateJob(ctx context.Context, req market.JobRequest) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	SubmitOffer(ctx context.Context, req market.OfferRequest) (*model.Offer, error)
	RankedOffers(ctx context.Context, jobID string) ([]model.Offer, error)
	EstimatorStatus() string
}

// NewRouter builds the HTTP handler with middleware and routes.
func NewRouter(svc Service, cfg config.ServerConfig) http.Handler {
	timeout := time.Duration(cfg.RequestTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	h := &handler{svc: svc}
	r.Get("/health", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/price-bands", h.priceBand)
		r.Post("/offer-scores", h.offerScore)
		r.Post("/providers", h.createProvider)
		r.Post("/jobs", h.createJob)
		r.Get("/jobs/{id}", h.getJob)
		r.Post("/jobs/{id}/offers", h.submitOffer)
		r.Get("/jobs/{id}/offers", h.listOffers)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
