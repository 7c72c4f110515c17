// Package estimator asks a language model for price bands and offer scores.
// Every method returns an error on any failure; callers are expected to fall
// back to their deterministic heuristic rather than surface it.
package estimator

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/cost"
	"github.com/sells-group/market-pricing/internal/model"
	"github.com/sells-group/market-pricing/internal/resilience"
	"github.com/sells-group/market-pricing/pkg/anthropic"
)

const (
	defaultTimeout   = 8 * time.Second
	defaultMaxTokens = 512
)

var (
	// ErrRateLimited is returned when the local token bucket is empty.
	ErrRateLimited = eris.New("estimator: rate limited")
	// ErrMalformedResponse is returned when the model reply cannot be used.
	ErrMalformedResponse = eris.New("estimator: malformed response")
)

// Estimator produces model-generated bands and scores.
type Estimator interface {
	EstimateBand(ctx context.Context, req model.BandRequest) (*model.PriceBand, error)
	EstimateScore(ctx context.Context, in model.OfferScoreInput) (*model.OfferScore, error)
}

// LLMEstimator implements Estimator on top of the Anthropic messages API.
// It makes a single attempt per call, bounded by the configured timeout.
type LLMEstimator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	temp      float64
	timeout   time.Duration
	system    string
	limiter   *rate.Limiter
	breaker   *resilience.CircuitBreaker
	calc      *cost.Calculator
}

// New creates an LLMEstimator. pricing supplies the domain guidance that
// is embedded in the system prompt.
func New(client anthropic.Client, modelID string, cfg config.EstimatorConfig, pricing config.PricingConfig, calc *cost.Calculator) *LLMEstimator {
	e := &LLMEstimator{
		client:    client,
		model:     modelID,
		maxTokens: cfg.MaxTokens,
		temp:      cfg.Temperature,
		timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		system:    systemPrompt(pricing),
		calc:      calc,
	}
	cb := resilience.FromCircuitConfig("estimator", cfg.CircuitFailureThreshold, cfg.CircuitResetSecs)
	cb.ShouldTrip = upstreamFailure
	e.breaker = resilience.NewCircuitBreaker(cb)
	if e.maxTokens <= 0 {
		e.maxTokens = defaultMaxTokens
	}
	if e.timeout <= 0 {
		e.timeout = defaultTimeout
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return e
}

// upstreamFailure reports whether err counts against the model API. A
// caller that gave up says nothing about the upstream's health.
func upstreamFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// FromConfig returns an Estimator when the feature flag is on and a
// credential is configured, and nil otherwise. A nil Estimator means no
// outbound call is ever attempted.
func FromConfig(cfg *config.Config) Estimator {
	if cfg == nil || !cfg.EstimatorActive() {
		return nil
	}
	return New(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Estimator,
		cfg.Pricing,
		cost.FromConfig(cfg.Cost),
	)
}

// EstimateBand asks the model for a price band.
func (e *LLMEstimator) EstimateBand(ctx context.Context, req model.BandRequest) (*model.PriceBand, error) {
	text, err := e.complete(ctx, "price_band", bandPrompt(req))
	if err != nil {
		return nil, err
	}
	band, err := parseBand(text)
	if err != nil {
		return nil, err
	}
	return band, nil
}

// EstimateScore asks the model to score an offer.
func (e *LLMEstimator) EstimateScore(ctx context.Context, in model.OfferScoreInput) (*model.OfferScore, error) {
	text, err := e.complete(ctx, "offer_score", scorePrompt(in))
	if err != nil {
		return nil, err
	}
	score, err := parseScore(text)
	if err != nil {
		return nil, err
	}
	return score, nil
}

// complete sends a single request and returns the reply text. Parsing
// happens outside the breaker so malformed replies do not trip it.
func (e *LLMEstimator) complete(ctx context.Context, phase, prompt string) (string, error) {
	if e.limiter != nil && !e.limiter.Allow() {
		return "", ErrRateLimited
	}

	return resilience.ExecuteVal(ctx, e.breaker, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.client.Complete(ctx, anthropic.CompletionRequest{
			Model:       e.model,
			MaxTokens:   e.maxTokens,
			Temperature: e.temp,
			System:      e.system,
			CacheSystem: true,
			Prompt:      prompt,
		})
		if err != nil {
			return "", eris.Wrapf(err, "estimator: %s request", phase)
		}

		e.logUsage(phase, resp.Usage)
		return resp.Text, nil
	})
}

func (e *LLMEstimator) logUsage(phase string, u anthropic.Usage) {
	zap.L().Info("estimator: cost attribution",
		zap.String("model", e.model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheWriteTokens),
		zap.Int64("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd",
			e.calc.Claude(e.model, u.InputTokens, u.OutputTokens, u.CacheWriteTokens, u.CacheReadTokens)),
	)
}

// CircuitState reports the state of the breaker guarding the model API.
func (e *LLMEstimator) CircuitState() resilience.CircuitState {
	return e.breaker.State()
}

// Status summarizes est for health reporting: "disabled" when no estimator
// is configured, otherwise the breaker state when one is exposed.
func Status(est Estimator) string {
	if est == nil {
		return "disabled"
	}
	if cs, ok := est.(interface{ CircuitState() resilience.CircuitState }); ok {
		return cs.CircuitState().String()
	}
	return "enabled"
}
