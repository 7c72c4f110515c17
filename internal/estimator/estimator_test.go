package estimator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/model"
	"github.com/sells-group/market-pricing/internal/resilience"
	"github.com/sells-group/market-pricing/pkg/anthropic"
)

func testEstimatorConfig() config.EstimatorConfig {
	return config.EstimatorConfig{
		Enabled:                 true,
		TimeoutSecs:             2,
		MaxTokens:               256,
		Temperature:             0.2,
		CircuitFailureThreshold: 3,
		CircuitResetSecs:        60,
	}
}

func reply(text string) *anthropic.Completion {
	return &anthropic.Completion{
		Text:  text,
		Usage: anthropic.Usage{InputTokens: 400, OutputTokens: 60},
	}
}

func transportRequest() model.BandRequest {
	km := 240.0
	return model.BandRequest{
		Category:    model.CategoryTransport,
		City:        "Antalya",
		Description: "airport transfer",
		DistanceKm:  &km,
	}
}

func TestEstimateBand_Success(t *testing.T) {
	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req anthropic.CompletionRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 256 &&
			req.CacheSystem && strings.Contains(req.System, "JSON") &&
			strings.Contains(req.Prompt, "Category: transport")
	})).Return(reply("Here you go:\n```json\n"+
		`{"min_amount": 1500.4, "max_amount": 2600, "recommended_amount": 2000, "reasoning": "long distance"}`+
		"\n```"), nil)

	e := New(client, "claude-haiku-4-5-20251001", testEstimatorConfig(), config.DefaultPricingConfig(), nil)
	band, err := e.EstimateBand(context.Background(), transportRequest())
	require.NoError(t, err)

	assert.Equal(t, 1500.0, band.MinAmount)
	assert.Equal(t, 2600.0, band.MaxAmount)
	assert.Equal(t, 2000.0, band.RecommendedAmount)
	assert.True(t, band.EstimatorGenerated)
	assert.Equal(t, "long distance", band.Reasoning)
	client.AssertExpectations(t)
}

func TestEstimateBand_ClientError(t *testing.T) {
	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("503 overloaded"))

	e := New(client, "m", testEstimatorConfig(), config.DefaultPricingConfig(), nil)
	band, err := e.EstimateBand(context.Background(), transportRequest())
	require.Error(t, err)
	assert.Nil(t, band)
	assert.Contains(t, err.Error(), "estimator: price_band request")
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestEstimateBand_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no json", "I cannot price this job."},
		{"missing max", `{"min_amount": 10, "recommended_amount": 20}`},
		{"unordered", `{"min_amount": 300, "max_amount": 100, "recommended_amount": 200}`},
		{"recommended outside", `{"min_amount": 100, "max_amount": 200, "recommended_amount": 500}`},
		{"zero min", `{"min_amount": 0, "max_amount": 200, "recommended_amount": 100}`},
		{"wrong type", `{"min_amount": "cheap", "max_amount": 200, "recommended_amount": 100}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &anthropic.MockClient{}
			client.On("Complete", mock.Anything, mock.Anything).Return(reply(tt.text), nil)

			e := New(client, "m", testEstimatorConfig(), config.DefaultPricingConfig(), nil)
			_, err := e.EstimateBand(context.Background(), transportRequest())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestEstimateBand_MalformedDoesNotTripBreaker(t *testing.T) {
	cfg := testEstimatorConfig()
	cfg.CircuitFailureThreshold = 1

	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(reply("not json"), nil)

	e := New(client, "m", cfg, config.DefaultPricingConfig(), nil)
	for i := 0; i < 3; i++ {
		_, err := e.EstimateBand(context.Background(), transportRequest())
		require.ErrorIs(t, err, ErrMalformedResponse)
	}
	client.AssertNumberOfCalls(t, "Complete", 3)
}

func TestEstimateBand_CircuitOpens(t *testing.T) {
	cfg := testEstimatorConfig()
	cfg.CircuitFailureThreshold = 2

	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	e := New(client, "m", cfg, config.DefaultPricingConfig(), nil)
	assert.Equal(t, "closed", Status(e))
	for i := 0; i < 2; i++ {
		_, err := e.EstimateBand(context.Background(), transportRequest())
		require.Error(t, err)
	}

	_, err := e.EstimateBand(context.Background(), transportRequest())
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, resilience.CircuitOpen, e.CircuitState())
	assert.Equal(t, "open", Status(e))
	client.AssertNumberOfCalls(t, "Complete", 2)
}

func TestEstimateBand_CallerCancelDoesNotTripBreaker(t *testing.T) {
	cfg := testEstimatorConfig()
	cfg.CircuitFailureThreshold = 2

	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("post messages: %w", context.Canceled))

	e := New(client, "m", cfg, config.DefaultPricingConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 4; i++ {
		_, err := e.EstimateBand(ctx, transportRequest())
		require.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, resilience.CircuitClosed, e.CircuitState())
	assert.Equal(t, 0, e.breaker.ConsecutiveFailures())
	client.AssertNumberOfCalls(t, "Complete", 4)
}

func TestUpstreamFailure(t *testing.T) {
	assert.False(t, upstreamFailure(nil))
	assert.False(t, upstreamFailure(context.Canceled))
	assert.True(t, upstreamFailure(context.DeadlineExceeded))
	assert.True(t, upstreamFailure(errors.New("503 overloaded")))
}

func TestEstimateBand_RateLimited(t *testing.T) {
	cfg := testEstimatorConfig()
	cfg.RatePerSec = 0.001
	cfg.Burst = 1

	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(reply(`{"min_amount": 100, "max_amount": 300, "recommended_amount": 200}`), nil)

	e := New(client, "m", cfg, config.DefaultPricingConfig(), nil)
	_, err := e.EstimateBand(context.Background(), transportRequest())
	require.NoError(t, err)

	_, err = e.EstimateBand(context.Background(), transportRequest())
	require.ErrorIs(t, err, ErrRateLimited)
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestEstimateScore_Success(t *testing.T) {
	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(reply(`{"score": 0.82, "reasoning": "fair price, fast"}`), nil)

	e := New(client, "m", testEstimatorConfig(), config.DefaultPricingConfig(), nil)
	score, err := e.EstimateScore(context.Background(), model.OfferScoreInput{
		OfferPrice:  1000,
		JobCategory: model.CategoryService,
		PriceBand:   model.PriceBand{MinAmount: 500, MaxAmount: 1500, RecommendedAmount: 1000},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.82, score.Score, 1e-9)
	assert.True(t, score.EstimatorGenerated)
	assert.Equal(t, "fair price, fast", score.Reasoning)
}

func TestEstimateScore_Clamped(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{`{"score": 1.7}`, 1},
		{`{"score": -0.3}`, 0},
		{`{"score": 0.5}`, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			client := &anthropic.MockClient{}
			client.On("Complete", mock.Anything, mock.Anything).Return(reply(tt.text), nil)

			e := New(client, "m", testEstimatorConfig(), config.DefaultPricingConfig(), nil)
			score, err := e.EstimateScore(context.Background(), model.OfferScoreInput{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, score.Score)
		})
	}
}

func TestEstimateScore_MissingScore(t *testing.T) {
	client := &anthropic.MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(reply(`{"reasoning": "n/a"}`), nil)

	e := New(client, "m", testEstimatorConfig(), config.DefaultPricingConfig(), nil)
	_, err := e.EstimateScore(context.Background(), model.OfferScoreInput{})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, FromConfig(cfg))
	assert.Nil(t, FromConfig(nil))

	cfg.Estimator = testEstimatorConfig()
	assert.Nil(t, FromConfig(cfg), "no credential means no estimator")

	cfg.Anthropic.Key = "sk-ant-test"
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	cfg.Pricing = config.DefaultPricingConfig()
	assert.NotNil(t, FromConfig(cfg))

	cfg.Estimator.Enabled = false
	assert.Nil(t, FromConfig(cfg))
}

func TestStatus_Disabled(t *testing.T) {
	assert.Equal(t, "disabled", Status(nil))
}
