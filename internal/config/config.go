package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Estimator EstimatorConfig `yaml:"estimator" mapstructure:"estimator"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Cost      CostConfig      `yaml:"cost" mapstructure:"cost"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EstimatorConfig controls the language-model estimator. The estimator is
// only constructed when Enabled is true and an API key is present.
type EstimatorConfig struct {
	Enabled                 bool    `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens               int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature             float64 `yaml:"temperature" mapstructure:"temperature"`
	RatePerSec              float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst                   int     `yaml:"burst" mapstructure:"burst"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// CategoryRate is the base (min, max) rate pair for a job category, in
// whole units of the marketplace currency.
type CategoryRate struct {
	BaseMin float64 `yaml:"base_min" mapstructure:"base_min"`
	BaseMax float64 `yaml:"base_max" mapstructure:"base_max"`
}

// PricingConfig holds the heuristic price band calibration.
type PricingConfig struct {
	Currency          string                  `yaml:"currency" mapstructure:"currency"`
	Categories        map[string]CategoryRate `yaml:"categories" mapstructure:"categories"`
	PerKmRate         float64                 `yaml:"per_km_rate" mapstructure:"per_km_rate"`
	PerPassengerRate  float64                 `yaml:"per_passenger_rate" mapstructure:"per_passenger_rate"`
	DefaultDistanceKm float64                 `yaml:"default_distance_km" mapstructure:"default_distance_km"`
	DefaultPassengers int                     `yaml:"default_passengers" mapstructure:"default_passengers"`
	CityMultipliers   map[string]float64      `yaml:"city_multipliers" mapstructure:"city_multipliers"`
}

// ETAStep grants Credit to offers whose ETA is at most MaxMinutes.
type ETAStep struct {
	MaxMinutes int     `yaml:"max_minutes" mapstructure:"max_minutes"`
	Credit     float64 `yaml:"credit" mapstructure:"credit"`
}

// ScoringConfig holds the heuristic offer score weights. The maximum
// contributions (PriceWeight, RatingWeight, VerifiedBonus, the best ETA
// credit and ValueBaseline) sum to 1.0.
type ScoringConfig struct {
	PriceWeight           float64   `yaml:"price_weight" mapstructure:"price_weight"`
	UnderpricedCredit     float64   `yaml:"underpriced_credit" mapstructure:"underpriced_credit"`
	OverpriceEdgeFraction float64   `yaml:"overprice_edge_fraction" mapstructure:"overprice_edge_fraction"`
	OverpriceCutoffRatio  float64   `yaml:"overprice_cutoff_ratio" mapstructure:"overprice_cutoff_ratio"`
	RatingWeight          float64   `yaml:"rating_weight" mapstructure:"rating_weight"`
	VerifiedBonus         float64   `yaml:"verified_bonus" mapstructure:"verified_bonus"`
	ETASteps              []ETAStep `yaml:"eta_steps" mapstructure:"eta_steps"`
	SlowETACredit         float64   `yaml:"slow_eta_credit" mapstructure:"slow_eta_credit"`
	ValueBaseline         float64   `yaml:"value_baseline" mapstructure:"value_baseline"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// CostConfig holds estimator token pricing used for cost attribution.
type CostConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultPricingConfig returns the marketplace's calibrated heuristic rates.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Currency: "TRY",
		Categories: map[string]CategoryRate{
			"transport": {BaseMin: 50, BaseMax: 150},
			"tour":      {BaseMin: 150, BaseMax: 600},
			"service":   {BaseMin: 100, BaseMax: 500},
			"financing": {BaseMin: 500, BaseMax: 5000},
		},
		PerKmRate:         8,
		PerPassengerRate:  150,
		DefaultDistanceKm: 10,
		DefaultPassengers: 2,
		CityMultipliers: map[string]float64{
			"istanbul":   1.0,
			"ankara":     0.9,
			"izmir":      0.95,
			"antalya":    1.15,
			"bodrum":     1.2,
			"cappadocia": 1.1,
			"trabzon":    0.85,
		},
	}
}

// DefaultScoringConfig returns the heuristic offer score weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PriceWeight:           0.40,
		UnderpricedCredit:     0.10,
		OverpriceEdgeFraction: 0.5,
		OverpriceCutoffRatio:  0.5,
		RatingWeight:          0.25,
		VerifiedBonus:         0.05,
		ETASteps: []ETAStep{
			{MaxMinutes: 15, Credit: 0.20},
			{MaxMinutes: 30, Credit: 0.15},
			{MaxMinutes: 60, Credit: 0.10},
		},
		SlowETACredit: 0.05,
		ValueBaseline: 0.10,
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "market.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("estimator.enabled", true)
	v.SetDefault("estimator.timeout_secs", 8)
	v.SetDefault("estimator.max_tokens", 512)
	v.SetDefault("estimator.temperature", 0.2)
	v.SetDefault("estimator.rate_per_sec", 5.0)
	v.SetDefault("estimator.burst", 10)
	v.SetDefault("estimator.circuit_failure_threshold", 5)
	v.SetDefault("estimator.circuit_reset_secs", 30)

	pricing := DefaultPricingConfig()
	v.SetDefault("pricing.currency", pricing.Currency)
	v.SetDefault("pricing.per_km_rate", pricing.PerKmRate)
	v.SetDefault("pricing.per_passenger_rate", pricing.PerPassengerRate)
	v.SetDefault("pricing.default_distance_km", pricing.DefaultDistanceKm)
	v.SetDefault("pricing.default_passengers", pricing.DefaultPassengers)
	categories := make(map[string]any, len(pricing.Categories))
	for name, r := range pricing.Categories {
		categories[name] = map[string]any{"base_min": r.BaseMin, "base_max": r.BaseMax}
	}
	v.SetDefault("pricing.categories", categories)
	cities := make(map[string]any, len(pricing.CityMultipliers))
	for city, m := range pricing.CityMultipliers {
		cities[city] = m
	}
	v.SetDefault("pricing.city_multipliers", cities)

	scoring := DefaultScoringConfig()
	v.SetDefault("scoring.price_weight", scoring.PriceWeight)
	v.SetDefault("scoring.underpriced_credit", scoring.UnderpricedCredit)
	v.SetDefault("scoring.overprice_edge_fraction", scoring.OverpriceEdgeFraction)
	v.SetDefault("scoring.overprice_cutoff_ratio", scoring.OverpriceCutoffRatio)
	v.SetDefault("scoring.rating_weight", scoring.RatingWeight)
	v.SetDefault("scoring.verified_bonus", scoring.VerifiedBonus)
	v.SetDefault("scoring.slow_eta_credit", scoring.SlowETACredit)
	v.SetDefault("scoring.value_baseline", scoring.ValueBaseline)
	steps := make([]map[string]any, len(scoring.ETASteps))
	for i, s := range scoring.ETASteps {
		steps[i] = map[string]any{"max_minutes": s.MaxMinutes, "credit": s.Credit}
	}
	v.SetDefault("scoring.eta_steps", steps)

	v.SetDefault("cost.anthropic", map[string]any{
		"claude-haiku-4-5-20251001": map[string]any{
			"input": 0.80, "output": 4.00, "cache_write_mul": 1.25, "cache_read_mul": 0.1,
		},
		"claude-sonnet-4-5-20250929": map[string]any{
			"input": 3.00, "output": 15.00, "cache_write_mul": 1.25, "cache_read_mul": 0.1,
		},
	})
}

// EstimatorActive reports whether the language-model estimator should be
// constructed: the feature flag is on and a credential is configured.
func (c *Config) EstimatorActive() bool {
	return c.Estimator.Enabled && strings.TrimSpace(c.Anthropic.Key) != ""
}

// Validate checks settings that every command depends on.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Estimator.Enabled {
		if c.Estimator.TimeoutSecs <= 0 {
			errs = append(errs, "estimator.timeout_secs must be > 0")
		}
		if c.Estimator.MaxTokens <= 0 {
			errs = append(errs, "estimator.max_tokens must be > 0")
		}
		if c.Estimator.Temperature < 0 || c.Estimator.Temperature > 1 {
			errs = append(errs, "estimator.temperature must be between 0 and 1")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
