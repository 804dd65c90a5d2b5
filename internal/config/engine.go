package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EngineConfig carries the tunable constants of the pricing and matching
// engines. These are operator-adjustable data, not business rules baked
// into code.
type EngineConfig struct {
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Matching MatchingConfig `mapstructure:"matching"`
}

type PricingConfig struct {
	// LoyaltyTenureCeilingYears caps the tenure that feeds the loyalty
	// discount; a buyer at or beyond the ceiling gets the full discount.
	LoyaltyTenureCeilingYears float64 `mapstructure:"loyaltyTenureCeilingYears"`
	// GuestRangeMultiplier bounds the guest quote envelope at
	// base_premium * multiplier.
	GuestRangeMultiplier float64 `mapstructure:"guestRangeMultiplier"`
}

type MatchingConfig struct {
	Weights ScoreWeights `mapstructure:"weights"`
	// CoverageAdequacyLimit is the coverage limit, in minor currency
	// units, that earns a full coverage-adequacy score.
	CoverageAdequacyLimit int64 `mapstructure:"coverageAdequacyLimit"`
	// BudgetDecaySpan controls how fast premium fit decays past the
	// budget midpoint, expressed as a multiple of the budget upper bound.
	BudgetDecaySpan float64 `mapstructure:"budgetDecaySpan"`
	MaxReasons      int     `mapstructure:"maxReasons"`
	// ExperimentVariants lists the impression experiment buckets.
	ExperimentVariants []string `mapstructure:"experimentVariants"`
}

type ScoreWeights struct {
	PremiumFit     float64 `mapstructure:"premiumFit"`
	Coverage       float64 `mapstructure:"coverage"`
	ConditionMatch float64 `mapstructure:"conditionMatch"`
	Trust          float64 `mapstructure:"trust"`
	SmokerCompat   float64 `mapstructure:"smokerCompat"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Pricing: PricingConfig{
			LoyaltyTenureCeilingYears: 10,
			GuestRangeMultiplier:      3,
		},
		Matching: MatchingConfig{
			Weights: ScoreWeights{
				PremiumFit:     0.30,
				Coverage:       0.25,
				ConditionMatch: 0.20,
				Trust:          0.15,
				SmokerCompat:   0.10,
			},
			CoverageAdequacyLimit: 50_000_000,
			BudgetDecaySpan:       2.0,
			MaxReasons:            4,
			ExperimentVariants:    []string{"control", "treatment"},
		},
	}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("engine")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/bemasathi")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BEMASATHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.pricing", defaults.Pricing)
	v.SetDefault("engine.matching", defaults.Matching)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &EngineConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("engine config reload failed (%s): %v", e.Name, err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

// StaticEngineConfigHolder wraps a fixed configuration with no file
// watching. Intended for tests and one-shot tools.
func StaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	h := &EngineConfigHolder{}
	h.current.Store(withEngineDefaults(cfg))
	return h
}

func (h *EngineConfigHolder) reload(v *viper.Viper) error {
	var cfg EngineConfig
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return err
	}
	cfg = withEngineDefaults(cfg)
	h.current.Store(cfg)
	return nil
}

// Current returns the most recently loaded engine configuration.
func (h *EngineConfigHolder) Current() EngineConfig {
	if cfg, ok := h.current.Load().(EngineConfig); ok {
		return cfg
	}
	return DefaultEngineConfig()
}

func withEngineDefaults(cfg EngineConfig) EngineConfig {
	defaults := DefaultEngineConfig()
	if cfg.Pricing.LoyaltyTenureCeilingYears <= 0 {
		cfg.Pricing.LoyaltyTenureCeilingYears = defaults.Pricing.LoyaltyTenureCeilingYears
	}
	if cfg.Pricing.GuestRangeMultiplier <= 1 {
		cfg.Pricing.GuestRangeMultiplier = defaults.Pricing.GuestRangeMultiplier
	}
	w := cfg.Matching.Weights
	if w.PremiumFit <= 0 && w.Coverage <= 0 && w.ConditionMatch <= 0 && w.Trust <= 0 && w.SmokerCompat <= 0 {
		cfg.Matching.Weights = defaults.Matching.Weights
	}
	if cfg.Matching.CoverageAdequacyLimit <= 0 {
		cfg.Matching.CoverageAdequacyLimit = defaults.Matching.CoverageAdequacyLimit
	}
	if cfg.Matching.BudgetDecaySpan <= 1 {
		cfg.Matching.BudgetDecaySpan = defaults.Matching.BudgetDecaySpan
	}
	if cfg.Matching.MaxReasons <= 0 {
		cfg.Matching.MaxReasons = defaults.Matching.MaxReasons
	}
	if len(cfg.Matching.ExperimentVariants) == 0 {
		cfg.Matching.ExperimentVariants = defaults.Matching.ExperimentVariants
	}
	return cfg
}
