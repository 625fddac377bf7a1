package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ParserCfg selects the structured-address parser and its fallback.
type ParserCfg struct {
	Provider             string `mapstructure:"provider" json:"provider"`
	Model                string `mapstructure:"model" json:"model"`
	UseLibpostalFallback bool   `mapstructure:"use_libpostal_fallback" json:"use_libpostal_fallback"`
}

// Config is the full runtime configuration. Weights and Thresholds drive the
// pair scorer; GridPrecision controls the coordinate bucket size used for
// candidate recall.
type Config struct {
	DBPath              string             `mapstructure:"db_path" json:"db_path"`
	GridPrecision       int                `mapstructure:"grid_precision" json:"grid_precision"`
	CandidateMax        int                `mapstructure:"candidate_max" json:"candidate_max"`
	CandidateTopNForLLM int                `mapstructure:"candidate_topn_for_llm" json:"candidate_topn_for_llm"`
	Weights             map[string]float64 `mapstructure:"weights" json:"weights"`
	Thresholds          map[string]float64 `mapstructure:"thresholds" json:"thresholds"`
	Parser              ParserCfg          `mapstructure:"parser" json:"parser"`
	MeiliHost           string             `mapstructure:"meili_host" json:"meili_host"`
	MeiliAPIKey         string             `mapstructure:"meili_api_key" json:"meili_api_key"`
	RedisAddr           string             `mapstructure:"redis_addr" json:"redis_addr"`
}

// Default returns the reference configuration used when no file is supplied
// and by tests.
func Default() *Config {
	return &Config{
		DBPath:              "mongodb://localhost:27017/address_audit",
		GridPrecision:       4,
		CandidateMax:        50,
		CandidateTopNForLLM: 3,
		Weights: map[string]float64{
			"district":        1.0,
			"aoi":             1.2,
			"building":        1.5,
			"floor":           0.8,
			"room":            0.6,
			"road":            1.0,
			"shop":            0.8,
			"geo":             1.2,
			"relative_anchor": 0.5,
		},
		Thresholds: map[string]float64{
			"same":   0.78,
			"unsure": 0.55,
		},
		Parser: ParserCfg{
			Provider:             "openai",
			Model:                "gpt-4.1-mini",
			UseLibpostalFallback: true,
		},
	}
}

// Load reads a JSON config file and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	// ENV overrides
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if host := os.Getenv("MEILI_HOST"); host != "" {
		cfg.MeiliHost = host
	}
	if key := os.Getenv("MEILI_API_KEY"); key != "" {
		cfg.MeiliAPIKey = key
	}
	switch os.Getenv("USE_LIBPOSTAL") {
	case "0":
		cfg.Parser.UseLibpostalFallback = false
	case "1":
		cfg.Parser.UseLibpostalFallback = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configs that would make resolution nondeterministic or
// silently degenerate.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.GridPrecision < 1 || c.GridPrecision > 7 {
		return fmt.Errorf("config: grid_precision must be in [1,7], got %d", c.GridPrecision)
	}
	if c.CandidateMax <= 0 {
		return fmt.Errorf("config: candidate_max must be positive, got %d", c.CandidateMax)
	}
	if c.CandidateTopNForLLM <= 0 {
		return fmt.Errorf("config: candidate_topn_for_llm must be positive, got %d", c.CandidateTopNForLLM)
	}
	if len(c.Weights) == 0 {
		return fmt.Errorf("config: weights map is required")
	}
	if len(c.Thresholds) == 0 {
		return fmt.Errorf("config: thresholds map is required")
	}
	_, okSame := c.Thresholds["same"]
	_, okUnsure := c.Thresholds["unsure"]
	if !okSame || !okUnsure {
		return fmt.Errorf("config: thresholds must define both same and unsure")
	}
	return nil
}
