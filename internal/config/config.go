package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"routeplan/internal/webhooks"
)

// Config is the service configuration: YAML file first, environment
// variables override. Secrets (API keys, tokens) are carried here and
// passed to components at construction; nothing global.
type Config struct {
	Listen      string                  `yaml:"listen"`
	DatabaseURL string                  `yaml:"databaseUrl"`
	RedisURL    string                  `yaml:"redisUrl"`
	AuthToken   string                  `yaml:"authToken"`
	Matrix      Matrix                  `yaml:"matrix"`
	Solver      Solver                  `yaml:"solver"`
	Webhooks    []webhooks.Subscription `yaml:"webhooks"`
}

type Matrix struct {
	BaseURL         string  `yaml:"baseUrl"`
	APIKey          string  `yaml:"apiKey"`
	Dimension       string  `yaml:"dimension"`
	TimeoutSeconds  int     `yaml:"timeoutSeconds"`
	RPS             float64 `yaml:"rps"`
	CacheTTLMinutes int     `yaml:"cacheTtlMinutes"`
}

type Solver struct {
	SearchLimitSeconds float64 `yaml:"searchLimitSeconds"`
	Seed               int64   `yaml:"seed"`
	StallLimit         int     `yaml:"stallLimit"`
	MaxIterations      int     `yaml:"maxIterations"`
}

// Load reads path (when non-empty and present) and applies environment
// overrides. A missing file is only an error when it was asked for
// explicitly.
func Load(path string) (Config, error) {
	cfg := Config{
		Listen: ":8080",
		Solver: Solver{SearchLimitSeconds: 2},
	}
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// fine, env-only configuration
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Listen = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("MATRIX_API_KEY"); v != "" {
		cfg.Matrix.APIKey = v
	}
	if v := os.Getenv("MATRIX_BASE_URL"); v != "" {
		cfg.Matrix.BaseURL = v
	}
	if v := os.Getenv("SEARCH_LIMIT_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Solver.SearchLimitSeconds = f
		}
	}
	return cfg, nil
}

// MatrixTimeout returns the per-request timeout as a duration.
func (m Matrix) MatrixTimeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// CacheTTL returns the matrix cache TTL as a duration.
func (m Matrix) CacheTTL() time.Duration {
	if m.CacheTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(m.CacheTTLMinutes) * time.Minute
}
