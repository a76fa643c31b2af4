package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/socialchef/chef/internal/credentials"
	"github.com/socialchef/chef/internal/services/generation"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string
	Port           string
	LogLevel       string

	// ReducedMode serves the bundled sample recipes instead of calling the model.
	ReducedMode bool

	GenerationURL     string
	GenerationAPIKey  string
	GenerationTimeout time.Duration
	TokenizerPath     string

	EdamamAppIDs  string
	EdamamAppKeys string
	EdamamBaseURL string

	ImageMaxAttempts  int
	ImageFetchTimeout time.Duration
	ImageCacheTTL     time.Duration

	RedisURL          string
	DatabaseURL       string
	WorkerConcurrency int

	AuthJWTSecret string
	AuthIssuer    string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	// Generation holds defaults applied under every chef preset.
	Generation generation.Config
	// Chefs maps lower-cased chef names to their resolved presets.
	Chefs map[string]generation.Config
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		Port:                     os.Getenv("PORT"),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
		GenerationURL:            os.Getenv("GENERATION_URL"),
		GenerationAPIKey:         os.Getenv("GENERATION_API_KEY"),
		TokenizerPath:            os.Getenv("TOKENIZER_PATH"),
		EdamamAppIDs:             os.Getenv(credentials.EnvAppIDs),
		EdamamAppKeys:            os.Getenv(credentials.EnvAppKeys),
		EdamamBaseURL:            os.Getenv("EDAMAM_BASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		AuthJWTSecret:            os.Getenv("AUTH_JWT_SECRET"),
		AuthIssuer:               os.Getenv("AUTH_ISSUER"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
	}

	var err error
	if cfg.ReducedMode, err = boolEnv("REDUCED_MODE", false); err != nil {
		return nil, err
	}
	if cfg.GenerationTimeout, err = durationEnv("GENERATION_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ImageMaxAttempts, err = intEnv("IMAGE_MAX_ATTEMPTS", 2); err != nil {
		return nil, err
	}
	if cfg.ImageFetchTimeout, err = durationEnv("IMAGE_FETCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ImageCacheTTL, err = durationEnv("IMAGE_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = intEnv("WORKER_CONCURRENCY", 10); err != nil {
		return nil, err
	}

	// Load from YAML file if available
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if err := cfg.LoadFromYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "socialchef-chef"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.SetChefDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromYAML overlays the generation defaults and chef presets from path.
// A missing file is not an error.
func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Generation generation.Config            `yaml:"generation"`
		Chefs      map[string]generation.Config `yaml:"chefs"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.Generation = c.Generation.Merge(yamlConfig.Generation)
	if len(yamlConfig.Chefs) > 0 && c.Chefs == nil {
		c.Chefs = make(map[string]generation.Config, len(yamlConfig.Chefs))
	}
	for name, preset := range yamlConfig.Chefs {
		name = strings.ToLower(strings.TrimSpace(name))
		c.Chefs[name] = c.Chefs[name].Merge(preset)
	}

	return nil
}

// SetChefDefaults resolves the final chef presets: the generation defaults,
// then the built-in preset of the same name, then any configured override.
func (c *Config) SetChefDefaults() {
	presets := generation.DefaultPresets()
	for name, override := range c.Chefs {
		presets[name] = presets[name].Merge(override)
	}
	resolved := make(map[string]generation.Config, len(presets))
	for name, preset := range presets {
		resolved[name] = c.Generation.Merge(preset)
	}
	c.Chefs = resolved
}

func (c *Config) validate() error {
	if !c.ReducedMode {
		if c.GenerationURL == "" {
			return fmt.Errorf("GENERATION_URL is required unless REDUCED_MODE is set")
		}
		if c.TokenizerPath == "" {
			return fmt.Errorf("TOKENIZER_PATH is required unless REDUCED_MODE is set")
		}
	}
	if c.ImageMaxAttempts < 0 {
		return fmt.Errorf("IMAGE_MAX_ATTEMPTS must be >= 0, got %d", c.ImageMaxAttempts)
	}
	return nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
