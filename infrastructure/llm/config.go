package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RetryConfig is the YAML shape of a RetryPolicy.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" validate:"min=1,max=10"`
	BaseDelayMS       int     `yaml:"base_delay_ms" validate:"min=1"`
	MaxDelayMS        int     `yaml:"max_delay_ms" validate:"min=1"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" validate:"gt=1"`
}

// Policy converts the config into a runtime RetryPolicy.
func (c RetryConfig) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       c.MaxAttempts,
		BaseDelay:         time.Duration(c.BaseDelayMS) * time.Millisecond,
		MaxDelay:          time.Duration(c.MaxDelayMS) * time.Millisecond,
		BackoffMultiplier: c.BackoffMultiplier,
	}
}

// CacheConfig holds response-cache settings.
type CacheConfig struct {
	DefaultTTLSeconds int `yaml:"default_ttl_seconds" validate:"min=1"`
}

// QueueConfig holds request-queue settings.
type QueueConfig struct {
	PollIntervalMS int `yaml:"poll_interval_ms" validate:"min=1"`
}

// ProviderConfig tells the router how to reach one provider.
type ProviderConfig struct {
	// EnvVar names the environment variable carrying the API key.
	EnvVar string `yaml:"env_var" validate:"required"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Config is the deployment configuration for the orchestration layer,
// loaded from YAML at process start and immutable afterward.
type Config struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" validate:"required"`
	Retry     RetryConfig     `yaml:"retry" validate:"required"`
	Cache     CacheConfig     `yaml:"cache" validate:"required"`
	Queue     QueueConfig     `yaml:"queue" validate:"required"`

	// RequestTimeoutMS bounds each attempt of every request.
	RequestTimeoutMS int `yaml:"request_timeout_ms" validate:"min=1"`

	// Models replaces the stock descriptor table when non-empty.
	Models []ModelDescriptor `yaml:"models" validate:"omitempty,dive"`

	// Tasks replaces the stock task bindings when non-empty.
	Tasks map[TaskKind]TaskBinding `yaml:"tasks" validate:"omitempty,dive"`

	// Providers configures credentials per provider type.
	Providers map[string]ProviderConfig `yaml:"providers" validate:"omitempty,dive"`
}

// DefaultConfig returns the stock deployment configuration.
func DefaultConfig() Config {
	return Config{
		RateLimit: DefaultRateLimitConfig(),
		Retry: RetryConfig{
			MaxAttempts:       DefaultMaxAttempts,
			BaseDelayMS:       int(DefaultBaseDelay / time.Millisecond),
			MaxDelayMS:        int(DefaultMaxDelay / time.Millisecond),
			BackoffMultiplier: DefaultBackoffMultiplier,
		},
		Cache: CacheConfig{DefaultTTLSeconds: int(DefaultCacheTTL / time.Second)},
		Queue: QueueConfig{PollIntervalMS: int(DefaultQueuePollInterval / time.Millisecond)},

		RequestTimeoutMS: int(DefaultRequestTimeout / time.Millisecond),

		Providers: map[string]ProviderConfig{
			"openai":    {EnvVar: "OPENAI_API_KEY"},
			"anthropic": {EnvVar: "ANTHROPIC_API_KEY"},
			"google":    {EnvVar: "GOOGLE_API_KEY"},
		},
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags plus the cross-field rules the tags
// cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return fmt.Errorf("invalid config: retry max_delay_ms %d is below base_delay_ms %d",
			c.Retry.MaxDelayMS, c.Retry.BaseDelayMS)
	}
	return nil
}

// BuildRegistry creates the model registry this config describes, falling
// back to the stock table when the config names no models.
func (c Config) BuildRegistry() (*ModelRegistry, error) {
	models := c.Models
	if len(models) == 0 {
		models = DefaultDescriptors
	}
	tasks := c.Tasks
	if len(tasks) == 0 {
		tasks = DefaultTaskBindings
	}
	return NewModelRegistry(models, tasks)
}

// ServiceConfig converts the deployment config into runtime service
// settings, minus the caller and registry which are built separately.
func (c Config) ServiceConfig() ServiceConfig {
	return ServiceConfig{
		RateLimit:         c.RateLimit,
		Retry:             c.Retry.Policy(),
		Timeout:           time.Duration(c.RequestTimeoutMS) * time.Millisecond,
		CacheTTL:          time.Duration(c.Cache.DefaultTTLSeconds) * time.Second,
		QueuePollInterval: time.Duration(c.Queue.PollIntervalMS) * time.Millisecond,
	}
}
