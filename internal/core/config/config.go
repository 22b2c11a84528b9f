package config

import (
	"time"

	redisclient "github.com/vietddude/tmdbproxy/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig       `yaml:"server"`
	TMDB    TMDBConfig         `yaml:"tmdb"`
	Auth    AuthConfig         `yaml:"auth"`
	Retry   RetryConfig        `yaml:"retry"`
	Notify  EndpointPolicy     `yaml:"notify"`
	Redis   redisclient.Config `yaml:"redis"`
	Logging LoggingConfig      `yaml:"logging"`
	Demo    bool               `yaml:"demo"` // substitute placeholder credentials instead of failing
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// TMDBConfig holds upstream API settings.
type TMDBConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// SecretSource selects where callers put the shared secret.
type SecretSource string

const (
	SecretFromBody   SecretSource = "body"   // JSON field "secret"
	SecretFromHeader SecretSource = "header" // X-Secret header
)

// AuthConfig holds the shared-secret settings.
type AuthConfig struct {
	Secret string       `yaml:"secret"`
	Source SecretSource `yaml:"source"`
}

// RetryConfig holds per-endpoint upstream retry budgets.
type RetryConfig struct {
	InitialDelay time.Duration  `yaml:"initial_delay"`
	Trending     EndpointPolicy `yaml:"trending"`
	Details      EndpointPolicy `yaml:"details"`
	Search       EndpointPolicy `yaml:"search"`
}

// EndpointPolicy is the attempt budget for one kind of outbound call.
type EndpointPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"` // per attempt
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
