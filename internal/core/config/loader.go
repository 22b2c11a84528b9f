package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Placeholders used when demo mode fills in missing credentials.
const (
	DemoAPIKey = "demo-api-key"
	DemoSecret = "demo-secret"
)

var (
	ErrMissingAPIKey = errors.New("tmdb.api_key (TMDB_API_KEY) is required")
	ErrMissingSecret = errors.New("auth.secret (STUDENT_SECRET) is required")
)

// Load reads configuration from a YAML file. A missing file is not an error:
// every required value can also come from the environment.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("Config file not found, using environment only", "path", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if cfg.TMDB.APIKey == "" {
		cfg.TMDB.APIKey = os.Getenv("TMDB_API_KEY")
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = os.Getenv("STUDENT_SECRET")
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = os.Getenv("REDIS_URL")
	}
	if cfg.Server.Port == 0 {
		if v := os.Getenv("PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid PORT %q: %w", v, err)
			}
			cfg.Server.Port = port
		}
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		if v := os.Getenv("CORS_ORIGINS"); v != "" {
			for _, origin := range strings.Split(v, ",") {
				if origin = strings.TrimSpace(origin); origin != "" {
					cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, origin)
				}
			}
		}
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.TMDB.BaseURL == "" {
		cfg.TMDB.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.Auth.Source == "" {
		cfg.Auth.Source = SecretFromBody
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = time.Second
	}
	fillPolicy(&cfg.Retry.Trending, 3, 30*time.Second)
	fillPolicy(&cfg.Retry.Details, 6, 30*time.Second)
	fillPolicy(&cfg.Retry.Search, 6, 30*time.Second)
	fillPolicy(&cfg.Notify, 5, 30*time.Second)
}

func fillPolicy(p *EndpointPolicy, attempts int, timeout time.Duration) {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = attempts
	}
	if p.Timeout == 0 {
		p.Timeout = timeout
	}
}

// Validate checks the configuration before anything is started. In demo mode
// missing credentials are replaced with placeholders; otherwise they are fatal.
func (c *AppConfig) Validate() error {
	if c.Demo {
		if c.TMDB.APIKey == "" {
			slog.Warn("Demo mode: using placeholder TMDB API key")
			c.TMDB.APIKey = DemoAPIKey
		}
		if strings.TrimSpace(c.Auth.Secret) == "" {
			slog.Warn("Demo mode: using placeholder shared secret")
			c.Auth.Secret = DemoSecret
		}
	}

	var errs []error
	if c.TMDB.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, ErrMissingSecret)
	}
	switch c.Auth.Source {
	case SecretFromBody, SecretFromHeader:
	default:
		errs = append(errs, fmt.Errorf("auth.source must be %q or %q, got %q", SecretFromBody, SecretFromHeader, c.Auth.Source))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	for name, p := range map[string]EndpointPolicy{
		"retry.trending": c.Retry.Trending,
		"retry.details":  c.Retry.Details,
		"retry.search":   c.Retry.Search,
		"notify":         c.Notify,
	} {
		if p.MaxAttempts < 1 {
			errs = append(errs, fmt.Errorf("%s.max_attempts must be at least 1", name))
		}
		if p.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must not be negative", name))
		}
	}
	return errors.Join(errs...)
}
