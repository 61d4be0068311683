// Package config loads runtime settings from the environment (and an
// optional .env file) for the CLI and the reference server.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Client configures the jobtracker CLI.
type Client struct {
	APIURL        string `env:"JOBTRACKER_API_URL" default:"http://localhost:8000"`
	SessionStore  string `env:"JOBTRACKER_SESSION_STORE" default:"sqlite"`
	SessionDB     string `env:"JOBTRACKER_SESSION_DB" default:"jobtracker-session.sqlite"`
	RedisURL      string `env:"JOBTRACKER_REDIS_URL"`
	CredentialKey string `env:"JOBTRACKER_CREDENTIAL_KEY" default:"token"`
	LogLevel      string `env:"LOG_LEVEL" default:"warn"`
	LogFormat     string `env:"LOG_FORMAT" default:"text"`
	NotionToken   string `env:"NOTION_TOKEN"`
	NotionDBID    string `env:"NOTION_DB_ID"`
}

// Server configures the reference backend.
type Server struct {
	Port            string        `env:"PORT" default:"8000"`
	DatabasePath    string        `env:"JOBTRACKER_DB" default:"jobtracker.sqlite"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" default:"30m"`
	LoginRatePerMin int           `env:"LOGIN_RATE_PER_MIN" default:"10"`
	CORSOrigins     string        `env:"CORS_ORIGINS" default:"http://localhost:5173"`
	LogLevel        string        `env:"LOG_LEVEL" default:"info"`
	LogFormat       string        `env:"LOG_FORMAT" default:"text"`
}

// LoadClient reads .env (if present) and the environment.
func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	var cfg Client
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.NotionDBID = NormalizeNotionID(cfg.NotionDBID)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("JOBTRACKER_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	switch c.SessionStore {
	case SessionStoreSQLite:
		if strings.TrimSpace(c.SessionDB) == "" {
			return fmt.Errorf("JOBTRACKER_SESSION_DB is required for the sqlite session store")
		}
	case SessionStoreRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("JOBTRACKER_REDIS_URL is required for the redis session store")
		}
	case SessionStoreMemory:
	default:
		return fmt.Errorf("JOBTRACKER_SESSION_STORE must be sqlite, redis or memory, got %q", c.SessionStore)
	}
	if strings.TrimSpace(c.CredentialKey) == "" {
		return fmt.Errorf("JOBTRACKER_CREDENTIAL_KEY must not be empty")
	}
	return nil
}

// NotionEnabled reports whether both Notion settings are present.
func (c *Client) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDBID != ""
}

// LoadServer reads .env (if present) and the environment.
func LoadServer() (*Server, error) {
	_ = godotenv.Load()

	var cfg Server
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("JOBTRACKER_DB is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if cfg.LoginRatePerMin <= 0 {
		return nil, fmt.Errorf("LOGIN_RATE_PER_MIN must be positive")
	}
	return &cfg, nil
}

// Origins splits CORS_ORIGINS on commas.
func (s *Server) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// NormalizeNotionID removes dashes if present.
func NormalizeNotionID(id string) string {
	id = strings.TrimSpace(id)
	return strings.ReplaceAll(id, "-", "")
}
