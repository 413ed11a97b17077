package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Discord  DiscordConfig
	YOURLS   YOURLSConfig
	Features FeaturesConfig
	Stats    StatsConfig
	Server   ServerConfig
	App      AppConfig
}

// DiscordConfig holds chat platform configuration.
type DiscordConfig struct {
	Token          string        `envconfig:"DISCORD_TOKEN" required:"true"`
	GuildID        string        `envconfig:"DISCORD_GUILD_ID"`
	HandlerTimeout time.Duration `envconfig:"DISCORD_HANDLER_TIMEOUT" default:"0s"`
}

// Validate validates the Discord configuration.
func (c *DiscordConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if c.HandlerTimeout < 0 {
		return fmt.Errorf("handler timeout cannot be negative")
	}
	return nil
}

// YOURLSConfig holds shortening service configuration.
type YOURLSConfig struct {
	URL            string        `envconfig:"YOURLS_URL" required:"true"`
	SignatureToken string        `envconfig:"YOURLS_SIGNATURE_TOKEN" required:"true"`
	Timeout        time.Duration `envconfig:"YOURLS_TIMEOUT" default:"15s"`
}

// Validate validates the YOURLS configuration.
func (c *YOURLSConfig) Validate() error {
	if err := validateAbsoluteURL(c.URL); err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if c.SignatureToken == "" {
		return fmt.Errorf("signature token cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Flag is a feature toggle. Only "true", in any case, turns it on; every
// other value, including "1" and "yes", leaves it off.
type Flag bool

// Decode implements envconfig.Decoder.
func (f *Flag) Decode(value string) error {
	*f = Flag(strings.EqualFold(strings.TrimSpace(value), "true"))
	return nil
}

// FeaturesConfig holds command toggles and reply settings.
type FeaturesConfig struct {
	EnableCustomURL   Flag   `envconfig:"ENABLE_CUSTOM_URL" default:"false"`
	EnableInfoCommand Flag   `envconfig:"ENABLE_INFO_COMMAND" default:"false"`
	EphemeralResponse Flag   `envconfig:"EPHEMERAL_RESPONSE" default:"false"`
	GithubLink        string `envconfig:"GITHUB_LINK" default:"https://github.com/your-github-repo"`
	DonationLink      string `envconfig:"DONATION_LINK" default:"https://your-donation-link.com"`
	ShowTopDomains    Flag   `envconfig:"SHOW_TOP_DOMAINS" default:"false"`
	TopDomainsLimit   int    `envconfig:"TOP_DOMAINS_LIMIT" default:"5"`
}

// Validate validates the feature configuration.
func (c *FeaturesConfig) Validate() error {
	if c.TopDomainsLimit <= 0 {
		return fmt.Errorf("top domains limit must be positive")
	}
	if c.EnableInfoCommand {
		if err := validateAbsoluteURL(c.GithubLink); err != nil {
			return fmt.Errorf("github link: %w", err)
		}
		if err := validateAbsoluteURL(c.DonationLink); err != nil {
			return fmt.Errorf("donation link: %w", err)
		}
	}
	return nil
}

// StatsConfig selects where usage counters are persisted.
type StatsConfig struct {
	Backend  string `envconfig:"STATS_BACKEND" default:"file"`
	File     string `envconfig:"STATS_FILE" default:"stats.json"`
	DSN      string `envconfig:"DB_DSN"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"4"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" default:"1"`
}

// Validate validates the stats configuration.
func (c *StatsConfig) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.File == "" {
			return fmt.Errorf("stats file cannot be empty")
		}
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("DSN is required for the postgres backend")
		}
		if c.MaxConns <= 0 {
			return fmt.Errorf("max connections must be positive")
		}
		if c.MinConns < 0 {
			return fmt.Errorf("min connections cannot be negative")
		}
		if c.MinConns > c.MaxConns {
			return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be one of: file, postgres)", c.Backend)
	}
	return nil
}

// ServerConfig holds the optional health endpoint configuration.
// An empty Addr disables the endpoint.
type ServerConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
}

// Enabled reports whether the health endpoint should be served.
func (c *ServerConfig) Enabled() bool { return c.Addr != "" }

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"production"` // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`     // debug, info, warn, error
	Version     string `envconfig:"APP_VERSION" default:"dev"`
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("must include host")
	}
	return nil
}

type section struct {
	name     string
	target   any
	validate func() error
}

// Load loads configuration from environment variables only.
// (.env loading happens in the app package before Load is called.)
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []section{
		{"Discord", &cfg.Discord, cfg.Discord.Validate},
		{"YOURLS", &cfg.YOURLS, cfg.YOURLS.Validate},
		{"Features", &cfg.Features, cfg.Features.Validate},
		{"Stats", &cfg.Stats, cfg.Stats.Validate},
		{"Server", &cfg.Server, cfg.Server.Validate},
		{"App", &cfg.App, cfg.App.Validate},
	}

	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
