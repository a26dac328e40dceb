package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8000
	defaultEnv        = "development"
	defaultFrontend   = "http://localhost:5173"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	Database       DatabaseConfig `yaml:"database"`
	Redis          RedisConfig    `yaml:"redis"`
	JWTSecret      string         `yaml:"jwt_secret"`
	SecretKey      string         `yaml:"secret_key"` // derives the token encryption key
	FrontendURL    string         `yaml:"frontend_url"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	GitHub         GitHubConfig   `yaml:"github"`
	AI             AIConfig       `yaml:"ai"`
}

// GitHubConfig holds OAuth app credentials and the webhook secret.
type GitHubConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	RedirectURI   string `yaml:"redirect_uri"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// AIConfig configures the ordered text-generation provider chain.
type AIConfig struct {
	Providers []AIProvider `yaml:"providers"`
}

// AIProvider describes one text-generation backend. Providers are tried in
// list order until one succeeds.
type AIProvider struct {
	ID           string `yaml:"id"`
	Type         string `yaml:"type"` // openai | openai-compatible | anthropic
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

// Load reads the YAML config file and applies defaults and environment
// variable fallbacks for secrets.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Env == "" {
		c.Env = defaultEnv
	}
	if c.FrontendURL == "" {
		c.FrontendURL = defaultFrontend
	}
	if c.JWTSecret == "" {
		c.JWTSecret = os.Getenv("AUTODOC_JWT_SECRET")
	}
	if c.SecretKey == "" {
		c.SecretKey = os.Getenv("AUTODOC_SECRET_KEY")
	}
	if c.GitHub.ClientID == "" {
		c.GitHub.ClientID = os.Getenv("GITHUB_CLIENT_ID")
	}
	if c.GitHub.ClientSecret == "" {
		c.GitHub.ClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	}
	if c.GitHub.WebhookSecret == "" {
		c.GitHub.WebhookSecret = os.Getenv("GITHUB_WEBHOOK_SECRET")
	}
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("secret_key is required (token encryption)")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// EnabledProviders returns the enabled AI providers in configured order.
func (c AIConfig) EnabledProviders() []AIProvider {
	out := make([]AIProvider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Enabled && strings.TrimSpace(p.APIKey) != "" {
			out = append(out, p)
		}
	}
	return out
}
