package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider styles select the adapter variant used for a provider.
const (
	StyleGroqSDK    = "groq-sdk"
	StyleGroqREST   = "groq-rest"
	StyleGeminiREST = "gemini-rest"
	StyleGeminiSDK  = "gemini-sdk"
	StyleLocal      = "local"
)

// DefaultLocalModel is the model id served by a local provider with no models configured.
const DefaultLocalModel = "mediaid-local"

// Catalog drivers.
const (
	CatalogMemory = "memory"
	CatalogSQLite = "sqlite"
)

const (
	defaultGroqBaseURL    = "https://api.groq.com/openai/v1"
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com"
	defaultTimeout        = 60 * time.Second
	defaultBodyLimit      = "1M"
	defaultLogLevel       = "info"
	defaultSystemPrompt   = "You are MediAid, a health assistant. Provide concise, medically-safe advice in 150 words or fewer. Suggest common over-the-counter options where appropriate and recommend seeing a healthcare professional for serious or persistent symptoms."
	envPort               = "MEDIAID_PORT"
	envGroqAPIKey         = "GROQ_API_KEY"
	envGeminiAPIKey       = "GEMINI_API_KEY"
	envLogDevelopment     = "MEDIAID_LOG_DEVELOPMENT"
	maxTemperature        = 2.0
	maxConfiguredMaxToken = 8192
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Chat      ChatConfig       `yaml:"chat"`
	Providers []ProviderConfig `yaml:"providers"`
	Catalog   CatalogConfig    `yaml:"catalog"`
	Log       LogConfig        `yaml:"log"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	BodyLimit      string   `yaml:"body_limit"`
}

// ChatConfig controls how chat turns are sent to the provider.
type ChatConfig struct {
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    *int     `yaml:"max_tokens"`
	// ReplayTurns is the number of earlier user turns (with their replies) sent along with
	// the latest message. Zero sends only the latest message.
	ReplayTurns int `yaml:"replay_turns"`
}

// ProviderConfig captures authentication and routing info for a provider.
type ProviderConfig struct {
	Name    string            `yaml:"name"`
	Style   string            `yaml:"style"`
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Models  []string          `yaml:"models"`
	Headers Headers           `yaml:"headers"`
	Aliases map[string]string `yaml:"aliases"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// CatalogConfig selects the drug catalog backend.
type CatalogConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	SeedFile string `yaml:"seed_file"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Option adjusts a loaded configuration before it is validated.
type Option func(*Config)

// WithPort overrides server.port. Zero leaves the configured port in place.
func WithPort(port int) Option {
	return func(c *Config) {
		if port != 0 {
			c.Server.Port = port
		}
	}
}

// Load reads YAML configuration from disk, applies defaults, environment
// overrides and opts, and validates the result.
func Load(path string, opts ...Option) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills optional settings left empty in the file.
func (c *Config) ApplyDefaults() {
	if c.Server.BodyLimit == "" {
		c.Server.BodyLimit = defaultBodyLimit
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if strings.TrimSpace(c.Chat.SystemPrompt) == "" {
		c.Chat.SystemPrompt = defaultSystemPrompt
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = CatalogMemory
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Name == "" {
			p.Name = p.Style
		}
		if p.Timeout == 0 {
			p.Timeout = defaultTimeout
		}
		if p.Style == StyleLocal && len(p.Models) == 0 {
			p.Models = []string{DefaultLocalModel}
		}
		if p.BaseURL == "" {
			switch p.Style {
			case StyleGroqSDK, StyleGroqREST:
				p.BaseURL = defaultGroqBaseURL
			case StyleGeminiREST, StyleGeminiSDK:
				p.BaseURL = defaultGeminiBaseURL
			}
		}
	}
}

// ApplyEnv overrides secrets and the listener port from the environment.
// Provider keys only fill api_key values left empty in the file.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if raw, ok := lookup(envPort); ok && strings.TrimSpace(raw) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", envPort, err)
		}
		c.Server.Port = port
	}

	if raw, ok := lookup(envLogDevelopment); ok {
		dev, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", envLogDevelopment, err)
		}
		c.Log.Development = dev
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		env := apiKeyEnv(p.Style)
		if env == "" || strings.TrimSpace(p.APIKey) != "" {
			continue
		}
		if key, ok := lookup(env); ok {
			p.APIKey = strings.TrimSpace(key)
		}
	}
	return nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for _, provider := range c.Providers {
		if _, dup := seen[provider.Name]; dup {
			return fmt.Errorf("provider %s: configured more than once", provider.Name)
		}
		seen[provider.Name] = struct{}{}

		if err := validateProvider(provider); err != nil {
			return err
		}
	}

	if err := c.Chat.validate(); err != nil {
		return err
	}

	switch c.Catalog.Driver {
	case CatalogMemory:
	case CatalogSQLite:
		if strings.TrimSpace(c.Catalog.DSN) == "" {
			return fmt.Errorf("catalog.dsn must be provided for the %s driver", CatalogSQLite)
		}
	default:
		return fmt.Errorf("catalog.driver %q must be one of %q or %q", c.Catalog.Driver, CatalogMemory, CatalogSQLite)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}

	return nil
}

func (c ChatConfig) validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("chat.model must be provided")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > maxTemperature) {
		return fmt.Errorf("chat.temperature must be between 0 and %.1f, got %v", maxTemperature, *c.Temperature)
	}
	if c.MaxTokens != nil && (*c.MaxTokens <= 0 || *c.MaxTokens > maxConfiguredMaxToken) {
		return fmt.Errorf("chat.max_tokens must be between 1 and %d, got %d", maxConfiguredMaxToken, *c.MaxTokens)
	}
	if c.ReplayTurns < 0 {
		return fmt.Errorf("chat.replay_turns must not be negative, got %d", c.ReplayTurns)
	}
	return nil
}

func validateProvider(provider ProviderConfig) error {
	name := provider.Name
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("provider name must not be empty")
	}
	if err := validateStyle(name, provider.Style); err != nil {
		return err
	}
	if provider.Style != StyleLocal {
		if strings.TrimSpace(provider.APIKey) == "" {
			return fmt.Errorf("provider %s: api_key must be provided (or set %s)", name, apiKeyEnv(provider.Style))
		}
		if strings.TrimSpace(provider.BaseURL) == "" {
			return fmt.Errorf("provider %s: base_url must be provided", name)
		}
	}
	if provider.Timeout < 0 {
		return fmt.Errorf("provider %s: timeout must not be negative", name)
	}
	if len(provider.Models) == 0 {
		return fmt.Errorf("provider %s: at least one model must be configured", name)
	}

	for _, model := range provider.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("provider %s: model id must not be empty", name)
		}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	for alias, target := range provider.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("provider %s: alias name must not be empty", name)
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("provider %s: alias %q target must not be empty", name, alias)
		}
	}

	return nil
}

func validateStyle(providerName, style string) error {
	switch style {
	case StyleGroqSDK, StyleGroqREST, StyleGeminiREST, StyleGeminiSDK, StyleLocal:
		return nil
	default:
		return fmt.Errorf("provider %s: style %q must be one of %q, %q, %q, %q or %q",
			providerName, style, StyleGroqSDK, StyleGroqREST, StyleGeminiREST, StyleGeminiSDK, StyleLocal)
	}
}

func apiKeyEnv(style string) string {
	switch style {
	case StyleGeminiREST, StyleGeminiSDK:
		return envGeminiAPIKey
	case StyleLocal:
		return ""
	default:
		return envGroqAPIKey
	}
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
