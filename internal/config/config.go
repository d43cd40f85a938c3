package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// LimitsConfig caps how much content a single run processes.
type LimitsConfig struct {
	ArticlesPerFeed int    `yaml:"articles_per_feed"`
	DigestCount     int    `yaml:"digest_count"`
	MaxAge          string `yaml:"max_age,omitempty"`
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key,omitempty"`
	MaxTokens   int    `yaml:"max_tokens"`
	Concurrency int    `yaml:"concurrency"`
	Timeout     string `yaml:"timeout,omitempty"`
}

// EmailConfig configures the optional delivery step.
type EmailConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIURL  string   `yaml:"api_url"`
	APIKey  string   `yaml:"api_key,omitempty"`
	From    string   `yaml:"from"`
	To      []string `yaml:"to"`
	Subject string   `yaml:"subject"`
}

// StoreConfig configures the seen-article state store used to keep
// repeated scheduled runs from re-digesting the same links.
type StoreConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	Retention string `yaml:"retention,omitempty"`
}

// PathsConfig locates the external input files and the output directory.
type PathsConfig struct {
	Feeds        string `yaml:"feeds"`
	Credentials  string `yaml:"credentials"`
	SystemPrompt string `yaml:"system_prompt"`
	UserPrompt   string `yaml:"user_prompt"`
	Template     string `yaml:"template"`
	OutputDir    string `yaml:"output_dir"`
}

type Config struct {
	Topics []string     `yaml:"topics"`
	Limits LimitsConfig `yaml:"limits"`
	LLM    LLMConfig    `yaml:"llm"`
	Email  EmailConfig  `yaml:"email"`
	Store  StoreConfig  `yaml:"store"`
	Paths  PathsConfig  `yaml:"paths"`
}

// LLMKey returns the resolved completion API key (config or env var).
func (c *Config) LLMKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	return os.Getenv("NEWSBRIEF_LLM_KEY")
}

// EmailKey returns the resolved email API key (config or env var).
func (c *Config) EmailKey() string {
	if c.Email.APIKey != "" {
		return c.Email.APIKey
	}
	return os.Getenv("NEWSBRIEF_EMAIL_KEY")
}

// LLMTimeout returns the per-request timeout, defaulting to 30s.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// MaxAgeDuration returns the article freshness window, defaulting to 7 days.
// Supports "Nd" day syntax in addition to time.ParseDuration forms.
func (c *Config) MaxAgeDuration() time.Duration {
	return parseDaysOr(c.Limits.MaxAge, 7*24*time.Hour)
}

// RetentionDuration returns how long seen-article records are kept.
func (c *Config) RetentionDuration() time.Duration {
	return parseDaysOr(c.Store.Retention, 30*24*time.Hour)
}

func parseDaysOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// StorePath returns the state store path, defaulting under XDG data home.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(xdg.DataHome, "newsbrief", "seen.db")
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newsbrief", "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config file at path, falling back to embedded defaults
// when no file exists at the default location. Configuration problems are
// fatal: a malformed file or an invalid value returns an error rather than
// a silently degraded run.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return loadDefaults()
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if len(cfg.Topics) == 0 {
		return fmt.Errorf("topics: at least one topic is required")
	}
	if cfg.Limits.ArticlesPerFeed <= 0 {
		return fmt.Errorf("limits.articles_per_feed must be positive")
	}
	if cfg.Limits.DigestCount < 1 || cfg.Limits.DigestCount > 9 {
		return fmt.Errorf("limits.digest_count must be between 1 and 9, got %d", cfg.Limits.DigestCount)
	}
	if cfg.Paths.Feeds == "" {
		return fmt.Errorf("paths.feeds is required")
	}
	if cfg.Paths.SystemPrompt == "" || cfg.Paths.UserPrompt == "" {
		return fmt.Errorf("paths.system_prompt and paths.user_prompt are required")
	}
	if cfg.Paths.Template == "" {
		return fmt.Errorf("paths.template is required")
	}
	if cfg.Paths.OutputDir == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	if cfg.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if u, err := url.Parse(cfg.LLM.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Concurrency < 0 {
		return fmt.Errorf("llm.concurrency must not be negative")
	}
	if cfg.Email.Enabled {
		if cfg.Email.APIURL == "" {
			return fmt.Errorf("email.api_url is required when email is enabled")
		}
		if cfg.Email.From == "" {
			return fmt.Errorf("email.from is required when email is enabled")
		}
		if len(cfg.Email.To) == 0 {
			return fmt.Errorf("email.to must list at least one recipient when email is enabled")
		}
	}
	return nil
}
