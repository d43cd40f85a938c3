package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if len(cfg.Topics) == 0 {
		t.Error("expected default topics")
	}
	if cfg.Limits.DigestCount != 9 {
		t.Errorf("expected default digest_count 9, got %d", cfg.Limits.DigestCount)
	}
	if cfg.LLM.BaseURL == "" {
		t.Error("expected default llm.base_url")
	}
	if cfg.Email.Enabled {
		t.Error("email should be disabled by default")
	}
}

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
topics: [AI]
limits:
  articles_per_feed: 5
  digest_count: 3
llm:
  base_url: https://api.example.com/v1
  model: test-model
paths:
  feeds: feeds.txt
  system_prompt: prompts/system.txt
  user_prompt: prompts/user.txt
  template: templates/email.html
  output_dir: digests
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.DigestCount != 3 {
		t.Errorf("expected digest_count 3, got %d", cfg.Limits.DigestCount)
	}
	if cfg.LLM.Model != "test-model" {
		t.Errorf("unexpected model: %q", cfg.LLM.Model)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config path")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Topics: []string{"AI"},
			Limits: LimitsConfig{ArticlesPerFeed: 10, DigestCount: 9},
			LLM:    LLMConfig{BaseURL: "https://api.example.com/v1", Model: "m"},
			Paths: PathsConfig{
				Feeds:        "feeds.txt",
				SystemPrompt: "s.txt",
				UserPrompt:   "u.txt",
				Template:     "t.html",
				OutputDir:    "digests",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no topics", func(c *Config) { c.Topics = nil }, true},
		{"digest count over cap", func(c *Config) { c.Limits.DigestCount = 10 }, true},
		{"digest count zero", func(c *Config) { c.Limits.DigestCount = 0 }, true},
		{"bad base url", func(c *Config) { c.LLM.BaseURL = "not a url" }, true},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, true},
		{"missing feeds path", func(c *Config) { c.Paths.Feeds = "" }, true},
		{"email enabled without from", func(c *Config) {
			c.Email = EmailConfig{Enabled: true, APIURL: "https://api.resend.com/emails", To: []string{"a@b.c"}}
		}, true},
		{"email enabled without recipients", func(c *Config) {
			c.Email = EmailConfig{Enabled: true, APIURL: "https://api.resend.com/emails", From: "a@b.c"}
		}, true},
		{"email enabled valid", func(c *Config) {
			c.Email = EmailConfig{Enabled: true, APIURL: "https://api.resend.com/emails", From: "a@b.c", To: []string{"d@e.f"}}
		}, false},
	}
	for _, tt := range tests {
		cfg := base()
		tt.mutate(cfg)
		err := validate(cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestLLMKeyEnvFallback(t *testing.T) {
	t.Setenv("NEWSBRIEF_LLM_KEY", "env-key")
	cfg := &Config{}
	if got := cfg.LLMKey(); got != "env-key" {
		t.Errorf("expected env key, got %q", got)
	}
	cfg.LLM.APIKey = "config-key"
	if got := cfg.LLMKey(); got != "config-key" {
		t.Errorf("config key should win, got %q", got)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Config{}
	if got := cfg.LLMTimeout(); got != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", got)
	}
	cfg.LLM.Timeout = "10s"
	if got := cfg.LLMTimeout(); got != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", got)
	}

	cfg.Limits.MaxAge = "3d"
	if got := cfg.MaxAgeDuration(); got != 72*time.Hour {
		t.Errorf("max age = %v, want 72h", got)
	}
	cfg.Limits.MaxAge = "invalid"
	if got := cfg.MaxAgeDuration(); got != 7*24*time.Hour {
		t.Errorf("max age fallback = %v, want 168h", got)
	}
	cfg.Store.Retention = "60d"
	if got := cfg.RetentionDuration(); got != 60*24*time.Hour {
		t.Errorf("retention = %v, want 1440h", got)
	}
}
