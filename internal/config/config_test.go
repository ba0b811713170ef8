package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
discord:
  token: bot-token
  app_id: "123"
  guild_id: "456"
  cooldown_seconds: 45
leagues:
  - name: GT3 Cup
    slug: gt3-cup
    url: https://league.example.com/standings.aspx
    kind: devexpress
    marker: Season 4
    schedule: "*/15 * * * *"
    channel_id: "789"
    tints:
      Pro: "#3b82c4"
  - name: ACC Championship
    slug: acc
    url: https://www.simgrid.example/championships/42
    kind: simgrid
    channel_id: "790"
http:
  timeout_seconds: 20
  user_agent: test-agent
headless:
  enabled: true
  max_parallel: 2
render:
  width: 1200
  watermark: PITBOARD
ops:
  port: 9090
  auth_enabled: true
  api_key: secret
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discord.Token != "bot-token" || cfg.Discord.AppID != "123" {
		t.Fatalf("expected discord overrides to apply: %+v", cfg.Discord)
	}
	if got := cfg.Cooldown(); got != 45*time.Second {
		t.Fatalf("expected 45s cooldown, got %v", got)
	}
	if len(cfg.Leagues) != 2 {
		t.Fatalf("expected 2 leagues, got %d", len(cfg.Leagues))
	}

	league, ok := cfg.LeagueBySlug("gt3-cup")
	if !ok {
		t.Fatal("expected gt3-cup league")
	}
	if league.Kind != standings.SourceDevExpress || league.Marker != "Season 4" {
		t.Fatalf("unexpected league %+v", league)
	}
	if league.Tints["Pro"] != "#3b82c4" {
		t.Fatalf("expected class tint loaded, got %+v", league.Tints)
	}

	if got := cfg.HTTPTimeout(); got != 20*time.Second {
		t.Fatalf("expected 20s timeout, got %v", got)
	}
	if !cfg.Headless.Enabled || cfg.Headless.MaxParallel != 2 {
		t.Fatalf("expected headless overrides: %+v", cfg.Headless)
	}
	if cfg.Render.Width != 1200 || cfg.Render.Watermark != "PITBOARD" {
		t.Fatalf("expected render overrides: %+v", cfg.Render)
	}
	if cfg.Render.RowHeight != 36 {
		t.Fatalf("expected row height default to survive partial override, got %d", cfg.Render.RowHeight)
	}
	if cfg.Ops.Port != 9090 || !cfg.Ops.AuthEnabled || cfg.Ops.APIKey != "secret" {
		t.Fatalf("expected ops overrides: %+v", cfg.Ops)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func validConfig() Config {
	return Config{
		Leagues: []standings.League{{
			Name:      "GT3 Cup",
			Slug:      "gt3-cup",
			URL:       "https://example.com",
			Kind:      standings.SourceDevExpress,
			ChannelID: "789",
		}},
		HTTP:   HTTPConfig{TimeoutSeconds: 15},
		Render: RenderConfig{Width: 900, RowHeight: 36},
		Ops:    OpsConfig{Port: 8080},
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no leagues",
			mutate:  func(c *Config) { c.Leagues = nil },
			wantErr: "at least one league",
		},
		{
			name:    "missing slug",
			mutate:  func(c *Config) { c.Leagues[0].Slug = "" },
			wantErr: "slug is required",
		},
		{
			name: "duplicate slug",
			mutate: func(c *Config) {
				c.Leagues = append(c.Leagues, c.Leagues[0])
			},
			wantErr: "duplicate league slug",
		},
		{
			name:    "missing url",
			mutate:  func(c *Config) { c.Leagues[0].URL = "" },
			wantErr: "url is required",
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Leagues[0].Kind = "spreadsheet" },
			wantErr: "unknown kind",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
			wantErr: "timeout_seconds",
		},
		{
			name: "headless without parallel",
			mutate: func(c *Config) {
				c.Headless.Enabled = true
				c.Headless.MaxParallel = 0
			},
			wantErr: "max_parallel",
		},
		{
			name:    "bad render geometry",
			mutate:  func(c *Config) { c.Render.Width = 0 },
			wantErr: "render.width",
		},
		{
			name:    "bad ops port",
			mutate:  func(c *Config) { c.Ops.Port = 0 },
			wantErr: "ops.port",
		},
		{
			name: "auth without key",
			mutate: func(c *Config) {
				c.Ops.AuthEnabled = true
				c.Ops.APIKey = ""
			},
			wantErr: "api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
