// Package config loads and validates pitboard configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Discord  DiscordConfig      `mapstructure:"discord"`
	Leagues  []standings.League `mapstructure:"leagues"`
	HTTP     HTTPConfig         `mapstructure:"http"`
	Headless HeadlessConfig     `mapstructure:"headless"`
	Detector DetectorConfig     `mapstructure:"detector"`
	Render   RenderConfig       `mapstructure:"render"`
	State    StateConfig        `mapstructure:"state"`
	Archive  ArchiveConfig      `mapstructure:"archive"`
	Ops      OpsConfig          `mapstructure:"ops"`
	Logging  LoggingConfig      `mapstructure:"logging"`
}

// DiscordConfig holds bot credentials and command registration scope.
type DiscordConfig struct {
	Token           string `mapstructure:"token"`
	AppID           string `mapstructure:"app_id"`
	GuildID         string `mapstructure:"guild_id"`
	CooldownSeconds int    `mapstructure:"cooldown_seconds"`
}

// HTTPConfig configures the plain fetcher.
type HTTPConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	MaxPageBytes     int64  `mapstructure:"max_page_bytes"`
}

// HeadlessConfig configures the chromedp fallback.
type HeadlessConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MaxParallel    int     `mapstructure:"max_parallel"`
	NavTimeoutSec  int     `mapstructure:"nav_timeout_seconds"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
	WaitSelector   string  `mapstructure:"wait_selector"`
	WaitSelectorMs int     `mapstructure:"wait_selector_ms"`
}

// DetectorConfig tunes the server-rendered-grid heuristic.
type DetectorConfig struct {
	MinHTMLBytes int      `mapstructure:"min_html_bytes"`
	SelectorMust []string `mapstructure:"selector_must"`
	Keywords     []string `mapstructure:"keywords"`
}

// RenderConfig controls leaderboard image output.
type RenderConfig struct {
	Width         int    `mapstructure:"width"`
	RowHeight     int    `mapstructure:"row_height"`
	MaxRows       int    `mapstructure:"max_rows"`
	Watermark     string `mapstructure:"watermark"`
	AssetCacheDir string `mapstructure:"asset_cache_dir"`
	OutputDir     string `mapstructure:"output_dir"`
}

// StateConfig sets the directory for per-league JSON records.
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// ArchiveConfig controls the SQLite snapshot archive.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// OpsConfig controls the health/metrics HTTP server.
type OpsConfig struct {
	Port        int    `mapstructure:"port"`
	AuthEnabled bool   `mapstructure:"auth_enabled"`
	APIKey      string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PITBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pitboard")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pitboard/")
		v.AddConfigPath("$HOME/.pitboard")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when no explicit path was given; defaults
		// and environment variables still apply.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || !notFound {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.cooldown_seconds", 30)

	v.SetDefault("http.user_agent", "pitboard/1.0 (+https://github.com/pitboard-bot/pitboard)")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 500)
	v.SetDefault("http.backoff_max_ms", 8000)
	v.SetDefault("http.max_page_bytes", 5*1024*1024)

	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.domain_qps", 0.5)
	v.SetDefault("headless.wait_selector", "table")
	v.SetDefault("headless.wait_selector_ms", 8000)

	v.SetDefault("detector.min_html_bytes", 2000)
	v.SetDefault("detector.selector_must", []string{"table"})
	v.SetDefault("detector.keywords", []string{
		"__doPostBack",
		"DXR.axd",
		"data-reactroot",
	})

	v.SetDefault("render.width", 900)
	v.SetDefault("render.row_height", 36)
	v.SetDefault("render.max_rows", 40)
	v.SetDefault("render.asset_cache_dir", "data/assets")
	v.SetDefault("render.output_dir", "data/boards")

	v.SetDefault("state.dir", "data/state")

	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.path", "data/pitboard.db")

	v.SetDefault("ops.port", 8080)

	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Leagues) == 0 {
		return fmt.Errorf("at least one league must be configured")
	}
	seen := make(map[string]struct{}, len(c.Leagues))
	for i, league := range c.Leagues {
		if league.Slug == "" {
			return fmt.Errorf("leagues[%d].slug is required", i)
		}
		if _, dup := seen[league.Slug]; dup {
			return fmt.Errorf("duplicate league slug %q", league.Slug)
		}
		seen[league.Slug] = struct{}{}
		if league.URL == "" {
			return fmt.Errorf("league %s: url is required", league.Slug)
		}
		switch league.Kind {
		case standings.SourceDevExpress, standings.SourceSimGrid:
		default:
			return fmt.Errorf("league %s: unknown kind %q", league.Slug, league.Kind)
		}
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Render.Width <= 0 || c.Render.RowHeight <= 0 {
		return fmt.Errorf("render.width and render.row_height must be > 0")
	}
	if c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0")
	}
	if c.Ops.AuthEnabled && c.Ops.APIKey == "" {
		return fmt.Errorf("ops.api_key must be set when ops auth is enabled")
	}
	return nil
}

// HTTPTimeout returns the fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Cooldown returns the button cooldown window.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.Discord.CooldownSeconds) * time.Second
}

// LeagueBySlug finds a configured league.
func (c Config) LeagueBySlug(slug string) (standings.League, bool) {
	for _, league := range c.Leagues {
		if league.Slug == slug {
			return league, true
		}
	}
	return standings.League{}, false
}
