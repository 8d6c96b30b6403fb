// Package config defines the canonical, statically-typed configuration for a
// capture run. Loosely-typed input (YAML file, env, flags) passes through one
// normalization boundary; downstream code only ever sees the canonical form.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// Environment variables that override config file credentials.
const (
	EnvPlatformEmail    = "PLATFORM_EMAIL"
	EnvPlatformPassword = "PLATFORM_PASSWORD"
)

// Config is the full application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Platform PlatformConfig `mapstructure:"platform" yaml:"platform"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Crawl    CrawlConfig    `mapstructure:"crawl" yaml:"crawl"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Gates    GatesConfig    `mapstructure:"gates" yaml:"gates"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PlatformConfig identifies the platform under capture.
type PlatformConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// SelectorSet carries explicit CSS selectors for the login form controls.
// A literal selector always wins over label-text inference.
type SelectorSet struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
	Submit   string `mapstructure:"submit" yaml:"submit"`
}

// LabelSet carries label-text hints for the login form controls, used only
// when no explicit selector is configured.
type LabelSet struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
	Submit   string `mapstructure:"submit" yaml:"submit"`
}

// AuthConfig configures the login flow.
type AuthConfig struct {
	Type      string      `mapstructure:"type" yaml:"type"`
	LoginURL  string      `mapstructure:"login_url" yaml:"login_url"`
	Email     string      `mapstructure:"email" yaml:"-"`
	Password  string      `mapstructure:"password" yaml:"-"`
	Selectors SelectorSet `mapstructure:"selectors" yaml:"selectors"`
	Labels    LabelSet    `mapstructure:"labels" yaml:"labels"`
	// SettleDelay is the fixed wait after submitting credentials before the
	// post-submit URL is inspected.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// CrawlConfig bounds the discovery phase.
type CrawlConfig struct {
	Mode            schemas.CrawlMode  `mapstructure:"mode" yaml:"mode"`
	MaxPages        int                `mapstructure:"max_pages" yaml:"max_pages"`
	MaxDepth        int                `mapstructure:"max_depth" yaml:"max_depth"`
	Viewports       []schemas.Viewport `mapstructure:"viewports" yaml:"viewports"`
	ExcludePatterns []string           `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	IncludePages    []string           `mapstructure:"include_pages" yaml:"include_pages"`
	RespectRobots   bool               `mapstructure:"respect_robots" yaml:"respect_robots"`
	// RequestsPerSecond throttles navigations for politeness.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// RetryCeilings sets the per-failure-class retry attempt limits. The classes
// have distinct ceilings because their expected recoverability differs:
// transient render glitches are worth several attempts, a 404 almost never is.
type RetryCeilings struct {
	Validation int `mapstructure:"validation" yaml:"validation"`
	Timeout    int `mapstructure:"timeout" yaml:"timeout"`
	NotFound   int `mapstructure:"not_found" yaml:"not_found"`
}

// CaptureConfig tunes the per-page capture protocol.
type CaptureConfig struct {
	// SettleDelay is the fixed wait applied before the readiness checks.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	// ActionTimeout is the ceiling for a single browser-driver command.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// BackoffBase is the initial retry delay; it doubles on each attempt.
	BackoffBase        time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`
	Retries            RetryCeilings `mapstructure:"retries" yaml:"retries"`
	MinPageHeight      int64         `mapstructure:"min_page_height" yaml:"min_page_height"`
	MinScreenshotBytes int64         `mapstructure:"min_screenshot_bytes" yaml:"min_screenshot_bytes"`
	MinHTMLBytes       int64         `mapstructure:"min_html_bytes" yaml:"min_html_bytes"`
	FullPage           bool          `mapstructure:"full_page" yaml:"full_page"`
	CaptureTabs        bool          `mapstructure:"capture_tabs" yaml:"capture_tabs"`
	// CaptureInteractions expands collapsed disclosure controls after the
	// base capture and screenshots the revealed state.
	CaptureInteractions bool `mapstructure:"capture_interactions" yaml:"capture_interactions"`
}

// OutputConfig locates the artifact directory.
type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	SaveHTML  bool   `mapstructure:"save_html" yaml:"save_html"`
}

// GatesConfig tunes the validation gate engine.
type GatesConfig struct {
	MinPages  int `mapstructure:"min_pages" yaml:"min_pages"`
	MinColors int `mapstructure:"min_colors" yaml:"min_colors"`
	// GeneratedGlobs selects the generated source files scanned by the
	// post-generation gate (doublestar patterns, relative to GeneratedDir).
	GeneratedDir   string   `mapstructure:"generated_dir" yaml:"generated_dir"`
	GeneratedGlobs []string `mapstructure:"generated_globs" yaml:"generated_globs"`
	// ForbiddenClassPatterns are default-framework utility-class prefixes
	// that signal the captured palette was bypassed (e.g. "bg-blue-").
	ForbiddenClassPatterns []string `mapstructure:"forbidden_class_patterns" yaml:"forbidden_class_patterns"`
	ScanConcurrency        int      `mapstructure:"scan_concurrency" yaml:"scan_concurrency"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "prism-cli")
	v.SetDefault("logger.log_file", "prism.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Auth --
	v.SetDefault("auth.type", "form")
	v.SetDefault("auth.settle_delay", "3s")

	// -- Crawl --
	v.SetDefault("crawl.mode", "auto")
	v.SetDefault("crawl.max_pages", 20)
	v.SetDefault("crawl.max_depth", 3)
	v.SetDefault("crawl.respect_robots", false)
	v.SetDefault("crawl.requests_per_second", 2.0)
	v.SetDefault("crawl.exclude_patterns", []string{"logout", "signout", "delete", "remove"})
	v.SetDefault("crawl.viewports", []map[string]interface{}{
		{"name": "desktop", "width": 1440, "height": 900},
	})

	// -- Capture --
	v.SetDefault("capture.settle_delay", "2s")
	v.SetDefault("capture.action_timeout", "30s")
	v.SetDefault("capture.backoff_base", "1s")
	v.SetDefault("capture.retries.validation", 3)
	v.SetDefault("capture.retries.timeout", 2)
	v.SetDefault("capture.retries.not_found", 1)
	v.SetDefault("capture.min_page_height", 200)
	v.SetDefault("capture.min_screenshot_bytes", 5000)
	v.SetDefault("capture.min_html_bytes", 500)
	v.SetDefault("capture.full_page", true)
	v.SetDefault("capture.capture_tabs", true)
	v.SetDefault("capture.capture_interactions", true)

	// -- Output --
	v.SetDefault("output.directory", "./captures")
	v.SetDefault("output.save_html", true)

	// -- Gates --
	v.SetDefault("gates.min_pages", 3)
	v.SetDefault("gates.min_colors", 5)
	v.SetDefault("gates.generated_dir", "./generated")
	v.SetDefault("gates.generated_globs", []string{"**/*.tsx", "**/*.ts", "**/*.jsx", "**/*.js", "**/*.css"})
	v.SetDefault("gates.forbidden_class_patterns", []string{
		"bg-blue-", "bg-indigo-", "text-blue-", "border-blue-", "bg-purple-",
	})
	v.SetDefault("gates.scan_concurrency", 4)
}

// NewFromViper builds the canonical configuration from a viper instance:
// defaults, file values, normalized aliases, env credential overrides, and
// validation, in that order.
func NewFromViper(v *viper.Viper) (*Config, []string, error) {
	warnings := Normalize(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, warnings, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.resolveCredentials()

	if dir, err := homedir.Expand(cfg.Output.Directory); err == nil {
		cfg.Output.Directory = dir
	}
	if dir, err := homedir.Expand(cfg.Gates.GeneratedDir); err == nil {
		cfg.Gates.GeneratedDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return &cfg, warnings, nil
}

// resolveCredentials applies the environment-variable precedence: when
// PLATFORM_EMAIL/PLATFORM_PASSWORD are set they win over file values.
func (c *Config) resolveCredentials() {
	if email := os.Getenv(EnvPlatformEmail); email != "" {
		c.Auth.Email = email
	}
	if password := os.Getenv(EnvPlatformPassword); password != "" {
		c.Auth.Password = password
	}
}

// Validate checks the configuration for required fields and sane values.
// Only a structurally required field failing is fatal; everything else has
// a usable default.
func (c *Config) Validate() error {
	if c.Platform.BaseURL == "" {
		return &Error{Field: "platform.base_url", Reason: "is required"}
	}
	u, err := url.Parse(c.Platform.BaseURL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return &Error{Field: "platform.base_url", Reason: fmt.Sprintf("must be a valid absolute URL, got %q", c.Platform.BaseURL)}
	}
	if len(c.Crawl.Viewports) == 0 {
		return &Error{Field: "crawl.viewports", Reason: "must list at least one viewport"}
	}
	for _, vp := range c.Crawl.Viewports {
		if vp.Name == "" || vp.Width <= 0 || vp.Height <= 0 {
			return &Error{Field: "crawl.viewports", Reason: fmt.Sprintf("viewport %+v needs a name and positive dimensions", vp)}
		}
	}
	switch c.Crawl.Mode {
	case schemas.ModeAuto, schemas.ModeManual, schemas.ModeHybrid:
	default:
		return &Error{Field: "crawl.mode", Reason: fmt.Sprintf("unknown mode %q (want auto, manual or hybrid)", c.Crawl.Mode)}
	}
	if c.Crawl.MaxPages <= 0 {
		return &Error{Field: "crawl.max_pages", Reason: "must be positive"}
	}
	if c.Crawl.MaxDepth < 0 {
		return &Error{Field: "crawl.max_depth", Reason: "must not be negative"}
	}
	return nil
}

// Error is a fatal configuration error: a malformed or missing required field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}
