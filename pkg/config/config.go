// Package config loads harness configuration.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// YAML file, environment variables and finally command-line flags bound by
// the CLI. Environment variables use the HARNESS_ prefix with dots replaced
// by underscores (browser.engine -> HARNESS_BROWSER_ENGINE). The grid
// credentials additionally honour BROWSERSTACK_USERNAME and
// BROWSERSTACK_ACCESS_KEY.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by the harness.
const EnvPrefix = "HARNESS"

// Config is the complete harness configuration.
type Config struct {
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Grid     GridConfig     `mapstructure:"grid" yaml:"grid"`
	Evidence EvidenceConfig `mapstructure:"evidence" yaml:"evidence"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Runner   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// BrowserConfig selects and tunes the local browser engine.
type BrowserConfig struct {
	// Engine is one of chromium, firefox or webkit
	Engine string `mapstructure:"engine" yaml:"engine"`

	// Headless runs the browser without a visible window
	Headless bool `mapstructure:"headless" yaml:"headless"`

	// ImplicitTimeout bounds element lookups and actions
	ImplicitTimeout time.Duration `mapstructure:"implicit_timeout" yaml:"implicit_timeout"`

	// PageLoadTimeout bounds navigations
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`

	ViewportWidth  int `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `mapstructure:"viewport_height" yaml:"viewport_height"`

	// Install downloads browser binaries before the first launch
	Install bool `mapstructure:"install" yaml:"install"`
}

// GridConfig describes the remote device grid.
type GridConfig struct {
	Username       string `mapstructure:"username" yaml:"username"`
	AccessKey      string `mapstructure:"access_key" yaml:"access_key"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint"`
	Platform       string `mapstructure:"platform" yaml:"platform"`
	BrowserVersion string `mapstructure:"browser_version" yaml:"browser_version"`
	Project        string `mapstructure:"project" yaml:"project"`
	Build          string `mapstructure:"build" yaml:"build"`
	Local          bool   `mapstructure:"local" yaml:"local"`
	LocalID        string `mapstructure:"local_identifier" yaml:"local_identifier"`
}

// HasCredentials reports whether both grid credentials are present.
func (g GridConfig) HasCredentials() bool {
	return strings.TrimSpace(g.Username) != "" && strings.TrimSpace(g.AccessKey) != ""
}

// EvidenceConfig controls where scenario evidence is persisted.
type EvidenceConfig struct {
	// LogDir receives one step-by-step log file per scenario
	LogDir string `mapstructure:"log_dir" yaml:"log_dir"`

	// ReportDir receives every payload forwarded to the report sink
	ReportDir string `mapstructure:"report_dir" yaml:"report_dir"`

	// PageTextOnFailure attaches the visible page text of failed scenarios
	PageTextOnFailure bool `mapstructure:"page_text_on_failure" yaml:"page_text_on_failure"`
}

// LoggingConfig controls the diagnostic log.
type LoggingConfig struct {
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Level string `mapstructure:"level" yaml:"level"`
}

// RunnerConfig controls suite execution.
type RunnerConfig struct {
	Parallelism int           `mapstructure:"parallelism" yaml:"parallelism"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MetricsConfig controls the telemetry endpoints.
type MetricsConfig struct {
	// Addr serves prometheus metrics when non-empty (e.g. ":9464")
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Trace exports scenario spans to stdout
	Trace bool `mapstructure:"trace" yaml:"trace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Engine:          "chromium",
			Headless:        true,
			ImplicitTimeout: 10 * time.Second,
			PageLoadTimeout: 30 * time.Second,
			ViewportWidth:   1920,
			ViewportHeight:  1080,
		},
		Grid: GridConfig{
			Endpoint:       "wss://cdp.browserstack.com/playwright",
			Platform:       "Windows 11",
			BrowserVersion: "latest",
			Project:        "Scenario Harness",
		},
		Evidence: EvidenceConfig{
			LogDir:            "target/test-logs/scenarios",
			ReportDir:         "target/report",
			PageTextOnFailure: true,
		},
		Logging: LoggingConfig{
			Dir:   "target/harness-logs",
			Level: "info",
		},
		Runner: RunnerConfig{
			Parallelism: 4,
			Timeout:     15 * time.Minute,
		},
	}
}

// SetDefaults registers default values and environment bindings with v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("browser.engine", d.Browser.Engine)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.implicit_timeout", d.Browser.ImplicitTimeout)
	v.SetDefault("browser.page_load_timeout", d.Browser.PageLoadTimeout)
	v.SetDefault("browser.viewport_width", d.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", d.Browser.ViewportHeight)
	v.SetDefault("browser.install", d.Browser.Install)

	v.SetDefault("grid.username", "")
	v.SetDefault("grid.access_key", "")
	v.SetDefault("grid.endpoint", d.Grid.Endpoint)
	v.SetDefault("grid.platform", d.Grid.Platform)
	v.SetDefault("grid.browser_version", d.Grid.BrowserVersion)
	v.SetDefault("grid.project", d.Grid.Project)
	v.SetDefault("grid.build", "")
	v.SetDefault("grid.local", false)
	v.SetDefault("grid.local_identifier", "")

	v.SetDefault("evidence.log_dir", d.Evidence.LogDir)
	v.SetDefault("evidence.report_dir", d.Evidence.ReportDir)
	v.SetDefault("evidence.page_text_on_failure", d.Evidence.PageTextOnFailure)

	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.level", d.Logging.Level)

	v.SetDefault("runner.parallelism", d.Runner.Parallelism)
	v.SetDefault("runner.timeout", d.Runner.Timeout)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.trace", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The grid vendor's own variable names take part as a fallback
	_ = v.BindEnv("grid.username", EnvPrefix+"_GRID_USERNAME", "BROWSERSTACK_USERNAME")
	_ = v.BindEnv("grid.access_key", EnvPrefix+"_GRID_ACCESS_KEY", "BROWSERSTACK_ACCESS_KEY")
}

// New returns a viper instance with defaults registered and, when path is
// non-empty, the YAML file at path merged in.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return v, nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidEngines lists the accepted browser.engine values.
func ValidEngines() []string {
	return []string{"chromium", "firefox", "webkit"}
}

// Validate checks the configuration for values the harness cannot use.
func (c *Config) Validate() error {
	var errs []error

	engine := strings.ToLower(c.Browser.Engine)
	valid := false
	for _, e := range ValidEngines() {
		if engine == e {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("invalid browser.engine %q (must be one of %s)",
			c.Browser.Engine, strings.Join(ValidEngines(), ", ")))
	}

	if c.Browser.ImplicitTimeout < 0 {
		errs = append(errs, errors.New("browser.implicit_timeout cannot be negative"))
	}
	if c.Browser.PageLoadTimeout < 0 {
		errs = append(errs, errors.New("browser.page_load_timeout cannot be negative"))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("browser viewport dimensions must be positive"))
	}

	if c.Evidence.LogDir == "" {
		errs = append(errs, errors.New("evidence.log_dir is required"))
	}

	if c.Runner.Parallelism < 1 {
		errs = append(errs, errors.New("runner.parallelism must be at least 1"))
	}
	if c.Runner.Timeout < 0 {
		errs = append(errs, errors.New("runner.timeout cannot be negative"))
	}

	if c.Grid.HasCredentials() && c.Grid.Endpoint == "" {
		errs = append(errs, errors.New("grid.endpoint is required when grid credentials are set"))
	}

	return errors.Join(errs...)
}
