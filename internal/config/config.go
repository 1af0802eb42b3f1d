// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
// The profile itself is not part of it; it is loaded per run from the profile directory.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	TracingCfg TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	FlowCfg    FlowConfig    `mapstructure:"flow" yaml:"flow"`
}

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Tracing() TracingConfig { return c.TracingCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Flow() FlowConfig       { return c.FlowCfg }

// LoggerConfig defines the logging settings.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// TracingConfig toggles OpenTelemetry spans for runs and steps.
type TracingConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	PrettyPrint bool `mapstructure:"pretty_print" yaml:"pretty_print"`
}

// BrowserConfig controls how the Chrome/Chromium process is launched.
type BrowserConfig struct {
	// Headless is forced on for ARM hosts, which run without a display.
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath overrides browser discovery. Empty means auto-detect.
	ExecPath     string        `mapstructure:"exec_path" yaml:"exec_path"`
	ARMExecPath  string        `mapstructure:"arm_exec_path" yaml:"arm_exec_path"`
	WindowWidth  int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	Args         []string      `mapstructure:"args" yaml:"args"`
	StartTimeout time.Duration `mapstructure:"start_timeout" yaml:"start_timeout"`
	NavTimeout   time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Debug        bool          `mapstructure:"debug" yaml:"debug"`
}

// FlowConfig holds the registration target and every wait used by the flow.
type FlowConfig struct {
	RegisterURL    string `mapstructure:"register_url" yaml:"register_url"`
	ProfileDir     string `mapstructure:"profile_dir" yaml:"profile_dir"`
	DefaultProfile string `mapstructure:"default_profile" yaml:"default_profile"`
	DefaultEmail   string `mapstructure:"default_email" yaml:"default_email"`

	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	StepTimeout   time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout" yaml:"submit_timeout"`

	// ValidationSettle lets client-side validation run before the vehicle form is submitted.
	ValidationSettle time.Duration `mapstructure:"validation_settle" yaml:"validation_settle"`
	// DiagnosticPause keeps the page on screen after a step failure.
	DiagnosticPause time.Duration `mapstructure:"diagnostic_pause" yaml:"diagnostic_pause"`
	// GuestCodeSettle is waited after the guest code is accepted, before the vehicle fields render.
	GuestCodeSettle time.Duration `mapstructure:"guest_code_settle" yaml:"guest_code_settle"`
	// ConfirmationSettle is waited after the last step so the email request reaches the server.
	ConfirmationSettle time.Duration `mapstructure:"confirmation_settle" yaml:"confirmation_settle"`
	CloseTimeout       time.Duration `mapstructure:"close_timeout" yaml:"close_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "parkpass")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Tracing --
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.pretty_print", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.arm_exec_path", "/usr/bin/chromium")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 720)
	v.SetDefault("browser.start_timeout", "30s")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.debug", false)

	// -- Flow --
	v.SetDefault("flow.register_url", "https://www.register2park.com/register")
	v.SetDefault("flow.profile_dir", "env")
	v.SetDefault("flow.default_profile", "tatiana")
	v.SetDefault("flow.default_email", "iammaxlichter@gmail.com")
	v.SetDefault("flow.poll_interval", "500ms")
	v.SetDefault("flow.step_timeout", "20s")
	v.SetDefault("flow.submit_timeout", "10s")
	v.SetDefault("flow.validation_settle", "500ms")
	v.SetDefault("flow.diagnostic_pause", "15s")
	v.SetDefault("flow.guest_code_settle", "2500ms")
	v.SetDefault("flow.confirmation_settle", "5s")
	v.SetDefault("flow.close_timeout", "10s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.WindowWidth <= 0 || c.BrowserCfg.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be positive integers")
	}
	if err := c.FlowCfg.Validate(); err != nil {
		return fmt.Errorf("flow configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the flow settings.
func (f *FlowConfig) Validate() error {
	if f.RegisterURL == "" {
		return fmt.Errorf("register_url is required")
	}
	if f.ProfileDir == "" {
		return fmt.Errorf("profile_dir is required")
	}
	if f.DefaultProfile == "" {
		return fmt.Errorf("default_profile is required")
	}
	if f.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if f.StepTimeout <= 0 || f.SubmitTimeout <= 0 {
		return fmt.Errorf("step_timeout and submit_timeout must be positive durations")
	}
	if f.ValidationSettle < 0 || f.DiagnosticPause < 0 || f.GuestCodeSettle < 0 || f.ConfirmationSettle < 0 {
		return fmt.Errorf("settle and pause durations must not be negative")
	}
	return nil
}
