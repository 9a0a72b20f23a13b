// Package config loads and validates tabwarden configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tabwarden/internal/governor"
	"tabwarden/internal/pressure"
)

// Config is the root configuration.
type Config struct {
	// Engine selects the adapter: "log" or "cdp".
	Engine string `yaml:"engine"`

	CDP      CDPConfig      `yaml:"cdp"`
	Governor GovernorConfig `yaml:"governor"`
	Pressure PressureConfig `yaml:"pressure"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CDPConfig configures the DevTools adapter.
type CDPConfig struct {
	// ControlURL is the WebSocket debugger URL of a running Chromium.
	// Empty launches a headless instance.
	ControlURL string `yaml:"control_url"`
}

// GovernorConfig holds the intent and burst timing knobs.
type GovernorConfig struct {
	ActiveInputWindow string `yaml:"active_input_window"`
	IdleThreshold     string `yaml:"idle_threshold"`
	IdleBurstInterval string `yaml:"idle_burst_interval"`
	IdleBurstDuration string `yaml:"idle_burst_duration"`
	TabInputGrace     string `yaml:"tab_input_grace"`

	// PollInterval is the cadence of timer-driven reconciliation.
	PollInterval string `yaml:"poll_interval"`
}

// PressureConfig configures memory pressure sampling.
type PressureConfig struct {
	SampleInterval  string `yaml:"sample_interval"`
	MonotonicWindow string `yaml:"monotonic_window"`

	ModerateHeadroomPerMille int `yaml:"moderate_headroom_per_mille"`
	SevereHeadroomPerMille   int `yaml:"severe_headroom_per_mille"`

	WatchCgroupEvents bool `yaml:"watch_cgroup_events"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty logs to stderr
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: "log",

		Governor: GovernorConfig{
			ActiveInputWindow: "1200ms",
			IdleThreshold:     "4s",
			IdleBurstInterval: "5s",
			IdleBurstDuration: "500ms",
			TabInputGrace:     "800ms",
			PollInterval:      "250ms",
		},

		Pressure: PressureConfig{
			SampleInterval:           "1s",
			MonotonicWindow:          "3s",
			ModerateHeadroomPerMille: 200,
			SevereHeadroomPerMille:   100,
			WatchCgroupEvents:        true,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if engine := os.Getenv("TABWARDEN_ENGINE"); engine != "" {
		c.Engine = engine
	}
	if url := os.Getenv("TABWARDEN_CONTROL_URL"); url != "" {
		c.CDP.ControlURL = url
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetGovernorConfig returns the governor timing constants, falling back to
// the stock values for anything malformed.
func (c *Config) GetGovernorConfig() governor.Config {
	def := governor.DefaultConfig()
	return governor.Config{
		ActiveInputWindow: parseDuration(c.Governor.ActiveInputWindow, def.ActiveInputWindow),
		IdleThreshold:     parseDuration(c.Governor.IdleThreshold, def.IdleThreshold),
		IdleBurstInterval: parseDuration(c.Governor.IdleBurstInterval, def.IdleBurstInterval),
		IdleBurstDuration: parseDuration(c.Governor.IdleBurstDuration, def.IdleBurstDuration),
		TabInputGrace:     parseDuration(c.Governor.TabInputGrace, def.TabInputGrace),
	}
}

// GetPollInterval returns the reconciliation poll cadence.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Governor.PollInterval, 250*time.Millisecond)
}

// GetMonitorConfig returns the pressure monitor configuration.
func (c *Config) GetMonitorConfig() pressure.MonitorConfig {
	def := pressure.DefaultMonitorConfig()
	cfg := pressure.MonitorConfig{
		SampleInterval:    parseDuration(c.Pressure.SampleInterval, def.SampleInterval),
		MonotonicWindow:   parseDuration(c.Pressure.MonotonicWindow, def.MonotonicWindow),
		Thresholds:        def.Thresholds,
		WatchCgroupEvents: c.Pressure.WatchCgroupEvents,
	}
	if c.Pressure.ModerateHeadroomPerMille > 0 {
		cfg.Thresholds.ModerateHeadroomPerMille = c.Pressure.ModerateHeadroomPerMille
	}
	if c.Pressure.SevereHeadroomPerMille > 0 {
		cfg.Thresholds.SevereHeadroomPerMille = c.Pressure.SevereHeadroomPerMille
	}
	return cfg
}

// ValidEngines lists the supported engine adapters.
var ValidEngines = []string{"log", "cdp"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validEngine := false
	for _, e := range ValidEngines {
		if c.Engine == e {
			validEngine = true
			break
		}
	}
	if !validEngine {
		return fmt.Errorf("invalid engine: %s (valid: %v)", c.Engine, ValidEngines)
	}

	mod := c.Pressure.ModerateHeadroomPerMille
	sev := c.Pressure.SevereHeadroomPerMille
	if mod < 0 || mod > 1000 || sev < 0 || sev > 1000 {
		return fmt.Errorf("pressure thresholds must be within 0..1000, got moderate=%d severe=%d", mod, sev)
	}
	if sev > mod {
		return fmt.Errorf("severe threshold %d must not exceed moderate threshold %d", sev, mod)
	}

	for name, value := range map[string]string{
		"governor.active_input_window": c.Governor.ActiveInputWindow,
		"governor.idle_threshold":      c.Governor.IdleThreshold,
		"governor.idle_burst_interval": c.Governor.IdleBurstInterval,
		"governor.idle_burst_duration": c.Governor.IdleBurstDuration,
		"governor.tab_input_grace":     c.Governor.TabInputGrace,
		"governor.poll_interval":       c.Governor.PollInterval,
		"pressure.sample_interval":     c.Pressure.SampleInterval,
		"pressure.monotonic_window":    c.Pressure.MonotonicWindow,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
	}

	return nil
}

// IsCDPEngine returns whether the DevTools adapter is selected.
func (c *Config) IsCDPEngine() bool {
	return c.Engine == "cdp"
}
