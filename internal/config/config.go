package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"gopkg.in/yaml.v2"
)

// Config represents the main configuration structure
type Config struct {
	Feeds       FeedsConfig       `yaml:"feeds"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Animation   AnimationConfig   `yaml:"animation"`
	Canvas      CanvasConfig      `yaml:"canvas"`
	DecisionLog DecisionLogConfig `yaml:"decision_log"`
	Logging     LoggingConfig     `yaml:"logging"`
	Authority   AuthorityConfig   `yaml:"authority"`
}

// FeedsConfig describes the two polled endpoints of the authority
type FeedsConfig struct {
	MetricsURL string        `yaml:"metrics_url"`
	StatusURL  string        `yaml:"status_url"`
	Interval   time.Duration `yaml:"interval"`
	Timeout    time.Duration `yaml:"timeout"`
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

// SimulationConfig controls synthetic traffic generation
type SimulationConfig struct {
	Algorithm        string  `yaml:"algorithm"`
	SpawnProbability float64 `yaml:"spawn_probability"`
	AdoptNewBackends bool    `yaml:"adopt_new_backends"`
	Seed             int64   `yaml:"seed"`
}

// AnimationConfig controls request motion and frame cadence
type AnimationConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
	Step          float64       `yaml:"step"`
	Damping       float64       `yaml:"damping"`
}

// CanvasConfig is the virtual canvas all layout is computed against
type CanvasConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	ShowGrid bool    `yaml:"show_grid"`
}

// DecisionLogConfig bounds the log surface
type DecisionLogConfig struct {
	MaxLines int `yaml:"max_lines"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// AuthorityConfig configures the local simulated authority service
type AuthorityConfig struct {
	Port         int           `yaml:"port"`
	Backends     []string      `yaml:"backends"`
	TrafficRPS   float64       `yaml:"traffic_rps"`
	TrafficBurst int           `yaml:"traffic_burst"`
	MaxDecisions int           `yaml:"max_decisions"`
	FailureRate  float64       `yaml:"failure_rate"`
	JWTSecret    string        `yaml:"jwt_secret"`
	ClientRPS    float64       `yaml:"client_rps"`
	ClientBurst  int           `yaml:"client_burst"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Seed         int64         `yaml:"seed"`

	// TrustForwardedFor keys the client rate limit on X-Forwarded-For. Only
	// enable it behind a proxy that overwrites the header.
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Feeds: FeedsConfig{
			MetricsURL: "http://localhost:8080/metrics",
			StatusURL:  "http://localhost:8080/status",
			Interval:   time.Second,
			Timeout:    2 * time.Second,
			TokenTTL:   time.Minute,
		},
		Simulation: SimulationConfig{
			Algorithm:        string(domain.AlgorithmRoundRobin),
			SpawnProbability: 0.65,
			AdoptNewBackends: true,
		},
		Animation: AnimationConfig{
			FrameInterval: time.Second / 30,
			Step:          7,
			Damping:       0.12,
		},
		Canvas: CanvasConfig{
			Width:    900,
			Height:   500,
			ShowGrid: true,
		},
		DecisionLog: DecisionLogConfig{
			MaxLines: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "file",
			File:   "lb-dashboard.log",
		},
		Authority: AuthorityConfig{
			Port:         8080,
			Backends:     []string{"localhost:9001", "localhost:9002", "localhost:9003"},
			TrafficRPS:   4,
			TrafficBurst: 2,
			MaxDecisions: 500,
			FailureRate:  0.05,
			ClientRPS:    20,
			ClientBurst:  40,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// LoadFromFile loads and validates configuration from a YAML file on top of
// the defaults, without environment overrides
func LoadFromFile(filename string) (*Config, error) {
	config := DefaultConfig()
	if err := parseFile(filename, config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// parseFile decodes filename over config
func parseFile(filename string, config *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"feeds.metrics_url": c.Feeds.MetricsURL,
		"feeds.status_url":  c.Feeds.StatusURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL: %q", name, raw)
		}
	}

	if c.Feeds.Interval <= 0 {
		return fmt.Errorf("feeds.interval must be positive: %v", c.Feeds.Interval)
	}
	if c.Feeds.Timeout <= 0 {
		return fmt.Errorf("feeds.timeout must be positive: %v", c.Feeds.Timeout)
	}
	if c.Feeds.JWTSecret != "" && c.Feeds.TokenTTL <= 0 {
		return fmt.Errorf("feeds.token_ttl must be positive when jwt_secret is set")
	}

	if c.Simulation.SpawnProbability <= 0 || c.Simulation.SpawnProbability > 1 {
		return fmt.Errorf("simulation.spawn_probability must be in (0, 1]: %v", c.Simulation.SpawnProbability)
	}

	if c.Animation.FrameInterval <= 0 {
		return fmt.Errorf("animation.frame_interval must be positive")
	}
	if c.Animation.Step <= 0 {
		return fmt.Errorf("animation.step must be positive")
	}
	if c.Animation.Damping <= 0 || c.Animation.Damping > 1 {
		return fmt.Errorf("animation.damping must be in (0, 1]: %v", c.Animation.Damping)
	}

	if c.Canvas.Width < domain.BackendColumnX+domain.BackendCardWidth {
		return fmt.Errorf("canvas.width must be at least %v", domain.BackendColumnX+domain.BackendCardWidth)
	}
	if c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas.height must be positive")
	}

	if c.DecisionLog.MaxLines < 0 {
		return fmt.Errorf("decision_log.max_lines cannot be negative")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true, "discard": true}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return c.Authority.Validate()
}

// Validate checks the authority section
func (a *AuthorityConfig) Validate() error {
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("invalid authority port: %d", a.Port)
	}
	if len(a.Backends) == 0 {
		return fmt.Errorf("authority needs at least one backend")
	}
	seen := make(map[string]bool, len(a.Backends))
	for i, address := range a.Backends {
		if address == "" {
			return fmt.Errorf("authority.backends[%d]: address cannot be empty", i)
		}
		if seen[address] {
			return fmt.Errorf("authority.backends[%d]: duplicate address '%s'", i, address)
		}
		seen[address] = true
	}
	if a.TrafficRPS <= 0 {
		return fmt.Errorf("authority.traffic_rps must be positive")
	}
	if a.TrafficBurst <= 0 {
		return fmt.Errorf("authority.traffic_burst must be positive")
	}
	if a.MaxDecisions <= 0 {
		return fmt.Errorf("authority.max_decisions must be positive")
	}
	if a.FailureRate < 0 || a.FailureRate >= 1 {
		return fmt.Errorf("authority.failure_rate must be in [0, 1): %v", a.FailureRate)
	}
	if a.ClientRPS <= 0 || a.ClientBurst <= 0 {
		return fmt.Errorf("authority.client_rps and authority.client_burst must be positive")
	}
	return nil
}

// Viewport returns the configured virtual canvas
func (c *Config) Viewport() domain.Viewport {
	return domain.Viewport{Width: c.Canvas.Width, Height: c.Canvas.Height}
}

// SaveToFile saves the configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}

// String renders the effective configuration as YAML with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.Feeds.JWTSecret != "" {
		masked.Feeds.JWTSecret = "***"
	}
	if masked.Authority.JWTSecret != "" {
		masked.Authority.JWTSecret = "***"
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
