package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "LBD_"

// LoadConfig loads configuration with priority: env vars > config file > defaults.
// The file is taken from CONFIG_FILE, falling back to dashboard.yaml; either
// may be absent.
func LoadConfig() (*Config, error) {
	return load(getEnv("CONFIG_FILE", "dashboard.yaml"), false)
}

// LoadConfigFrom is LoadConfig with a file the caller named explicitly, which
// must exist
func LoadConfigFrom(configFile string) (*Config, error) {
	return load(configFile, true)
}

// load overlays the file and then the environment on the defaults, and
// validates only the final result
func load(configFile string, required bool) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		_, err := os.Stat(configFile)
		switch {
		case err == nil:
			if err := parseFile(configFile, config); err != nil {
				return nil, err
			}
		case required || !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	applyEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvironment overrides every field whose variable is set
func applyEnvironment(config *Config) {
	// Feeds
	if v := getEnv(envPrefix+"METRICS_URL", ""); v != "" {
		config.Feeds.MetricsURL = v
	}
	if v := getEnv(envPrefix+"STATUS_URL", ""); v != "" {
		config.Feeds.StatusURL = v
	}
	config.Feeds.Interval = getEnvDuration(envPrefix+"POLL_INTERVAL", config.Feeds.Interval)
	config.Feeds.Timeout = getEnvDuration(envPrefix+"FEED_TIMEOUT", config.Feeds.Timeout)
	if v := getEnv(envPrefix+"FEED_JWT_SECRET", ""); v != "" {
		config.Feeds.JWTSecret = v
	}

	// Simulation
	if v := getEnv(envPrefix+"ALGORITHM", ""); v != "" {
		config.Simulation.Algorithm = v
	}
	config.Simulation.SpawnProbability = getEnvFloat(envPrefix+"SPAWN_PROBABILITY", config.Simulation.SpawnProbability)
	config.Simulation.AdoptNewBackends = getEnvBool(envPrefix+"ADOPT_NEW_BACKENDS", config.Simulation.AdoptNewBackends)
	config.Simulation.Seed = int64(getEnvInt(envPrefix+"SEED", int(config.Simulation.Seed)))

	// Animation
	config.Animation.FrameInterval = getEnvDuration(envPrefix+"FRAME_INTERVAL", config.Animation.FrameInterval)

	// Decision log
	config.DecisionLog.MaxLines = getEnvInt(envPrefix+"LOG_MAX_LINES", config.DecisionLog.MaxLines)

	// Logging
	if v := getEnv(envPrefix+"LOG_LEVEL", ""); v != "" {
		config.Logging.Level = v
	}
	if v := getEnv(envPrefix+"LOG_FORMAT", ""); v != "" {
		config.Logging.Format = v
	}
	if v := getEnv(envPrefix+"LOG_OUTPUT", ""); v != "" {
		config.Logging.Output = v
	}
	if v := getEnv(envPrefix+"LOG_FILE", ""); v != "" {
		config.Logging.File = v
	}

	// Authority
	config.Authority.Port = getEnvInt(envPrefix+"AUTHORITY_PORT", config.Authority.Port)
	if v := getEnv(envPrefix+"AUTHORITY_BACKENDS", ""); v != "" {
		config.Authority.Backends = parseBackendsFromEnv(v)
	}
	config.Authority.TrafficRPS = getEnvFloat(envPrefix+"AUTHORITY_RPS", config.Authority.TrafficRPS)
	config.Authority.MaxDecisions = getEnvInt(envPrefix+"AUTHORITY_MAX_DECISIONS", config.Authority.MaxDecisions)
	config.Authority.ClientRPS = getEnvFloat(envPrefix+"AUTHORITY_CLIENT_RPS", config.Authority.ClientRPS)
	config.Authority.TrustForwardedFor = getEnvBool(envPrefix+"AUTHORITY_TRUST_FORWARDED_FOR", config.Authority.TrustForwardedFor)
	if v := getEnv(envPrefix+"AUTHORITY_JWT_SECRET", ""); v != "" {
		config.Authority.JWTSecret = v
	}
}

// getEnv gets environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseBackendsFromEnv parses a comma separated address list
// Example: "localhost:9001,localhost:9002"
func parseBackendsFromEnv(backends string) []string {
	var addresses []string
	for _, spec := range strings.Split(backends, ",") {
		if address := strings.TrimSpace(spec); address != "" {
			addresses = append(addresses, address)
		}
	}
	return addresses
}

// getEnvInt gets environment variable as integer with fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets environment variable as float with fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool gets environment variable as bool with fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration gets environment variable as duration with fallback
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
