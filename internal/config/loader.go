package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "missiondeck.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "MISSIONDECK_PORT")
	setString(&cfg.Server.CORSOrigin, "MISSIONDECK_CORS_ORIGIN")
	setString(&cfg.Gemini.Model, "MISSIONDECK_GEMINI_MODEL")
	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setDuration(&cfg.Gemini.Timeout, "MISSIONDECK_GEMINI_TIMEOUT")
	setFloat64(&cfg.Gemini.CostPerToken, "MISSIONDECK_GEMINI_COST_PER_TOKEN")
	setString(&cfg.Logging.Level, "MISSIONDECK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "MISSIONDECK_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "MISSIONDECK_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "MISSIONDECK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "MISSIONDECK_BREAKER_TIMEOUT")
	setInt(&cfg.Mission.MaxIterations, "MISSIONDECK_MAX_ITERATIONS")
	setInt(&cfg.Mission.RerunMaxIterations, "MISSIONDECK_RERUN_MAX_ITERATIONS")
	setDuration(&cfg.Mission.ToolLatency, "MISSIONDECK_TOOL_LATENCY")
}

// validate checks that required fields are set. The Gemini API key is
// required: without it every decision would silently degrade, so startup
// fails fast instead.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY environment variable is required")
	}
	if cfg.Gemini.Model == "" {
		return errors.New("gemini.model is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Mission.MaxIterations < 1 {
		return errors.New("mission.max_iterations must be >= 1")
	}
	if cfg.Mission.RerunMaxIterations < 1 {
		return errors.New("mission.rerun_max_iterations must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
