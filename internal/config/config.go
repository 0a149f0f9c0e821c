// Package config provides hierarchical configuration loading for MissionDeck.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the MissionDeck server.
type Config struct {
	Server  Server  `yaml:"server"`
	Gemini  Gemini  `yaml:"gemini"`
	Logging Logging `yaml:"logging"`
	Breaker Breaker `yaml:"breaker"`
	Mission Mission `yaml:"mission"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Gemini holds generative-language API configuration. APIKey is only
// accepted from the environment (GEMINI_API_KEY), never from YAML.
type Gemini struct {
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"-"`
	Timeout      time.Duration `yaml:"timeout"`
	CostPerToken float64       `yaml:"cost_per_token"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for the Gemini client.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Mission holds orchestration loop configuration.
type Mission struct {
	MaxIterations      int           `yaml:"max_iterations"`       // iteration budget for planned tasks (default: 5)
	RerunMaxIterations int           `yaml:"rerun_max_iterations"` // iteration budget for rerun tasks (default: 3)
	ToolLatency        time.Duration `yaml:"tool_latency"`         // simulated base latency per tool call
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:5173",
		},
		Gemini: Gemini{
			Model:        "gemini-2.0-flash",
			Timeout:      60 * time.Second,
			CostPerToken: 0.000001,
		},
		Logging: Logging{
			Level:   "info",
			Service: "missiondeck",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Mission: Mission{
			MaxIterations:      5,
			RerunMaxIterations: 3,
			ToolLatency:        500 * time.Millisecond,
		},
	}
}
