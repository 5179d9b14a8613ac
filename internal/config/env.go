package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables
type Environment struct {
	Environment EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath  string          `env:"CONFIG_PATH"`
	CSRFSecret  string          `env:"CSRF_SECRET"`
}

// LoadEnv loads the environment variables
func LoadEnv() *Environment {
	envStr := getEnv("ENVIRONMENT", string(EnvironmentDevelopment))
	envStr = strings.TrimSpace(envStr)
	envStr = strings.ToLower(envStr)
	envType := EnvironmentType(envStr)

	// Validate and default to development if invalid
	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment: envType,
		ConfigPath:  getEnv("CONFIG_PATH", "config.yaml"),
		CSRFSecret:  getEnv("CSRF_SECRET", ""),
	}
}

// Validate checks that required environment variables are set.
// The CSRF secret is what session-bound CSRF tokens are derived from;
// running without it is a misconfiguration, so its absence is fatal in
// every environment.
func (e *Environment) Validate() error {
	if e.CSRFSecret == "" {
		return fmt.Errorf("CSRF_SECRET environment variable is required")
	}
	return nil
}

// IsProduction reports whether the application runs in production
func (e *Environment) IsProduction() bool {
	return e.Environment == EnvironmentProduction
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
