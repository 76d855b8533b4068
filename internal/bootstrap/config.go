// Package bootstrap wires configuration, logging and shared infrastructure
// for the threadwatch commands.
package bootstrap

import (
	"fmt"

	"threadwatch/internal/config"
	"threadwatch/internal/logger"
)

// LoadConfig loads and validates configuration from the given path.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config, service, version string) (logger.Logger, error) {
	log, err := logger.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", service),
		logger.String("version", version),
	), nil
}
