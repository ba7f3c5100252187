// Package logger builds the application's structured logger.
package logger

import "go.uber.org/zap"

// New creates a logger for the given environment: JSON output at info level
// in production, human-readable debug output everywhere else.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
