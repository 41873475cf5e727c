// Package logger configures the zap loggers used by the
// commands.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New creates a sugared logger.
//
// The "prod" and "production" modes log JSON at the info
// level; any other mode logs human-readable text at the
// debug level.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
