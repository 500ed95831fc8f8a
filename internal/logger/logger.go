// Package logger builds the zap loggers shared by the API server and the
// batch migration CLI.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// New returns a production (JSON) or development (console) logger. Unknown
// modes are rejected so a typo in configuration fails fast.
func New(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", ModeProduction:
		cfg = zap.NewProductionConfig()
	case "", "dev", ModeDevelopment:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

func Nop() *zap.Logger {
	return zap.NewNop()
}
