// Package logger configures the process-wide zap logger.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds a logger for env, installs it as the zap global and returns a
// flush func for deferred use in main.
func Init(env string) (func(), error) {
	var (
		log *zap.Logger
		err error
	)

	switch strings.ToLower(env) {
	case "development", "dev", "local":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		log, err = cfg.Build()
	default:
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		log, err = cfg.Build()
	}
	if err != nil {
		return func() {}, err
	}

	restore := zap.ReplaceGlobals(log)
	return func() {
		_ = log.Sync()
		restore()
	}, nil
}

// Named returns the global logger tagged with a component field.
func Named(component string) *zap.Logger {
	return zap.L().With(zap.String("component", component))
}
