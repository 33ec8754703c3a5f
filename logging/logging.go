// Package logging builds the zap logger shared by the engine packages.
package logging

import (
	"fmt"

	"github.com/plus3/framecore/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger from the log section of the configuration.
func New(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	encoder := zap.NewProductionEncoderConfig()
	if cfg.Encoding == "console" {
		encoder = zap.NewDevelopmentEncoderConfig()
	}
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    !cfg.Development,
	}
	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}
	return zc.Build()
}

// Must is New for program start-up: it panics on an invalid configuration.
func Must(cfg config.Log) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return logger
}
