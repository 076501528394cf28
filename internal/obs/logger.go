// Package obs is the gateway's observability surface: structured logging
// via zap and Prometheus metrics for per-call outcomes, cost, retries,
// and ranking state.
package obs

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig covers the two settings the gateway actually varies: level,
// and whether to use human-readable console output or JSON (what gatewayd
// uses).
type LogConfig struct {
	Level       string
	Development bool
}

// NewLogger builds a zap.Logger from cfg, defaulting to info-level JSON
// output.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("obs: invalid log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level

	return zcfg.Build()
}
