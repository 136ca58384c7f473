package config

import "go.uber.org/zap"

// InitLogger builds a development-mode zap logger at info level.
func InitLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return cfg.Build()
}

// Cleanup flushes any buffered log entries.
func Cleanup(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
