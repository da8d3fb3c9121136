package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger *zap.SugaredLogger

func MustGetLogger() *zap.SugaredLogger {
	if defaultLogger != nil {
		return defaultLogger
	}

	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true // Disable stack traces

	if lvl, err := zapcore.ParseLevel(AppCfg.LogLevel); err == nil {
		c.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := c.Build()
	if err != nil {
		fmt.Printf("Failed to create logger: %v", err)
		os.Exit(1)
	}

	defaultLogger = logger.Sugar()
	return defaultLogger
}
