package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdkilimba/ledgerd/cli"
)

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing LEDGERD_LOG_LEVEL: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func main() {
	// cli.Run reads the full config via config.Load; this direct read of
	// the log level is only to pick the logger's level before anything
	// else starts.
	level := os.Getenv("LEDGERD_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	logger, err := newLogger(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cmd := cli.CommandLine{Logger: logger}
	if err := cmd.Run(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
