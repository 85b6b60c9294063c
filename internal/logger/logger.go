package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger settings.
type Config struct {
	Level      string // debug, info, warn, error
	Encoding   string // json or console
	OutputPath string // stdout when empty

	// Service, when set, is attached to every entry as "service".
	Service string
}

// New builds a zap.Logger writing to cfg.OutputPath. An unknown level falls
// back to info and an unknown encoding to json.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if cfg.Level == "" || err != nil {
		if cfg.Level != "" {
			fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'\n", cfg.Level)
		}
		level = zapcore.InfoLevel
	}

	output := cfg.OutputPath
	if output == "" {
		output = "stdout"
	}
	sink, closeSink, err := zap.Open(output)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %s: %w", output, err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("failed to open log error output: %w", err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Encoding), sink, zap.NewAtomicLevelAt(level))
	log := zap.New(core, zap.ErrorOutput(errSink))
	if cfg.Service != "" {
		log = log.With(zap.String("service", cfg.Service))
	}
	return log, nil
}

func newEncoder(encoding string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.EqualFold(encoding, "console") {
		return zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewJSONEncoder(encCfg)
}
