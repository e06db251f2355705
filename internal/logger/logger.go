package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures rotating file output.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates a new zap logger
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	return cfg.Build()
}

// NewWithFile creates a logger that writes to the console and, when
// opts.Path is set, to a rotating JSON log file.
func NewWithFile(development bool, opts FileOptions) (*zap.Logger, error) {
	if opts.Path == "" {
		return New(development)
	}

	level := zap.InfoLevel
	consoleEnc := zap.NewProductionEncoderConfig()
	if development {
		level = zap.DebugLevel
		consoleEnc = zap.NewDevelopmentEncoderConfig()
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder

	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	})

	var console zapcore.Encoder
	if development {
		console = zapcore.NewConsoleEncoder(consoleEnc)
	} else {
		console = zapcore.NewJSONEncoder(consoleEnc)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), file, level),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}
