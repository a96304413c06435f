// Package logging builds the file-backed zap logger. The terminal belongs to
// the UI, so nothing is written to stdout or stderr.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where and how much to log.
type Options struct {
	File    string
	Verbose bool
	// MaxSizeMB caps one log file before rotation. Zero means 10.
	MaxSizeMB int
}

// New returns a JSON logger writing to a rotated file and a function that
// flushes and closes it. An empty File yields a no-op logger.
func New(opts Options) (*zap.Logger, func() error) {
	if opts.File == "" {
		return zap.NewNop(), func() error { return nil }
	}
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.InfoLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level)
	logger := zap.New(core, zap.AddCaller())

	return logger, func() error {
		_ = logger.Sync()
		return rotator.Close()
	}
}
