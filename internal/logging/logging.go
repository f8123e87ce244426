// Package logging builds the zap logger shared by the server and the CLI.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the encoder and minimum level.
type Options struct {
	// Format is "console" or "json".
	Format string
	Level  string
	// Output defaults to stderr.
	Output io.Writer
}

// New returns a logger writing to Output in the requested format.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	var encoder zapcore.Encoder
	switch opts.Format {
	case "", "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(zapcore.AddSync(zapStderr()))
	if opts.Output != nil {
		sink = zapcore.AddSync(opts.Output)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.ErrorOutput(sink)), nil
}

func zapStderr() zapcore.WriteSyncer {
	stderr, _, err := zap.Open("stderr")
	if err != nil {
		return zapcore.AddSync(io.Discard)
	}
	return stderr
}
