// Package logging builds the zap logger used by the hookup binary.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr at info level, or at debug
// level when debug is set. Hooks share the terminal with git, so output is
// kept short: no caller, no stack traces, no sampling.
func New(debug bool) (*zap.Logger, error) {
	lc := zap.NewDevelopmentConfig()
	lc.Level = zap.NewAtomicLevelAt(level(debug))
	lc.Development = false
	lc.DisableCaller = true
	lc.DisableStacktrace = true
	lc.EncoderConfig.TimeKey = ""
	lc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	lc.OutputPaths = []string{"stderr"}
	lc.ErrorOutputPaths = []string{"stderr"}
	return lc.Build()
}

// Must is New that panics on error.
func Must(debug bool) *zap.Logger {
	l, err := New(debug)
	if err != nil {
		panic(err)
	}
	return l
}

func level(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
