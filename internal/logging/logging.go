// Package logging configures the process-wide zap logger.
//
// The launcher historically keyed verbosity off a single WARD_LOG environment
// variable rather than a flag, so the wrapped game's own arguments never
// collide with launcher options. "1" shows the resolved environment and the
// final command, "warn" limits output to warnings, and "debug" enables
// everything including reap-race diagnostics.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// EnvVar is the environment variable controlling launcher verbosity.
const EnvVar = "WARD_LOG"

// New builds a console logger at the level selected by WARD_LOG.
// The default level hides info chatter so the wrapped game's stdio stays clean.
func New() *zap.Logger {
	return NewAt(LevelFromEnv(os.Getenv(EnvVar)))
}

// NewAt builds a console logger at an explicit level.
func NewAt(level zapcore.Level) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	if term.IsTerminal(int(os.Stderr.Fd())) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// LevelFromEnv maps a WARD_LOG value to a zap level. Unknown values keep the
// default, which surfaces warnings and errors only.
func LevelFromEnv(value string) zapcore.Level {
	switch value {
	case "1":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "debug":
		return zapcore.DebugLevel
	default:
		return zapcore.WarnLevel
	}
}
