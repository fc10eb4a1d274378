// Package logging builds the zap logger shared by sheetspec components.
package logging

import (
	prettyconsole "github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// Quiet raises the level to warn. Verbose wins if both are set.
	Quiet bool
	// JSON selects the production JSON encoder instead of the console one.
	JSON bool
}

func (o Options) level() zapcore.Level {
	switch {
	case o.Verbose:
		return zap.DebugLevel
	case o.Quiet:
		return zap.WarnLevel
	default:
		return zap.InfoLevel
	}
}

// New returns a logger for o. Diagnostics go to stderr so they never mix
// with report output on stdout.
func New(o Options) (*zap.Logger, error) {
	if !o.JSON {
		return prettyconsole.NewLogger(o.level()), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(o.level())
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
