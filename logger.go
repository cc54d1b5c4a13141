package pairspec

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with helpers for the operations of this package.
// The zero value is not usable; construct one through NewLogger,
// NewTextLogger, NewJSONLogger or NoopLogger.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger from a slog handler. A nil handler falls back
// to a text handler writing to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger writing human-readable lines to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger writing JSON records to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards every record.
func NoopLogger() *Logger {
	// Unreachable level.
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// WithSpecies returns a Logger whose records carry the species.
func (l *Logger) WithSpecies(species string) *Logger {
	return &Logger{Logger: l.Logger.With("species", species)}
}

// WithDimension returns a Logger whose records carry a basis dimension.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{Logger: l.Logger.With("dim", dim)}
}

// WithStage returns a Logger whose records carry a lifecycle stage.
func (l *Logger) WithStage(stage Stage) *Logger {
	return &Logger{Logger: l.Logger.With("stage", stage.String())}
}

// LogBuildBasis records a basis construction.
func (l *Logger) LogBuildBasis(ctx context.Context, label string, states int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "basis build failed", "system", label, "error", err)
		return
	}
	l.DebugContext(ctx, "basis built", "system", label, "states", states)
}

// LogAssemble records an interaction assembly.
func (l *Logger) LogAssemble(ctx context.Context, distance, angle float64, dim int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "interaction assembly failed",
			"distance_um", distance, "angle_rad", angle, "error", err)
		return
	}
	l.DebugContext(ctx, "interaction assembled",
		"distance_um", distance, "angle_rad", angle, "dim", dim)
}

// LogDiagonalize records a diagonalization.
func (l *Logger) LogDiagonalize(ctx context.Context, dim, pairs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "diagonalization failed", "dim", dim, "error", err)
		return
	}
	l.DebugContext(ctx, "diagonalized", "dim", dim, "eigenpairs", pairs)
}

// LogOverlap records an overlap analysis.
func (l *Logger) LogOverlap(label string, pairs int, err error) {
	if err != nil {
		l.Error("overlap failed", "reference", label, "error", err)
		return
	}
	l.Debug("overlap computed", "reference", label, "eigenpairs", pairs)
}
