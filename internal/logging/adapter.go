package logging

import "log/slog"

// Logger is the level-based surface taken by packages that log through
// key-value pairs and should not depend on slog directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var _ Logger = (*SlogAdapter)(nil)

// SlogAdapter satisfies Logger with an slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger, or slog.Default() when logger is nil.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }

func (a *SlogAdapter) Info(msg string, args ...any) { a.logger.Info(msg, args...) }

func (a *SlogAdapter) Warn(msg string, args ...any) { a.logger.Warn(msg, args...) }

func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
