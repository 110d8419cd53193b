package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Attribute keys shared by the session manager, the tools and the audit log.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyUserHash  = "user_hash"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyState     = "state"
	KeyOutcome   = "outcome"
	KeyFlow      = "flow"
	KeyPath      = "path"
)

// Log output formats accepted by Setup.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the process-wide logger.
type Options struct {
	Level slog.Level
	// Format is FormatText or FormatJSON; see ParseFormat.
	Format string
	// Output defaults to os.Stderr. Never stdout: it carries the stdio
	// transport.
	Output io.Writer
}

// ParseFormat normalizes a --log-format value.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported log format %q (supported: %s, %s)", s, FormatText, FormatJSON)
	}
}

// Setup installs a logger built from opts as slog's default and returns it.
// An unknown format falls back to text.
func Setup(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler = slog.NewTextHandler(out, handlerOpts)
	if f, _ := ParseFormat(opts.Format); f == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithOperation returns a logger tagged with an operation name.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// State is the attribute for a session state name.
func State(state string) slog.Attr {
	return slog.String(KeyState, state)
}

// Outcome is the attribute for how an interactive flow ended.
func Outcome(outcome string) slog.Attr {
	return slog.String(KeyOutcome, outcome)
}

// Path is the attribute for a filesystem path.
func Path(path string) slog.Attr {
	return slog.String(KeyPath, path)
}

// Err is the attribute for an error. A nil error yields an empty group,
// which slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a stable pseudonym for an email address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash is the attribute carrying AnonymizeEmail(email).
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}
