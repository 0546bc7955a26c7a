package logging

import (
	"io"
	"log/slog"
	"os"
)

// LevelStep sits between WARN and ERROR and carries captured step output,
// so step logs can be shown without warnings or INFO chatter.
const LevelStep = slog.Level(6)

// New creates a configured application logger.
// It writes to Stderr (to keep Stdout for reports).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelStep {
					a.Value = slog.StringValue("STEP")
				}
			}
			return a
		},
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LevelForVerbosity maps the count of -v flags to a level:
// up to 1 errors only, 2 step output, 3 warnings, 4 info, 5+ debug.
func LevelForVerbosity(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return LevelStep
	case v == 3:
		return slog.LevelWarn
	case v == 4:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
