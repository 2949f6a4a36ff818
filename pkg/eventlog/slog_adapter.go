package eventlog

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see device events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("usn", event.USN),
		slog.String("kind", event.Kind.String()),
	}

	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	switch {
	case event.Search != nil:
		attrs = append(attrs, slog.String("target", event.Search.Target))
		if event.Search.MX != "" {
			attrs = append(attrs, slog.String("mx", event.Search.MX))
		}
	case event.Reply != nil:
		attrs = append(attrs, slog.Duration("delay", event.Reply.Delay))
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("method", event.Command.Method),
			slog.String("path", event.Command.Path),
		)
		if event.Command.Arg != "" {
			attrs = append(attrs, slog.String("arg", event.Command.Arg))
		}
	case event.Denial != nil:
		attrs = append(attrs, slog.String("reason", event.Denial.Reason))
		if event.Denial.Host != "" {
			attrs = append(attrs, slog.String("host", event.Denial.Host))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "device", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
