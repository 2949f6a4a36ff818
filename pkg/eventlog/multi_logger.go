package eventlog

// MultiLogger fans events out to multiple loggers.
// Nil entries are skipped.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger that forwards to the given loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log forwards the event to every non-nil logger.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		if l != nil {
			l.Log(event)
		}
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
