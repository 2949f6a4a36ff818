package ecp

// CommandHandler receives remote-control commands extracted from the
// HTTP surface. Implementations belong to the test harness driving the
// emulated device; all operations are fire-and-forget.
type CommandHandler interface {
	// OnKeyDown is called for POST /keydown/<key>.
	OnKeyDown(usn, key string)

	// OnKeyUp is called for POST /keyup/<key>.
	OnKeyUp(usn, key string)

	// OnKeyPress is called for POST /keypress/<key>.
	OnKeyPress(usn, key string)

	// Launch is called for POST /launch/<appID>.
	Launch(usn, appID string)
}

// NoopHandler ignores all commands. Used when the caller supplies no
// handler of its own.
type NoopHandler struct{}

func (NoopHandler) OnKeyDown(usn, key string)  {}
func (NoopHandler) OnKeyUp(usn, key string)    {}
func (NoopHandler) OnKeyPress(usn, key string) {}
func (NoopHandler) Launch(usn, appID string)   {}

// Compile-time interface satisfaction check.
var _ CommandHandler = NoopHandler{}
