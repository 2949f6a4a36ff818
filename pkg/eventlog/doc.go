// Package eventlog captures structured protocol events from an emulated
// device: discovery searches and replies, presence announcements, command
// dispatches, and rejected requests.
//
// Events are written through the Logger interface. FileLogger persists
// events to an append-only CBOR file that test harnesses can read back
// with Reader to assert on the device's observable behavior after a run.
// SlogAdapter mirrors events to a slog.Logger for development, and
// MultiLogger fans out to several sinks at once.
package eventlog
