package eventlog

import "time"

// Event represents one observable action of an emulated device.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// USN is the serial of the emulated device that produced the event.
	USN string `cbor:"2,keyasint"`

	// Kind classifies the event.
	Kind Kind `cbor:"3,keyasint"`

	// RemoteAddr is the peer address (IP:port), when one exists.
	RemoteAddr string `cbor:"4,keyasint,omitempty"`

	// Kind-specific payload (at most one of these is set).
	Search  *SearchEvent  `cbor:"5,keyasint,omitempty"` // KindSearchReceived
	Reply   *ReplyEvent   `cbor:"6,keyasint,omitempty"` // KindReplySent / KindReplySuppressed
	Command *CommandEvent `cbor:"7,keyasint,omitempty"` // KindCommandReceived
	Denial  *DenialEvent  `cbor:"8,keyasint,omitempty"` // KindRequestDenied
}

// Kind classifies the event type.
type Kind uint8

const (
	// KindSearchReceived indicates a matching discovery search arrived.
	KindSearchReceived Kind = 0
	// KindReplySent indicates a discovery reply was sent to a searcher.
	KindReplySent Kind = 1
	// KindReplySuppressed indicates a scheduled reply fired after stop and was dropped.
	KindReplySuppressed Kind = 2
	// KindAnnounceSent indicates a presence announcement was multicast.
	KindAnnounceSent Kind = 3
	// KindCommandReceived indicates an HTTP command was dispatched.
	KindCommandReceived Kind = 4
	// KindRequestDenied indicates the access guard rejected an HTTP request.
	KindRequestDenied Kind = 5
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSearchReceived:
		return "SEARCH"
	case KindReplySent:
		return "REPLY"
	case KindReplySuppressed:
		return "SUPPRESSED"
	case KindAnnounceSent:
		return "ANNOUNCE"
	case KindCommandReceived:
		return "COMMAND"
	case KindRequestDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

// SearchEvent captures a matching discovery search request.
type SearchEvent struct {
	// Target is the search-target token from the request.
	Target string `cbor:"1,keyasint"`

	// MX is the raw maximum-wait hint, empty when the request carried none.
	MX string `cbor:"2,keyasint,omitempty"`
}

// ReplyEvent captures a scheduled discovery reply.
type ReplyEvent struct {
	// Delay is the jitter the reply was scheduled with.
	Delay time.Duration `cbor:"1,keyasint"`
}

// CommandEvent captures a dispatched HTTP command.
type CommandEvent struct {
	// Method is the HTTP method.
	Method string `cbor:"1,keyasint"`

	// Path is the request path.
	Path string `cbor:"2,keyasint"`

	// Arg is the extracted path parameter (key name or app id), if any.
	Arg string `cbor:"3,keyasint,omitempty"`
}

// DenialEvent captures an access guard rejection.
type DenialEvent struct {
	// Host is the offending Host header, if that rule failed.
	Host string `cbor:"1,keyasint,omitempty"`

	// Reason is the human-readable denial reason.
	Reason string `cbor:"2,keyasint"`
}
