package ecp

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrMissingHost is returned when a request carries no Host header.
	ErrMissingHost = errors.New("missing Host header")

	// ErrHostNotAllowed is returned when the Host header is not in the
	// device's allow list.
	ErrHostNotAllowed = errors.New("Host header not allowed")

	// ErrBadSourceAddress is returned when the peer address is not a
	// valid IPv4 address.
	ErrBadSourceAddress = errors.New("invalid source address")

	// ErrSourceNotPrivate is returned when the peer address is outside
	// the private and loopback ranges.
	ErrSourceNotPrivate = errors.New("source address not in a private range")
)

// Guard authorizes inbound HTTP requests. The Host header must exactly
// match an entry of the allow set, defending against DNS rebinding, and
// the source must be a private-range IPv4 peer, preserving the
// LAN-only trust boundary of the real device.
type Guard struct {
	allowed map[string]struct{}
}

// NewGuard creates a Guard over the given allow set. The set is not
// copied; callers must not mutate it afterwards.
func NewGuard(allowedHosts map[string]struct{}) *Guard {
	return &Guard{allowed: allowedHosts}
}

// Authorize checks a request's Host header and peer address. Rules are
// evaluated in order and the first failure wins.
func (g *Guard) Authorize(hostHeader, remoteAddr string) error {
	if hostHeader == "" {
		return ErrMissingHost
	}
	if _, ok := g.allowed[hostHeader]; !ok {
		return fmt.Errorf("%w: %q", ErrHostNotAllowed, hostHeader)
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// Peer addresses without a port are accepted as bare IPs.
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %q", ErrBadSourceAddress, remoteAddr)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return fmt.Errorf("%w: %q is not IPv4", ErrBadSourceAddress, remoteAddr)
	}
	if !ip4.IsPrivate() && !ip4.IsLoopback() {
		return fmt.Errorf("%w: %s", ErrSourceNotPrivate, ip4)
	}
	return nil
}
