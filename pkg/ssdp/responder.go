package ssdp

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/rokusim/rokusim-go/pkg/eventlog"
)

// DefaultMulticastAddress is the standard SSDP multicast group.
const DefaultMulticastAddress = "239.255.255.250:1900"

const (
	// DefaultAnnounceInterval is the period between alive announcements
	// and the advertised cache lifetime.
	DefaultAnnounceInterval = 300 * time.Second

	// DefaultMaxReplyDelay caps the randomized search reply delay when
	// the searcher sends no usable MX hint.
	DefaultMaxReplyDelay = 5 * time.Second
)

var (
	// ErrAlreadyStarted is returned when Start is called on a running responder.
	ErrAlreadyStarted = errors.New("responder already started")
)

// JitterFunc picks a reply delay in [0, bound). Injectable for tests.
type JitterFunc func(bound time.Duration) time.Duration

func defaultJitter(bound time.Duration) time.Duration {
	return rand.N(bound)
}

// ResponderConfig configures a discovery Responder.
type ResponderConfig struct {
	// USN is the device serial embedded in discovery payloads.
	USN string

	// AdvertiseIP and AdvertisePort form the Location URL searchers
	// are pointed at.
	AdvertiseIP   string
	AdvertisePort int

	// BindIP selects the interface that joins the multicast group.
	BindIP string

	// BindMulticastWildcard binds the listener to the wildcard address
	// instead of BindIP. Some platforms drop multicast datagrams on
	// sockets bound to a specific address.
	BindMulticastWildcard bool

	// MulticastAddress is the group the responder listens on.
	// Defaults to DefaultMulticastAddress.
	MulticastAddress string

	// AnnounceInterval is the period between alive announcements.
	AnnounceInterval time.Duration

	// MaxReplyDelay caps the randomized search reply delay.
	MaxReplyDelay time.Duration

	// Jitter overrides the reply delay randomization. Defaults to a
	// uniform pick from [0, bound).
	Jitter JitterFunc

	// Logger receives diagnostic output. Optional.
	Logger *slog.Logger

	// Events receives discovery events for capture. Optional.
	Events eventlog.Logger
}

// DefaultResponderConfig returns a ResponderConfig with standard SSDP
// timing. USN and the advertise address must still be set by the caller.
func DefaultResponderConfig() ResponderConfig {
	return ResponderConfig{
		MulticastAddress: DefaultMulticastAddress,
		AnnounceInterval: DefaultAnnounceInterval,
		MaxReplyDelay:    DefaultMaxReplyDelay,
	}
}

// Validate checks the configuration for errors.
func (c ResponderConfig) Validate() error {
	if c.USN == "" {
		return fmt.Errorf("USN is required")
	}
	if net.ParseIP(c.AdvertiseIP) == nil {
		return fmt.Errorf("invalid advertise IP %q", c.AdvertiseIP)
	}
	if c.AdvertisePort < 1 || c.AdvertisePort > 65535 {
		return fmt.Errorf("invalid advertise port %d", c.AdvertisePort)
	}
	if _, _, err := net.SplitHostPort(c.MulticastAddress); err != nil {
		return fmt.Errorf("invalid multicast address %q: %w", c.MulticastAddress, err)
	}
	if c.AnnounceInterval <= 0 {
		return fmt.Errorf("announce interval must be positive")
	}
	if c.MaxReplyDelay < time.Second {
		return fmt.Errorf("max reply delay must be at least one second")
	}
	return nil
}

// Responder answers SSDP searches for the device and multicasts its
// periodic presence announcements.
type Responder struct {
	config ResponderConfig
	jitter JitterFunc
	events eventlog.Logger

	searchResponse []byte
	aliveNotify    []byte

	// listen opens the datagram socket. Overridable in tests.
	listen func() (net.PacketConn, *net.UDPAddr, error)

	mu           sync.Mutex
	listening    bool
	conn         net.PacketConn
	announceStop chan struct{}
}

// NewResponder creates a Responder from the given configuration.
func NewResponder(config ResponderConfig) (*Responder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid responder config: %w", err)
	}

	maxAge := int(config.AnnounceInterval / time.Second)
	data := payloadData{
		USN:    config.USN,
		IP:     config.AdvertiseIP,
		Port:   config.AdvertisePort,
		Group:  config.MulticastAddress,
		MaxAge: maxAge,
	}

	searchResponse, err := renderPayload(searchResponseTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render search response: %w", err)
	}
	aliveNotify, err := renderPayload(aliveNotifyTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render alive announcement: %w", err)
	}

	r := &Responder{
		config:         config,
		jitter:         config.Jitter,
		events:         config.Events,
		searchResponse: searchResponse,
		aliveNotify:    aliveNotify,
	}
	if r.jitter == nil {
		r.jitter = defaultJitter
	}
	if r.events == nil {
		r.events = eventlog.NoopLogger{}
	}
	r.listen = func() (net.PacketConn, *net.UDPAddr, error) {
		return openMulticastSocket(r.config)
	}
	return r, nil
}

// Start joins the multicast group and begins answering searches.
// The first alive announcement is sent immediately.
func (r *Responder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listening {
		return ErrAlreadyStarted
	}

	conn, group, err := r.listen()
	if err != nil {
		return err
	}

	r.conn = conn
	r.announceStop = make(chan struct{})
	r.listening = true

	go r.readLoop(conn)
	go r.announceLoop(conn, group, r.announceStop)

	r.debugLog("discovery responder started",
		"usn", r.config.USN,
		"group", r.config.MulticastAddress)
	return nil
}

// Stop leaves the multicast group and stops announcements. Replies
// already scheduled are suppressed when they fire. Stop is idempotent.
func (r *Responder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.listening {
		return nil
	}

	r.listening = false
	close(r.announceStop)
	err := r.conn.Close()
	r.conn = nil

	r.debugLog("discovery responder stopped", "usn", r.config.USN)
	return err
}

// Listening reports whether the responder is currently running.
func (r *Responder) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

func (r *Responder) readLoop(conn net.PacketConn) {
	buf := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			// Socket closed by Stop, or fatal read error.
			return
		}

		req, ok := parseSearchRequest(buf[:n])
		if !ok || !req.matchesTarget() {
			continue
		}

		r.events.Log(eventlog.Event{
			Timestamp:  time.Now(),
			USN:        r.config.USN,
			Kind:       eventlog.KindSearchReceived,
			RemoteAddr: addr.String(),
			Search:     &eventlog.SearchEvent{Target: req.target, MX: req.mx},
		})
		r.scheduleReply(conn, req, addr)
	}
}

// scheduleReply fires a unicast search response after a randomized
// delay. The responder state and the socket the search arrived on are
// re-checked when the timer fires so a reply never escapes after Stop,
// not even into a restarted responder with a fresh socket.
func (r *Responder) scheduleReply(conn net.PacketConn, req searchRequest, addr net.Addr) {
	delay := r.jitter(replyDelayBound(req.mx, r.config.MaxReplyDelay))

	time.AfterFunc(delay, func() {
		r.mu.Lock()
		live := r.listening && r.conn == conn
		r.mu.Unlock()

		if !live {
			r.events.Log(eventlog.Event{
				Timestamp:  time.Now(),
				USN:        r.config.USN,
				Kind:       eventlog.KindReplySuppressed,
				RemoteAddr: addr.String(),
				Reply:      &eventlog.ReplyEvent{Delay: delay},
			})
			return
		}

		if _, err := conn.WriteTo(r.searchResponse, addr); err != nil {
			r.debugLog("failed to send search reply", "peer", addr.String(), "error", err)
			return
		}

		r.events.Log(eventlog.Event{
			Timestamp:  time.Now(),
			USN:        r.config.USN,
			Kind:       eventlog.KindReplySent,
			RemoteAddr: addr.String(),
			Reply:      &eventlog.ReplyEvent{Delay: delay},
		})
	})
}

func (r *Responder) announceLoop(conn net.PacketConn, group *net.UDPAddr, stop chan struct{}) {
	r.sendAnnounce(conn, group)

	ticker := time.NewTicker(r.config.AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sendAnnounce(conn, group)
		case <-stop:
			return
		}
	}
}

func (r *Responder) sendAnnounce(conn net.PacketConn, group *net.UDPAddr) {
	if _, err := conn.WriteTo(r.aliveNotify, group); err != nil {
		r.debugLog("failed to send alive announcement", "error", err)
		return
	}
	r.events.Log(eventlog.Event{
		Timestamp: time.Now(),
		USN:       r.config.USN,
		Kind:      eventlog.KindAnnounceSent,
	})
}

func (r *Responder) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}
