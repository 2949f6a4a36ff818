package device

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/rokusim/rokusim-go/pkg/ecp"
	"github.com/rokusim/rokusim-go/pkg/ssdp"
)

var (
	// ErrAlreadyStarted is returned when Start is called on a running device.
	ErrAlreadyStarted = errors.New("device already started")
)

// State is the lifecycle state of a Device.
type State int

const (
	// StateIdle means the device has not been started yet.
	StateIdle State = iota
	// StateRunning means both the command server and the discovery
	// responder are up.
	StateRunning
	// StateStopped means the device was stopped. It can be started again.
	StateStopped
)

// Device is the lifecycle owner of one emulated media-player device.
// It runs the HTTP command server and the SSDP responder as siblings;
// the two never talk to each other.
type Device struct {
	config Config
	id     string

	mu        sync.Mutex
	state     State
	server    *ecp.Server
	responder *ssdp.Responder
}

// New creates a Device from the given configuration. Defaults are
// applied before validation; the identity is derived here, once.
func New(config Config) (*Device, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device config: %w", err)
	}

	return &Device{
		config: config,
		id:     DeriveDeviceID(config.USN),
	}, nil
}

// ID returns the derived device identifier.
func (d *Device) ID() string {
	return d.id
}

// USN returns the device serial.
func (d *Device) USN() string {
	return d.config.USN
}

// State returns the current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Addr returns the bound command listener address, or empty when the
// device is not running.
func (d *Device) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// Start brings the device up: command server first, then the discovery
// responder. Any failure tears down what already started and leaves
// the device not running.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateRunning {
		return ErrAlreadyStarted
	}

	// Bind first so an ephemeral listen port resolves before the allow
	// set and discovery payloads are built; both must carry the port
	// clients actually reach.
	bindAddr := net.JoinHostPort(d.config.HostIP, strconv.Itoa(d.config.ListenPort))
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("failed to bind command listener on %s: %w", bindAddr, err)
	}

	listenPort := d.config.ListenPort
	if listenPort == 0 {
		listenPort, err = listenerPort(listener.Addr().String())
		if err != nil {
			listener.Close()
			return err
		}
	}
	advertisePort := d.config.AdvertisePort
	if advertisePort == 0 {
		advertisePort = listenPort
	}

	server, err := ecp.NewServer(ecp.ServerConfig{
		USN:          d.config.USN,
		DeviceID:     d.id,
		FriendlyName: d.config.FriendlyName,
		HostIP:       d.config.HostIP,
		ListenPort:   listenPort,
		AllowedHosts: d.config.allowedHosts(listenPort, advertisePort),
		Handler:      d.config.Handler,
		Logger:       d.config.Logger,
		Events:       d.config.Events,
	})
	if err != nil {
		listener.Close()
		return err
	}
	if err := server.Serve(listener); err != nil {
		listener.Close()
		return err
	}

	responderConfig := ssdp.DefaultResponderConfig()
	responderConfig.USN = d.config.USN
	responderConfig.AdvertiseIP = d.config.AdvertiseIP
	responderConfig.AdvertisePort = advertisePort
	responderConfig.BindIP = d.config.HostIP
	responderConfig.BindMulticastWildcard = *d.config.BindMulticastWildcard
	responderConfig.Logger = d.config.Logger
	responderConfig.Events = d.config.Events

	responder, err := ssdp.NewResponder(responderConfig)
	if err != nil {
		server.Stop()
		return err
	}
	if err := responder.Start(); err != nil {
		server.Stop()
		return err
	}

	d.server = server
	d.responder = responder
	d.state = StateRunning
	return nil
}

// Stop shuts both siblings down. Stop is idempotent.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateRunning {
		return nil
	}
	d.state = StateStopped

	var errs []error
	if err := d.responder.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := d.server.Stop(); err != nil {
		errs = append(errs, err)
	}
	d.responder = nil
	d.server = nil
	return errors.Join(errs...)
}

func listenerPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("failed to determine listener port: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("failed to determine listener port: %w", err)
	}
	return port, nil
}
