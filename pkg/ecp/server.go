package ecp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rokusim/rokusim-go/pkg/eventlog"
)

var (
	// ErrAlreadyStarted is returned when Start is called on a running server.
	ErrAlreadyStarted = errors.New("server already started")
)

// ServerConfig configures the HTTP command server.
type ServerConfig struct {
	// USN is the device serial, reported verbatim in info bodies and
	// passed to the command handler.
	USN string

	// DeviceID is the derived identifier used as the UPnP UDN.
	DeviceID string

	// FriendlyName is the human-readable device name. Defaults to
	// "Rokusim <USN>".
	FriendlyName string

	// HostIP and ListenPort form the local bind address.
	HostIP     string
	ListenPort int

	// AllowedHosts is the immutable Host-header allow set.
	AllowedHosts map[string]struct{}

	// Handler receives remote-control commands. Defaults to NoopHandler.
	Handler CommandHandler

	// Logger receives diagnostic output. Optional.
	Logger *slog.Logger

	// Events receives command and denial events for capture. Optional.
	Events eventlog.Logger
}

// Validate checks the configuration for errors.
func (c ServerConfig) Validate() error {
	if c.USN == "" {
		return fmt.Errorf("USN is required")
	}
	if c.DeviceID == "" {
		return fmt.Errorf("device ID is required")
	}
	if net.ParseIP(c.HostIP) == nil {
		return fmt.Errorf("invalid host IP %q", c.HostIP)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port %d", c.ListenPort)
	}
	if len(c.AllowedHosts) == 0 {
		return fmt.Errorf("allowed hosts set is empty")
	}
	return nil
}

// Server is the HTTP command surface of one emulated device.
type Server struct {
	config  ServerConfig
	guard   *Guard
	handler CommandHandler
	events  eventlog.Logger

	deviceDescription []byte
	deviceInfo        []byte
	appList           []byte

	httpServer *http.Server

	mu        sync.Mutex
	running   bool
	listener  net.Listener
	activeApp App
}

// NewServer creates a Server from the given configuration. Info bodies
// are rendered once here.
func NewServer(config ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	if config.FriendlyName == "" {
		config.FriendlyName = "Rokusim " + config.USN
	}
	if config.Handler == nil {
		config.Handler = NoopHandler{}
	}

	data := templateData{
		USN:          config.USN,
		DeviceID:     config.DeviceID,
		FriendlyName: config.FriendlyName,
		Apps:         defaultApps,
	}

	deviceDescription, err := renderTemplate(deviceDescriptionTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render device description: %w", err)
	}
	deviceInfo, err := renderTemplate(deviceInfoTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render device info: %w", err)
	}
	appList, err := renderTemplate(appListTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render app list: %w", err)
	}

	s := &Server{
		config:            config,
		guard:             NewGuard(config.AllowedHosts),
		handler:           config.Handler,
		events:            config.Events,
		deviceDescription: deviceDescription,
		deviceInfo:        deviceInfo,
		appList:           appList,
		activeApp:         homeApp,
	}
	if s.events == nil {
		s.events = eventlog.NoopLogger{}
	}
	return s, nil
}

// Handler returns the full route tree wrapped in the access guard.
// Exposed for in-process testing without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleDeviceDescription)
	mux.HandleFunc("GET /query/device-info", s.handleDeviceInfo)
	mux.HandleFunc("GET /query/apps", s.handleAppList)
	mux.HandleFunc("GET /query/active-app", s.handleActiveApp)
	mux.HandleFunc("GET /query/icon/{id}", s.handleIcon)
	mux.HandleFunc("POST /input", s.handleNoop)
	mux.HandleFunc("POST /search", s.handleNoop)
	mux.HandleFunc("POST /keydown/{key}", s.handleKey(s.handler.OnKeyDown))
	mux.HandleFunc("POST /keyup/{key}", s.handleKey(s.handler.OnKeyUp))
	mux.HandleFunc("POST /keypress/{key}", s.handleKey(s.handler.OnKeyPress))
	mux.HandleFunc("POST /launch/{id}", s.handleLaunch)

	return s.withGuard(mux)
}

// Start binds the listener and begins serving. Bind failures surface
// synchronously so a device never reports itself running without its
// command surface.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.HostIP, fmt.Sprintf("%d", s.config.ListenPort))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind command listener on %s: %w", addr, err)
	}
	if err := s.Serve(listener); err != nil {
		listener.Close()
		return err
	}
	return nil
}

// Serve begins serving on a caller-provided listener, which lets the
// caller resolve an ephemeral port before constructing the allow set.
// The HTTP server is rebuilt on every call, so a stopped Server can be
// started again.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}

	s.listener = listener
	s.running = true
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.debugLog("command server terminated", "error", err)
		}
	}(s.httpServer)

	s.debugLog("command server started", "addr", listener.Addr().String())
	return nil
}

// Stop shuts the server down, draining in-flight requests briefly.
// Stop is idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.httpServer
	s.mu.Unlock()

	// Shutdown waits for in-flight handlers; the state mutex must not
	// be held here.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Addr returns the bound listener address, or empty when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withGuard enforces the access rules before any route runs.
func (s *Server) withGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.guard.Authorize(r.Host, r.RemoteAddr); err != nil {
			s.warnLog("request denied",
				"host", r.Host,
				"remote_addr", r.RemoteAddr,
				"reason", err.Error())
			s.events.Log(eventlog.Event{
				Timestamp:  time.Now(),
				USN:        s.config.USN,
				Kind:       eventlog.KindRequestDenied,
				RemoteAddr: r.RemoteAddr,
				Denial:     &eventlog.DenialEvent{Host: r.Host, Reason: err.Error()},
			})
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleDeviceDescription(w http.ResponseWriter, r *http.Request) {
	s.writeXML(w, s.deviceDescription)
}

func (s *Server) handleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	s.writeXML(w, s.deviceInfo)
}

func (s *Server) handleAppList(w http.ResponseWriter, r *http.Request) {
	s.writeXML(w, s.appList)
}

func (s *Server) handleActiveApp(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	app := s.activeApp
	s.mu.Unlock()

	body, err := renderTemplate(activeAppTemplate, templateData{App: app})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeXML(w, body)
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Write(placeholderIcon)
}

func (s *Server) handleNoop(w http.ResponseWriter, r *http.Request) {
	s.logCommand(r, "")
	w.WriteHeader(http.StatusOK)
}

// handleKey builds a handler that forwards the key path parameter to
// one of the CommandHandler key operations.
func (s *Server) handleKey(op func(usn, key string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		s.logCommand(r, key)
		op(s.config.USN, key)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("id")
	s.logCommand(r, appID)

	s.mu.Lock()
	s.activeApp = appByID(appID)
	s.mu.Unlock()

	s.handler.Launch(s.config.USN, appID)
	w.WriteHeader(http.StatusOK)
}

// appByID resolves a launch target against the channel list. Unknown
// ids still become the active app, mirroring a device that installs on
// demand.
func appByID(id string) App {
	for _, app := range defaultApps {
		if app.ID == id {
			return app
		}
	}
	return App{ID: id, Type: "appl", Version: "1.0.0", Name: "Channel " + id}
}

func (s *Server) writeXML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Write(body)
}

func (s *Server) logCommand(r *http.Request, arg string) {
	s.events.Log(eventlog.Event{
		Timestamp:  time.Now(),
		USN:        s.config.USN,
		Kind:       eventlog.KindCommandReceived,
		RemoteAddr: r.RemoteAddr,
		Command:    &eventlog.CommandEvent{Method: r.Method, Path: r.URL.Path, Arg: arg},
	})
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func (s *Server) warnLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}
