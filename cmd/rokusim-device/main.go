// Command rokusim-device runs one emulated media-player device.
//
// The device answers SSDP searches for roku:ecp on the local network
// and serves the ECP-style HTTP command API on the configured address.
//
// Usage:
//
//	rokusim-device [flags]
//
// Flags:
//
//	-usn string            Device serial (required)
//	-host-ip string        Local bind address (default "127.0.0.1")
//	-port int              HTTP listen port (default 8060)
//	-advertise-ip string   Address published in discovery payloads (default host-ip)
//	-advertise-port int    Port published in discovery payloads (default port)
//	-bind-wildcard string  Multicast bind mode: auto, on, off (default "auto")
//	-config string         YAML configuration file path
//	-event-log string      Write protocol events to this capture file
//	-log-level string      Log level: debug, info, warn, error (default "info")
//	-interactive           Enable the interactive console
//
// Examples:
//
//	# Emulate a device on the default port
//	rokusim-device -usn ABC123 -host-ip 192.168.1.10
//
//	# Run from a config file with event capture
//	rokusim-device -config device.yaml -event-log device.rlog
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rokusim/rokusim-go/pkg/device"
	"github.com/rokusim/rokusim-go/pkg/eventlog"
)

var (
	usn           = flag.String("usn", "", "Device serial (required)")
	hostIP        = flag.String("host-ip", "127.0.0.1", "Local bind address")
	port          = flag.Int("port", 8060, "HTTP listen port")
	advertiseIP   = flag.String("advertise-ip", "", "Address published in discovery payloads")
	advertisePort = flag.Int("advertise-port", 0, "Port published in discovery payloads")
	bindWildcard  = flag.String("bind-wildcard", "auto", "Multicast bind mode: auto, on, off")
	configFile    = flag.String("config", "", "YAML configuration file path")
	eventLogPath  = flag.String("event-log", "", "Write protocol events to this capture file")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	interactive   = flag.Bool("interactive", false, "Enable the interactive console")
)

func main() {
	flag.Parse()

	logger, err := setupLogging(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	config, err := buildConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	config.Logger = logger

	events, closeEvents, err := setupEvents(logger)
	if err != nil {
		logger.Error("failed to open event log", "error", err)
		os.Exit(1)
	}
	defer closeEvents()
	config.Events = events

	d, err := device.New(config)
	if err != nil {
		logger.Error("failed to create device", "error", err)
		os.Exit(1)
	}

	if err := d.Start(); err != nil {
		logger.Error("failed to start device", "error", err)
		os.Exit(1)
	}

	logger.Info("device running",
		"usn", d.USN(),
		"device_id", d.ID(),
		"addr", d.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if *interactive {
		console := newConsole(d)
		go console.run(sigCh)
	}

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	if err := d.Stop(); err != nil {
		logger.Error("error stopping device", "error", err)
		os.Exit(1)
	}
}

// buildConfig merges the optional YAML file with explicit flags; flags
// set on the command line win.
func buildConfig() (device.Config, error) {
	var config device.Config
	if *configFile != "" {
		loaded, err := device.LoadConfig(*configFile)
		if err != nil {
			return device.Config{}, err
		}
		config = loaded
	} else {
		config = device.Config{
			USN:           *usn,
			HostIP:        *hostIP,
			ListenPort:    *port,
			AdvertiseIP:   *advertiseIP,
			AdvertisePort: *advertisePort,
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "usn":
			config.USN = *usn
		case "host-ip":
			config.HostIP = *hostIP
		case "port":
			config.ListenPort = *port
		case "advertise-ip":
			config.AdvertiseIP = *advertiseIP
		case "advertise-port":
			config.AdvertisePort = *advertisePort
		}
	})

	switch *bindWildcard {
	case "auto":
		// Leave nil; the platform default applies.
	case "on":
		v := true
		config.BindMulticastWildcard = &v
	case "off":
		v := false
		config.BindMulticastWildcard = &v
	default:
		return device.Config{}, fmt.Errorf("unknown bind-wildcard mode %q", *bindWildcard)
	}

	if config.USN == "" {
		return device.Config{}, fmt.Errorf("usn is required")
	}
	return config, nil
}

func setupLogging(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}

// setupEvents wires the capture sinks: a CBOR file when requested, and
// the diagnostic logger at debug level.
func setupEvents(logger *slog.Logger) (eventlog.Logger, func(), error) {
	sinks := []eventlog.Logger{eventlog.NewSlogAdapter(logger)}
	closeEvents := func() {}

	if *eventLogPath != "" {
		fileLogger, err := eventlog.NewFileLogger(*eventLogPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fileLogger)
		closeEvents = func() { fileLogger.Close() }
	}

	return eventlog.NewMultiLogger(sinks...), closeEvents, nil
}
