package device

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rokusim/rokusim-go/pkg/ecp"
	"github.com/rokusim/rokusim-go/pkg/eventlog"
)

// CommandHandler receives the remote-control commands of a device.
type CommandHandler = ecp.CommandHandler

// NoopHandler ignores all commands.
type NoopHandler = ecp.NoopHandler

// Config describes one emulated device. It is fixed for the lifetime
// of the device; a changed configuration means a new device.
type Config struct {
	// USN is the device serial, used verbatim in info bodies and as
	// the discovery USN suffix.
	USN string `yaml:"usn"`

	// HostIP and ListenPort form the local bind address for the HTTP
	// listener and select the multicast interface. ListenPort 0 picks
	// an ephemeral port.
	HostIP     string `yaml:"host_ip"`
	ListenPort int    `yaml:"listen_port"`

	// AdvertiseIP and AdvertisePort are published in discovery
	// payloads. They default to HostIP and ListenPort.
	AdvertiseIP   string `yaml:"advertise_ip"`
	AdvertisePort int    `yaml:"advertise_port"`

	// BindMulticastWildcard binds the multicast socket to the wildcard
	// address instead of HostIP. Nil applies the platform default:
	// wildcard on Windows, direct bind elsewhere.
	BindMulticastWildcard *bool `yaml:"bind_multicast_wildcard"`

	// FriendlyName is the human-readable device name shown in info
	// bodies. Defaults to "Rokusim <USN>".
	FriendlyName string `yaml:"friendly_name"`

	// Handler receives remote-control commands. Defaults to NoopHandler.
	Handler CommandHandler `yaml:"-"`

	// Logger receives diagnostic output. Optional.
	Logger *slog.Logger `yaml:"-"`

	// Events receives protocol events for capture. Optional.
	Events eventlog.Logger `yaml:"-"`
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, nil
}

// applyDefaults fills the advertise address and platform-dependent
// fields from their sources.
func (c *Config) applyDefaults() {
	if c.AdvertiseIP == "" {
		c.AdvertiseIP = c.HostIP
	}
	if c.AdvertisePort == 0 {
		c.AdvertisePort = c.ListenPort
	}
	if c.BindMulticastWildcard == nil {
		wildcard := runtime.GOOS == "windows"
		c.BindMulticastWildcard = &wildcard
	}
	if c.FriendlyName == "" {
		c.FriendlyName = "Rokusim " + c.USN
	}
}

// Validate checks the configuration for errors. Defaults are applied
// by New before validation.
func (c Config) Validate() error {
	if c.USN == "" {
		return fmt.Errorf("usn is required")
	}
	if net.ParseIP(c.HostIP) == nil {
		return fmt.Errorf("invalid host IP %q", c.HostIP)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port %d", c.ListenPort)
	}
	if c.AdvertiseIP != "" && net.ParseIP(c.AdvertiseIP) == nil {
		return fmt.Errorf("invalid advertise IP %q", c.AdvertiseIP)
	}
	if c.AdvertisePort < 0 || c.AdvertisePort > 65535 {
		return fmt.Errorf("invalid advertise port %d", c.AdvertisePort)
	}
	return nil
}

// AllowedHosts computes the immutable Host-header allow set: the host
// and advertise addresses, each bare and with its port.
func (c Config) AllowedHosts() map[string]struct{} {
	return c.allowedHosts(c.ListenPort, c.AdvertisePort)
}

// allowedHosts builds the allow set with resolved ports. An ephemeral
// listen port is only known after bind, and the set must carry what
// clients actually connect to.
func (c Config) allowedHosts(listenPort, advertisePort int) map[string]struct{} {
	allowed := make(map[string]struct{}, 4)
	allowed[c.HostIP] = struct{}{}
	allowed[net.JoinHostPort(c.HostIP, strconv.Itoa(listenPort))] = struct{}{}
	allowed[c.AdvertiseIP] = struct{}{}
	allowed[net.JoinHostPort(c.AdvertiseIP, strconv.Itoa(advertisePort))] = struct{}{}
	return allowed
}
