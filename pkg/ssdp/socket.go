package ssdp

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// openMulticastSocket binds a UDP socket on the SSDP port, joins the
// multicast group, and tunes the socket for LAN-scope announcements.
func openMulticastSocket(config ResponderConfig) (net.PacketConn, *net.UDPAddr, error) {
	group, err := net.ResolveUDPAddr("udp4", config.MulticastAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid multicast address %q: %w", config.MulticastAddress, err)
	}

	bindHost := config.BindIP
	if config.BindMulticastWildcard {
		bindHost = ""
	}
	bindAddr := net.JoinHostPort(bindHost, fmt.Sprintf("%d", group.Port))

	conn, err := net.ListenPacket("udp4", bindAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to bind multicast listener on %s: %w", bindAddr, err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(interfaceForIP(config.BindIP), &net.UDPAddr{IP: group.IP}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to join multicast group %s: %w", group.IP, err)
	}
	_ = p.SetMulticastTTL(2)
	_ = p.SetMulticastLoopback(true)

	return conn, group, nil
}

// interfaceForIP finds the network interface carrying the given IP.
// Returns nil when no interface matches, letting the kernel pick one.
func interfaceForIP(ip string) *net.Interface {
	target := net.ParseIP(ip)
	if target == nil {
		return nil
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	for i := range interfaces {
		addrs, err := interfaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if ok && ipNet.IP.Equal(target) {
				return &interfaces[i]
			}
		}
	}
	return nil
}
