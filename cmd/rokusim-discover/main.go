// Command rokusim-discover finds emulated (and real) media-player
// devices on the local network via SSDP.
//
// It issues an M-SEARCH for the roku:ecp service type and prints one
// line per responding device. With -monitor it additionally listens
// for unsolicited alive announcements.
//
// Usage:
//
//	rokusim-discover [flags]
//
// Flags:
//
//	-target string      Search target (default "roku:ecp")
//	-wait int           Seconds to wait for search responses (default 3)
//	-monitor duration   Additionally monitor alive announcements for this long
//
// Examples:
//
//	# One-shot search
//	rokusim-discover
//
//	# Search everything and watch announcements for a minute
//	rokusim-discover -target ssdp:all -monitor 1m
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/koron/go-ssdp"
)

var (
	target      = flag.String("target", "roku:ecp", "Search target")
	wait        = flag.Int("wait", 3, "Seconds to wait for search responses")
	monitorTime = flag.Duration("monitor", 0, "Additionally monitor alive announcements for this long")
)

func main() {
	flag.Parse()

	services, err := ssdp.Search(*target, *wait, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
		os.Exit(1)
	}

	if len(services) == 0 {
		fmt.Println("no devices found")
	}
	seen := make(map[string]bool)
	for _, svc := range services {
		if seen[svc.USN] {
			continue
		}
		seen[svc.USN] = true
		printDevice(svc.USN, svc.Location, svc.Server, svc.Type)
	}

	if *monitorTime > 0 {
		if err := monitorAlive(*monitorTime); err != nil {
			fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
			os.Exit(1)
		}
	}
}

// monitorAlive prints alive announcements until the duration elapses.
func monitorAlive(duration time.Duration) error {
	fmt.Printf("monitoring alive announcements for %v...\n", duration)

	monitor := &ssdp.Monitor{
		Alive: func(m *ssdp.AliveMessage) {
			printDevice(m.USN, m.Location, m.Server, m.Type)
		},
		Bye: func(m *ssdp.ByeMessage) {
			fmt.Printf("BYE  %s\n", m.USN)
		},
	}
	if err := monitor.Start(); err != nil {
		return err
	}
	defer monitor.Close()

	time.Sleep(duration)
	return nil
}

func printDevice(usn, location, server, st string) {
	fmt.Printf("%-40s %-30s st=%s", usn, location, st)
	if server != "" {
		fmt.Printf(" server=%s", server)
	}
	fmt.Println()
}
