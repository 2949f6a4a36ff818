package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rokusim/rokusim-go/pkg/device"
	"github.com/rokusim/rokusim-go/pkg/ecp"
)

// console is the interactive command loop of rokusim-device.
type console struct {
	device *device.Device
}

func newConsole(d *device.Device) *console {
	return &console{device: d}
}

// run reads console commands until EOF or quit, then signals shutdown.
func (c *console) run(sigCh chan<- os.Signal) {
	reader := bufio.NewReader(os.Stdin)

	c.printHelp()

	for {
		fmt.Print("\ndevice> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			sigCh <- syscall.SIGTERM
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "help", "?":
			c.printHelp()

		case "status", "s":
			c.cmdStatus()

		case "id":
			fmt.Printf("USN:       %s\n", c.device.USN())
			fmt.Printf("Device ID: %s\n", c.device.ID())

		case "apps", "a":
			c.cmdApps()

		case "quit", "q", "exit":
			sigCh <- syscall.SIGTERM
			return

		default:
			fmt.Printf("Unknown command: %s (try 'help')\n", input)
		}
	}
}

func (c *console) printHelp() {
	fmt.Println(`Commands:
  status, s   Show device state and address
  id          Show USN and derived device ID
  apps, a     Show the emulated channel list
  help, ?     Show this help
  quit, q     Stop the device and exit`)
}

func (c *console) cmdStatus() {
	state := "idle"
	switch c.device.State() {
	case device.StateRunning:
		state = "running"
	case device.StateStopped:
		state = "stopped"
	}
	fmt.Printf("State: %s\n", state)
	if addr := c.device.Addr(); addr != "" {
		fmt.Printf("Addr:  http://%s/\n", addr)
	}
}

func (c *console) cmdApps() {
	for _, app := range ecp.DefaultApps() {
		fmt.Printf("  %-6s %-5s %-10s %s\n", app.ID, app.Type, app.Version, app.Name)
	}
}
