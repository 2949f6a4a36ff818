// Command rokusim-log views protocol event capture files written by
// rokusim-device with the -event-log flag.
//
// Usage:
//
//	rokusim-log [flags] <file.rlog>
//
// Flags:
//
//	-usn string     Only show events of this device serial
//	-kind string    Only show one event kind:
//	                search, reply, suppressed, announce, command, denied
//	-since string   Only show events at or after this RFC3339 time
//	-until string   Only show events before this RFC3339 time
//
// Examples:
//
//	# Show everything
//	rokusim-log device.rlog
//
//	# Show the denials of one device
//	rokusim-log -usn ABC123 -kind denied device.rlog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rokusim/rokusim-go/pkg/eventlog"
)

var (
	usn   = flag.String("usn", "", "Only show events of this device serial")
	kind  = flag.String("kind", "", "Only show one event kind")
	since = flag.String("since", "", "Only show events at or after this RFC3339 time")
	until = flag.String("until", "", "Only show events before this RFC3339 time")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rokusim-log [flags] <file.rlog>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	filter, err := buildFilter()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	reader, err := eventlog.NewFilteredReader(flag.Arg(0), filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open capture file: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read event %d: %v\n", count+1, err)
			os.Exit(1)
		}
		printEvent(event)
		count++
	}
	fmt.Printf("%d events\n", count)
}

func buildFilter() (eventlog.Filter, error) {
	filter := eventlog.Filter{USN: *usn}

	if *kind != "" {
		k, err := parseKind(*kind)
		if err != nil {
			return eventlog.Filter{}, err
		}
		filter.Kind = &k
	}
	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			return eventlog.Filter{}, fmt.Errorf("invalid -since time: %w", err)
		}
		filter.TimeStart = &t
	}
	if *until != "" {
		t, err := time.Parse(time.RFC3339, *until)
		if err != nil {
			return eventlog.Filter{}, fmt.Errorf("invalid -until time: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

func parseKind(name string) (eventlog.Kind, error) {
	switch strings.ToLower(name) {
	case "search":
		return eventlog.KindSearchReceived, nil
	case "reply":
		return eventlog.KindReplySent, nil
	case "suppressed":
		return eventlog.KindReplySuppressed, nil
	case "announce":
		return eventlog.KindAnnounceSent, nil
	case "command":
		return eventlog.KindCommandReceived, nil
	case "denied":
		return eventlog.KindRequestDenied, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", name)
	}
}

func printEvent(event eventlog.Event) {
	line := fmt.Sprintf("%s %-10s %s",
		event.Timestamp.Format("15:04:05.000"),
		event.Kind.String(),
		event.USN)

	if event.RemoteAddr != "" {
		line += " peer=" + event.RemoteAddr
	}

	switch {
	case event.Search != nil:
		line += fmt.Sprintf(" target=%s", event.Search.Target)
		if event.Search.MX != "" {
			line += fmt.Sprintf(" mx=%s", event.Search.MX)
		}
	case event.Reply != nil:
		line += fmt.Sprintf(" delay=%v", event.Reply.Delay)
	case event.Command != nil:
		line += fmt.Sprintf(" %s %s", event.Command.Method, event.Command.Path)
	case event.Denial != nil:
		if event.Denial.Host != "" {
			line += fmt.Sprintf(" host=%q", event.Denial.Host)
		}
		line += fmt.Sprintf(" reason=%q", event.Denial.Reason)
	}

	fmt.Println(line)
}
