package eventlog

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("capture file was not created")
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	events := []Event{
		{
			Timestamp: time.Now().UTC(),
			USN:       "ABC123",
			Kind:      KindAnnounceSent,
		},
		{
			Timestamp:  time.Now().UTC(),
			USN:        "ABC123",
			Kind:       KindCommandReceived,
			RemoteAddr: "192.168.1.20:50000",
			Command:    &CommandEvent{Method: "POST", Path: "/keydown/Home", Arg: "Home"},
		},
		{
			Timestamp:  time.Now().UTC(),
			USN:        "ABC123",
			Kind:       KindRequestDenied,
			RemoteAddr: "8.8.8.8:1234",
			Denial:     &DenialEvent{Reason: "source address not in a private range"},
		},
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var got []Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, e)
	}

	if len(got) != len(events) {
		t.Fatalf("read %d events, want %d", len(got), len(events))
	}
	if got[1].Command == nil || got[1].Command.Arg != "Home" {
		t.Errorf("command event: got %+v", got[1].Command)
	}
	if got[2].Denial == nil || got[2].Denial.Reason == "" {
		t.Errorf("denial event: got %+v", got[2].Denial)
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Logging after close is a silent no-op.
	logger.Log(Event{USN: "ABC123", Kind: KindAnnounceSent})
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(Event{
					Timestamp: time.Now(),
					USN:       "ABC123",
					Kind:      KindSearchReceived,
					Search:    &SearchEvent{Target: "ssdp:all"},
				})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next failed after %d events: %v", count, err)
		}
		count++
	}
	if count != writers*perWriter {
		t.Errorf("read %d events, want %d", count, writers*perWriter)
	}
}
