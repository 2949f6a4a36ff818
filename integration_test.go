package rokusim_test

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koron/go-ssdp"

	"github.com/rokusim/rokusim-go/pkg/device"
)

// recordingHandler captures forwarded commands for assertions.
type recordingHandler struct {
	mu    sync.Mutex
	calls []string
}

func (h *recordingHandler) record(op, usn, arg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, op+":"+usn+":"+arg)
}

func (h *recordingHandler) OnKeyDown(usn, key string)  { h.record("keydown", usn, key) }
func (h *recordingHandler) OnKeyUp(usn, key string)    { h.record("keyup", usn, key) }
func (h *recordingHandler) OnKeyPress(usn, key string) { h.record("keypress", usn, key) }
func (h *recordingHandler) Launch(usn, appID string)   { h.record("launch", usn, appID) }

func (h *recordingHandler) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// startDevice brings a full device up on the loopback interface,
// skipping when the environment has no multicast support.
func startDevice(t *testing.T, handler device.CommandHandler) *device.Device {
	t.Helper()

	d, err := device.New(device.Config{
		USN:        "ABC123",
		HostIP:     "127.0.0.1",
		ListenPort: 0,
		Handler:    handler,
	})
	if err != nil {
		t.Fatalf("failed to create device: %v", err)
	}

	if err := d.Start(); err != nil {
		t.Skipf("skipping, device start failed (no multicast support?): %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d
}

// get issues a plain GET the way a stock client would; the default
// Host header (address with the bound port) must pass the guard.
func get(t *testing.T, addr, path string) (int, string) {
	t.Helper()

	resp, err := http.Get("http://" + addr + path)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func post(t *testing.T, addr, path string) int {
	t.Helper()

	resp, err := http.Post("http://"+addr+path, "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

// TestE2E_CommandSurface drives the full HTTP surface of a running device.
func TestE2E_CommandSurface(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	handler := &recordingHandler{}
	d := startDevice(t, handler)
	addr := d.Addr()

	status, body := get(t, addr, "/query/device-info")
	if status != http.StatusOK {
		t.Fatalf("device-info status: got %d, want 200", status)
	}
	if !strings.Contains(body, "<device-id>ABC123</device-id>") {
		t.Errorf("device-info missing serial:\n%s", body)
	}

	status, body = get(t, addr, "/")
	if status != http.StatusOK || !strings.Contains(body, "<UDN>uuid:"+d.ID()+"</UDN>") {
		t.Errorf("device description: status %d, body:\n%s", status, body)
	}

	if status := post(t, addr, "/keydown/Home"); status != http.StatusOK {
		t.Errorf("keydown status: got %d, want 200", status)
	}
	if status := post(t, addr, "/launch/12"); status != http.StatusOK {
		t.Errorf("launch status: got %d, want 200", status)
	}

	want := []string{"keydown:ABC123:Home", "launch:ABC123:12"}
	got := handler.recorded()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("handler calls: got %v, want %v", got, want)
	}

	status, body = get(t, addr, "/query/active-app")
	if status != http.StatusOK || !strings.Contains(body, `<app id="12"`) {
		t.Errorf("active-app after launch: status %d, body:\n%s", status, body)
	}
}

// TestE2E_GuardDeniesForeignHost verifies the DNS-rebinding defense on
// a real listener.
func TestE2E_GuardDeniesForeignHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	handler := &recordingHandler{}
	d := startDevice(t, handler)

	req, err := http.NewRequest(http.MethodPost, "http://"+d.Addr()+"/keydown/Home", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Host = "evil.example"

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", resp.StatusCode)
	}
	if calls := handler.recorded(); len(calls) != 0 {
		t.Errorf("denied command reached the handler: %v", calls)
	}
}

// TestE2E_SSDPSearch discovers the running device with a third-party
// SSDP client over the real multicast path.
func TestE2E_SSDPSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	d := startDevice(t, nil)

	services, err := ssdp.Search("roku:ecp", 3, "")
	if err != nil {
		t.Skipf("skipping, SSDP search failed (no multicast support?): %v", err)
	}

	wantUSN := "uuid:roku:ecp:" + d.USN()
	for _, svc := range services {
		if svc.USN == wantUSN {
			if !strings.Contains(svc.Location, "http://") {
				t.Errorf("Location missing scheme: %q", svc.Location)
			}
			if svc.Type != "roku:ecp" {
				t.Errorf("ST: got %q, want roku:ecp", svc.Type)
			}
			return
		}
	}
	t.Skipf("device not seen in search results (multicast loopback unavailable?); got %d services", len(services))
}

// TestE2E_StopSilencesDevice verifies the device goes fully quiet
// after Stop.
func TestE2E_StopSilencesDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	d := startDevice(t, nil)
	addr := d.Addr()

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// The command surface must be down.
	client := &http.Client{Timeout: time.Second}
	if resp, err := client.Get("http://" + addr + "/query/device-info"); err == nil {
		resp.Body.Close()
		t.Error("command surface still reachable after Stop")
	}

	// And a fresh search must not turn the device up.
	services, err := ssdp.Search("roku:ecp", 2, "")
	if err != nil {
		return // No multicast support; the HTTP check above is enough.
	}
	wantUSN := "uuid:roku:ecp:" + d.USN()
	for _, svc := range services {
		if svc.USN == wantUSN {
			t.Errorf("stopped device answered a search: %+v", svc)
		}
	}
}
