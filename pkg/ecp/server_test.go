package ecp_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rokusim/rokusim-go/pkg/ecp"
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

func testServerConfig(handler ecp.CommandHandler) ecp.ServerConfig {
	return ecp.ServerConfig{
		USN:        "ABC123",
		DeviceID:   "b7a00d2e-1111-2222-3333-444455556666",
		HostIP:     "127.0.0.1",
		ListenPort: 0,
		AllowedHosts: map[string]struct{}{
			"192.168.1.10":      {},
			"192.168.1.10:8060": {},
			"127.0.0.1":         {},
		},
		Handler: handler,
	}
}

func newTestServer(t *testing.T, handler ecp.CommandHandler) *ecp.Server {
	t.Helper()

	server, err := ecp.NewServer(testServerConfig(handler))
	require.NoError(t, err)
	return server
}

// doRequest runs a request through the full route tree with an allowed
// host and a private peer unless overridden.
func doRequest(t *testing.T, server *ecp.Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, "http://192.168.1.10:8060"+path, nil)
	req.RemoteAddr = "192.168.1.20:50000"
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerDeviceInfo(t *testing.T) {
	server := newTestServer(t, nil)

	rec := doRequest(t, server, http.MethodGet, "/query/device-info")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<device-id>ABC123</device-id>")
	assert.Contains(t, body, "<serial-number>ABC123</serial-number>")
	assert.Contains(t, body, "<udn>b7a00d2e-1111-2222-3333-444455556666</udn>")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/xml")
}

func TestServerDeviceDescription(t *testing.T) {
	server := newTestServer(t, nil)

	rec := doRequest(t, server, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<UDN>uuid:b7a00d2e-1111-2222-3333-444455556666</UDN>")
	assert.Contains(t, body, "<serialNumber>ABC123</serialNumber>")
	assert.Contains(t, body, "urn:roku-com:service:ecp:1")
}

func TestServerAppList(t *testing.T) {
	server := newTestServer(t, nil)

	rec := doRequest(t, server, http.MethodGet, "/query/apps")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<apps>")
	assert.Contains(t, body, `<app id="12" type="appl" version="4.1.218">Netflix</app>`)
}

func TestServerActiveAppFollowsLaunch(t *testing.T) {
	server := newTestServer(t, nil)

	rec := doRequest(t, server, http.MethodGet, "/query/active-app")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<app>Roku</app>")

	rec = doRequest(t, server, http.MethodPost, "/launch/12")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/query/active-app")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<app id="12"`)
	assert.Contains(t, rec.Body.String(), "Netflix")
}

func TestServerIcon(t *testing.T) {
	server := newTestServer(t, nil)

	rec := doRequest(t, server, http.MethodGet, "/query/icon/12")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic), "body is not a PNG")
}

func TestServerKeyCommands(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/keydown/Home", "keydown:ABC123:Home"},
		{"/keyup/Home", "keyup:ABC123:Home"},
		{"/keypress/Select", "keypress:ABC123:Select"},
		{"/launch/837", "launch:ABC123:837"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			handler := &recordingHandler{}
			server := newTestServer(t, handler)

			rec := doRequest(t, server, http.MethodPost, tc.path)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Body.String())
			assert.Equal(t, []string{tc.want}, handler.recorded())
		})
	}
}

func TestServerNoopCommands(t *testing.T) {
	handler := &recordingHandler{}
	server := newTestServer(t, handler)

	for _, path := range []string{"/input", "/search"} {
		rec := doRequest(t, server, http.MethodPost, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Body.String())
	}
	assert.Empty(t, handler.recorded(), "no-op routes must not reach the handler")
}

func TestServerDeniesUnknownHost(t *testing.T) {
	handler := &recordingHandler{}
	server := newTestServer(t, handler)

	req := httptest.NewRequest(http.MethodPost, "http://evil.example/keydown/Home", nil)
	req.RemoteAddr = "192.168.1.20:50000"
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not allowed")
	assert.Empty(t, handler.recorded(), "denied request must not reach the handler")
}

func TestServerDeniesPublicPeer(t *testing.T) {
	handler := &recordingHandler{}
	server := newTestServer(t, handler)

	req := httptest.NewRequest(http.MethodGet, "http://192.168.1.10:8060/query/device-info", nil)
	req.RemoteAddr = "8.8.8.8:1234"
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, handler.recorded())
}

func TestServerConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ecp.ServerConfig)
	}{
		{"missing USN", func(c *ecp.ServerConfig) { c.USN = "" }},
		{"missing device ID", func(c *ecp.ServerConfig) { c.DeviceID = "" }},
		{"bad host IP", func(c *ecp.ServerConfig) { c.HostIP = "nope" }},
		{"bad port", func(c *ecp.ServerConfig) { c.ListenPort = 90000 }},
		{"empty allow set", func(c *ecp.ServerConfig) { c.AllowedHosts = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := testServerConfig(nil)
			tc.mutate(&config)
			_, err := ecp.NewServer(config)
			assert.Error(t, err)
		})
	}
}

func TestServerLifecycle(t *testing.T) {
	server := newTestServer(t, nil)

	require.NoError(t, server.Start())
	defer server.Stop()

	assert.Equal(t, ecp.ErrAlreadyStarted, server.Start())

	addr := server.Addr()
	require.NotEmpty(t, addr)

	req, err := http.NewRequest(http.MethodGet, "http://"+addr+"/query/device-info", nil)
	require.NoError(t, err)
	// The allow set carries the bare host; the listener port is dynamic.
	req.Host = "127.0.0.1"

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "<device-id>ABC123</device-id>"))

	require.NoError(t, server.Stop())
	require.NoError(t, server.Stop(), "Stop must be idempotent")
}

func TestServerRestart(t *testing.T) {
	server := newTestServer(t, nil)

	require.NoError(t, server.Start())
	require.NoError(t, server.Stop())

	// A stopped server must come back up on a fresh listener and
	// actually serve, not sit on the shut-down one.
	require.NoError(t, server.Start())
	defer server.Stop()

	req, err := http.NewRequest(http.MethodGet, "http://"+server.Addr()+"/query/device-info", nil)
	require.NoError(t, err)
	req.Host = "127.0.0.1"

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<device-id>ABC123</device-id>")
}
