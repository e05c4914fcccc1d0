package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/juggletracker/pkg/calibration"
	"github.com/teslashibe/juggletracker/pkg/camera"
	"github.com/teslashibe/juggletracker/pkg/tracker"
)

// fakeShell records observers so tests can drive state and frames by hand.
type fakeShell struct {
	mu      sync.Mutex
	status  tracker.Status
	onState []func(tracker.State)
	onFrame []func(camera.Frame)
}

func (f *fakeShell) Status() tracker.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeShell) OnStateChange(fn func(tracker.State)) {
	f.onState = append(f.onState, fn)
}

func (f *fakeShell) OnFrame(fn func(camera.Frame)) {
	f.onFrame = append(f.onFrame, fn)
}

func (f *fakeShell) setState(s tracker.State) {
	f.mu.Lock()
	f.status.State = s
	f.mu.Unlock()
	for _, fn := range f.onState {
		fn(s)
	}
}

func (f *fakeShell) frame(fr camera.Frame) {
	for _, fn := range f.onFrame {
		fn(fr)
	}
}

func newTestServer(t *testing.T, store *calibration.Store) (*Server, *fakeShell) {
	t.Helper()
	shell := &fakeShell{status: tracker.Status{
		RunID:  "run-1",
		State:  tracker.StateRunning,
		Width:  1280,
		Height: 720,
		Frames: 42,
	}}
	srv := NewServer(Config{FrameEvery: 1}, shell, store, camera.DefaultConfig(), nil)
	return srv, shell
}

func TestNewServerSubscribes(t *testing.T) {
	_, shell := newTestServer(t, nil)
	assert.Len(t, shell.onState, 1)
	assert.Len(t, shell.onFrame, 1)
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status tracker.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "run-1", status.RunID)
	assert.Equal(t, tracker.StateRunning, status.State)
	assert.Equal(t, int64(42), status.Frames)
}

func TestHandleCalibration(t *testing.T) {
	dir := t.TempDir()
	store := calibration.NewStore(dir)
	srv, _ := newTestServer(t, store)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/calibration", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, os.WriteFile(filepath.Join(dir, calibration.FileName), []byte(`{"a": 1}`), 0644))
	present, err := store.Load()
	require.NoError(t, err)
	require.True(t, present)

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/calibration", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Path string         `json:"path"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, store.Path(), body.Path)
	assert.Equal(t, map[string]any{"a": float64(1)}, body.Data)
}

func TestHandleCalibrationWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/calibration", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleCamera(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/camera", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body struct {
		Config  camera.Config `json:"config"`
		Presets []string      `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, camera.DefaultConfig(), body.Config)
	assert.Equal(t, camera.PresetNames(), body.Presets)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/ws/status", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestFramesSkippedWithoutViewers(t *testing.T) {
	srv, shell := newTestServer(t, nil)

	shell.frame(&camera.MockFrame{W: 16, H: 16})
	assert.Equal(t, int64(0), srv.FramesSent())
}

func serve(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx, ln)
	return ln.Addr().String()
}

func TestStatusWebSocket(t *testing.T) {
	srv, shell := newTestServer(t, nil)
	addr := serve(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/status", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// First message is the current snapshot.
	var status tracker.Status
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, tracker.StateRunning, status.State)

	// Wait for registration before broadcasting.
	require.Eventually(t, func() bool { return srv.statusHub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	shell.setState(tracker.StateReleased)
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, tracker.StateReleased, status.State)
}

func TestCameraWebSocket(t *testing.T) {
	srv, shell := newTestServer(t, nil)
	addr := serve(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/camera", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	require.Eventually(t, func() bool { return srv.cameraHub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	shell.frame(&camera.MockFrame{W: 32, H: 24})

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	require.GreaterOrEqual(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])
	assert.Equal(t, int64(1), srv.FramesSent())
}

func TestStatusWebSocketReconnect(t *testing.T) {
	srv, shell := newTestServer(t, nil)
	addr := serve(t, srv)

	// Each disconnect hands the server-side conn back to the upgrade pool,
	// so no writer may outlive its handler.
	for i := 0; i < 100; i++ {
		conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/status", nil)
		require.NoError(t, err)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var status tracker.Status
		require.NoError(t, conn.ReadJSON(&status), "connection %d", i)
		assert.Equal(t, "run-1", status.RunID)

		shell.setState(tracker.StateRunning)
		conn.Close()
	}

	require.Eventually(t, func() bool { return srv.statusHub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// A connection taken from the recycled pool still works end to end.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/status", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var status tracker.Status
	require.NoError(t, conn.ReadJSON(&status))
	require.Eventually(t, func() bool { return srv.statusHub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	shell.setState(tracker.StateReleased)
	// Broadcasts queued by earlier iterations may arrive first.
	for status.State != tracker.StateReleased {
		require.NoError(t, conn.ReadJSON(&status))
	}
}
