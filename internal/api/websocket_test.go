package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
	"github.com/AaronLay10/TorchBridge/internal/events"
)

// clearTLSEnv prevents TLS initialization from trying to load nonexistent certs.
func clearTLSEnv(t *testing.T) {
	t.Setenv(EnvTLSCert, "")
	t.Setenv(EnvTLSKey, "")
	SetTLSConfigForTest(nil)
}

// waitFor polls a condition until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("timeout waiting for: %s", msg)
}

func dialWS(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("failed to connect: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		t.Fatalf("failed to unmarshal frame: %v", err)
	}
	return f
}

// readUntil skips frames until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Frame) bool) Frame {
	t.Helper()
	for i := 0; i < 50; i++ {
		if f := readFrame(t, conn); match(f) {
			return f
		}
	}
	t.Fatal("expected frame never arrived")
	return Frame{}
}

func TestWebSocketSendsSnapshotThenRecentEvents(t *testing.T) {
	events.Clear()
	srv, sess := newTestServer(t, nil)
	for _, id := range []string{"ava", "ben", "ava"} {
		if err := sess.Toggle(id); err != nil {
			t.Fatal(err)
		}
	}

	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	f := readFrame(t, conn)
	if f.Type != FrameSnapshot || f.Snapshot == nil {
		t.Fatalf("expected snapshot first, got %+v", f)
	}
	if len(f.Snapshot.Selection) != 1 || f.Snapshot.Selection[0] != "ben" {
		t.Errorf("unexpected selection %v", f.Snapshot.Selection)
	}

	for i := 0; i < 3; i++ {
		f := readFrame(t, conn)
		if f.Type != FrameEvent || f.Event == nil || f.Event.Name != "selection.changed" {
			t.Errorf("frame %d: expected selection.changed event, got %+v", i, f)
		}
	}
}

func TestWebSocketStreamsRendererFrames(t *testing.T) {
	events.Clear()
	srv, sess := newTestServer(t, nil)
	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	readUntil(t, conn, func(f Frame) bool { return f.Type == FrameSnapshot })

	// the hub only fans out to registered clients
	waitFor(t, time.Second, func() bool { return srv.Hub().ClientCount() == 1 }, "client registration")

	if err := sess.Toggle("cara"); err != nil {
		t.Fatal(err)
	}
	f := readUntil(t, conn, func(f Frame) bool { return f.Type == FrameSnapshot })
	if len(f.Snapshot.Selection) != 1 || f.Snapshot.Selection[0] != "cara" {
		t.Errorf("unexpected selection %v", f.Snapshot.Selection)
	}

	_ = sess.Toggle("eve")
	f = readUntil(t, conn, func(f Frame) bool { return f.Type == FrameAdvisory })
	if f.Advisory.Reason != crossing.ReasonUnknownActor {
		t.Errorf("expected unknown_actor advisory, got %q", f.Advisory.Reason)
	}
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	readFrame(t, conn)
	waitFor(t, time.Second, func() bool { return srv.Hub().ClientCount() == 1 }, "client registration")

	conn.Close()
	waitFor(t, 5*time.Second, func() bool {
		return srv.Hub().ClientCount() == 0
	}, "hub client count to return to 0 after close")
}

func TestHubDropsStaleSnapshots(t *testing.T) {
	h := NewHub()
	ch := h.register()
	defer h.unregister(ch)

	h.Render(crossing.Snapshot{Seq: 2})
	h.Render(crossing.Snapshot{Seq: 1})
	h.Render(crossing.Snapshot{Seq: 2})
	h.Render(crossing.Snapshot{Seq: 3})

	var seqs []uint64
	for len(ch) > 0 {
		f := <-ch
		seqs = append(seqs, f.Snapshot.Seq)
	}
	if len(seqs) != 2 || seqs[0] != 2 || seqs[1] != 3 {
		t.Errorf("expected seqs [2 3], got %v", seqs)
	}
}

func TestHubDoesNotBlockOnSlowClient(t *testing.T) {
	h := NewHub()
	ch := h.register()
	defer h.unregister(ch)

	for i := 1; i <= clientBuffer+10; i++ {
		h.Render(crossing.Snapshot{Seq: uint64(i)})
	}
	if len(ch) != clientBuffer {
		t.Errorf("expected %d queued frames, got %d", clientBuffer, len(ch))
	}
}
