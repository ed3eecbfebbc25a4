package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
	"github.com/AaronLay10/TorchBridge/internal/events"
)

const (
	// Number of recent events to send on connection
	recentEventsCount = 50

	// Frames queued per client before new ones are dropped
	clientBuffer = 32

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Frame types sent to websocket clients.
const (
	FrameSnapshot = "snapshot"
	FrameAdvisory = "advisory"
	FrameVerdict  = "verdict"
	FrameEvent    = "event"
)

// Frame is one websocket message. Exactly one payload field is set.
type Frame struct {
	Type     string             `json:"type"`
	Snapshot *crossing.Snapshot `json:"snapshot,omitempty"`
	Advisory *crossing.Advisory `json:"advisory,omitempty"`
	Verdict  *crossing.Verdict  `json:"verdict,omitempty"`
	Event    *events.Event      `json:"event,omitempty"`
}

// Hub is a crossing.Renderer that fans frames out to websocket clients.
// Snapshots older than the last one seen are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Frame]struct{}
	seen    bool
	lastSeq uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Frame]struct{})}
}

func (h *Hub) Render(s crossing.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen && s.Seq <= h.lastSeq {
		return
	}
	h.seen = true
	h.lastSeq = s.Seq
	h.publishLocked(Frame{Type: FrameSnapshot, Snapshot: &s})
}

func (h *Hub) Advise(a crossing.Advisory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(Frame{Type: FrameAdvisory, Advisory: &a})
}

func (h *Hub) Complete(v crossing.Verdict) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(Frame{Type: FrameVerdict, Verdict: &v})
}

// publishLocked never blocks; a client that is behind misses the frame.
func (h *Hub) publishLocked(f Frame) {
	for ch := range h.clients {
		select {
		case ch <- f:
		default:
		}
	}
}

func (h *Hub) register() chan Frame {
	ch := make(chan Frame, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	wsClients.Inc()
	return ch
}

func (h *Hub) unregister(ch chan Frame) {
	h.mu.Lock()
	_, ok := h.clients[ch]
	delete(h.clients, ch)
	h.mu.Unlock()
	if ok {
		wsClients.Dec()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsHandler sends the current snapshot and recent events, then streams
// renderer frames and new events until the client goes away.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	frames := s.hub.register()
	defer s.hub.unregister(frames)
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	write := func(f Frame) bool {
		data, err := json.Marshal(f)
		if err != nil {
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws write failed: %v", err)
			return false
		}
		return true
	}

	snap := s.ctrl.Snapshot()
	if !write(Frame{Type: FrameSnapshot, Snapshot: &snap}) {
		return
	}
	for _, e := range events.RecentEvents(recentEventsCount) {
		if !write(Frame{Type: FrameEvent, Event: &e}) {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case f := <-frames:
			if !write(f) {
				return
			}
		case e, ok := <-sub:
			if !ok {
				return
			}
			if !write(Frame{Type: FrameEvent, Event: &e}) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
