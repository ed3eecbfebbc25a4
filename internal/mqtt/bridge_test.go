package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
	"github.com/AaronLay10/TorchBridge/internal/events"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// mockTransport records subscriptions and publishes.
type mockTransport struct {
	mu            sync.Mutex
	subscriptions map[string]paho.MessageHandler
	published     []published
}

func newMockTransport() *mockTransport {
	return &mockTransport{subscriptions: make(map[string]paho.MessageHandler)}
}

func (m *mockTransport) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	return nil
}

func (m *mockTransport) Publish(topic string, payload []byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (m *mockTransport) onTopic(topic string) []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []published
	for _, p := range m.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockTransport) SimulateMessage(topic string, payload []byte) bool {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if ok {
		handler(nil, &mockMessage{topic: topic, payload: payload})
	}
	return ok
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for: %s", msg)
}

func startBridge(t *testing.T) (*mockTransport, *crossing.Session, *Bridge) {
	t.Helper()
	sess, err := crossing.NewSession(crossing.Options{
		Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	transport := newMockTransport()
	bridge := NewBridge(transport, "lab", sess)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})

	waitFor(t, time.Second, func() bool {
		return len(transport.onTopic("torch/lab/state")) > 0
	}, "initial state publish")
	return transport, sess, bridge
}

func lastState(t *testing.T, m *mockTransport) crossing.Snapshot {
	t.Helper()
	states := m.onTopic("torch/lab/state")
	var snap crossing.Snapshot
	if err := json.Unmarshal(states[len(states)-1].payload, &snap); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	return snap
}

func TestRoomTopics(t *testing.T) {
	topics := RoomTopics("vault")
	if topics.Command != "torch/vault/command" || topics.State != "torch/vault/state" ||
		topics.Advisory != "torch/vault/advisory" || topics.Verdict != "torch/vault/verdict" {
		t.Errorf("unexpected topics %+v", topics)
	}
}

func TestBridgePublishesRetainedState(t *testing.T) {
	transport, _, _ := startBridge(t)

	states := transport.onTopic("torch/lab/state")
	if !states[0].retained {
		t.Error("state must be published retained")
	}
	if snap := lastState(t, transport); snap.TorchSide != crossing.SideStart {
		t.Errorf("unexpected initial state %+v", snap)
	}
}

func TestBridgeDispatchesCommandsInOrder(t *testing.T) {
	transport, sess, _ := startBridge(t)

	for _, payload := range []string{
		`{"op":"select","actor_id":"ava"}`,
		`{"op":"select","actor_id":"ben"}`,
		`{"op":"cross"}`,
	} {
		if !transport.SimulateMessage("torch/lab/command", []byte(payload)) {
			t.Fatal("command topic not subscribed")
		}
	}

	waitFor(t, time.Second, func() bool {
		return sess.Snapshot().Elapsed == 2
	}, "move to land")
	waitFor(t, time.Second, func() bool {
		return lastState(t, transport).Elapsed == 2
	}, "state publish after move")
}

func TestBridgePublishesAdvisory(t *testing.T) {
	transport, _, _ := startBridge(t)

	transport.SimulateMessage("torch/lab/command", []byte(`{"op":"select","actor_id":"eve"}`))

	waitFor(t, time.Second, func() bool {
		return len(transport.onTopic("torch/lab/advisory")) == 1
	}, "advisory publish")
	var adv crossing.Advisory
	if err := json.Unmarshal(transport.onTopic("torch/lab/advisory")[0].payload, &adv); err != nil {
		t.Fatalf("failed to decode advisory: %v", err)
	}
	if adv.Reason != crossing.ReasonUnknownActor {
		t.Errorf("expected unknown_actor, got %q", adv.Reason)
	}
}

func TestBridgePublishesVerdict(t *testing.T) {
	transport, _, _ := startBridge(t)

	transport.SimulateMessage("torch/lab/command", []byte(`{"op":"play"}`))

	waitFor(t, 2*time.Second, func() bool {
		return len(transport.onTopic("torch/lab/verdict")) == 1
	}, "verdict publish")
	var v crossing.Verdict
	if err := json.Unmarshal(transport.onTopic("torch/lab/verdict")[0].payload, &v); err != nil {
		t.Fatalf("failed to decode verdict: %v", err)
	}
	if v.Outcome != crossing.OutcomeSuccess || v.Elapsed != 17 {
		t.Errorf("unexpected verdict %+v", v)
	}
}

func TestBridgeRejectsMalformedCommand(t *testing.T) {
	events.Clear()
	transport, _, _ := startBridge(t)

	transport.SimulateMessage("torch/lab/command", []byte(`not json`))
	transport.SimulateMessage("torch/lab/command", []byte(`{"actor_id":"ava"}`))

	errs := 0
	for _, e := range events.Snapshot() {
		if e.Name == "bridge.error" {
			errs++
		}
	}
	if errs != 2 {
		t.Errorf("expected 2 bridge.error events, got %d", errs)
	}
}

func TestBridgeDropsStaleSnapshots(t *testing.T) {
	b := NewBridge(newMockTransport(), "lab", nil)

	b.Render(crossing.Snapshot{Seq: 4})
	b.Render(crossing.Snapshot{Seq: 3})
	b.Render(crossing.Snapshot{Seq: 5})

	if len(b.out) != 2 {
		t.Fatalf("expected 2 queued publishes, got %d", len(b.out))
	}
	var seqs []uint64
	for len(b.out) > 0 {
		var snap crossing.Snapshot
		if err := json.Unmarshal((<-b.out).payload, &snap); err != nil {
			t.Fatal(err)
		}
		seqs = append(seqs, snap.Seq)
	}
	if seqs[0] != 4 || seqs[1] != 5 {
		t.Errorf("expected seqs [4 5], got %v", seqs)
	}
}

func TestBrokerURL(t *testing.T) {
	t.Setenv(EnvBrokerURL, "")
	if got := BrokerURL(""); got != "tcp://localhost:1883" {
		t.Errorf("default = %q", got)
	}
	if got := BrokerURL("tcp://broker:1883"); got != "tcp://broker:1883" {
		t.Errorf("configured = %q", got)
	}
	t.Setenv(EnvBrokerURL, "ssl://env:8883")
	if got := BrokerURL("tcp://broker:1883"); got != "ssl://env:8883" {
		t.Errorf("env should win, got %q", got)
	}
}
