package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
	"github.com/AaronLay10/TorchBridge/internal/events"
)

const queueSize = 64

// Transport is the broker side of a Bridge. *Client implements it.
type Transport interface {
	Subscribe(topic string, handler paho.MessageHandler) error
	Publish(topic string, payload []byte, retained bool) error
}

// Session is the puzzle side of a Bridge. *crossing.Session implements it.
type Session interface {
	Dispatch(ctx context.Context, cmd crossing.Command) error
	AddRenderer(r crossing.Renderer)
}

// Topics of one room.
type Topics struct {
	Command  string
	State    string
	Advisory string
	Verdict  string
}

// RoomTopics returns the topics under torch/<room>/.
func RoomTopics(room string) Topics {
	prefix := "torch/" + room + "/"
	return Topics{
		Command:  prefix + "command",
		State:    prefix + "state",
		Advisory: prefix + "advisory",
		Verdict:  prefix + "verdict",
	}
}

type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// Bridge feeds broker commands into a session and publishes what the
// session renders. State is published retained so late subscribers see the
// current puzzle.
type Bridge struct {
	transport Transport
	session   Session
	topics    Topics

	commands chan crossing.Command
	out      chan outbound

	mu      sync.Mutex
	seen    bool
	lastSeq uint64
}

func NewBridge(t Transport, room string, s Session) *Bridge {
	return &Bridge{
		transport: t,
		session:   s,
		topics:    RoomTopics(room),
		commands:  make(chan crossing.Command, queueSize),
		out:       make(chan outbound, queueSize),
	}
}

// Topics returns the bridge's topics.
func (b *Bridge) Topics() Topics { return b.topics }

// Run subscribes to the command topic, attaches the bridge as a renderer and
// serves until ctx is done. Commands are applied one at a time, in order;
// publishing runs separately so a travelling move does not hold up state.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.transport.Subscribe(b.topics.Command, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topics.Command, err)
	}
	b.session.AddRenderer(b)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case cmd := <-b.commands:
				b.dispatch(ctx, cmd)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case o := <-b.out:
				b.publish(o)
			}
		}
	})
	return g.Wait()
}

func (b *Bridge) handleCommand(_ paho.Client, msg paho.Message) {
	var cmd crossing.Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil || cmd.Op == "" {
		events.Emit("warn", "bridge.error", "invalid command payload", map[string]interface{}{
			"topic":   msg.Topic(),
			"payload": string(msg.Payload()),
		})
		return
	}

	select {
	case b.commands <- cmd:
	default:
		events.Emit("warn", "bridge.error", "command queue full", map[string]interface{}{
			"op": string(cmd.Op),
		})
	}
}

func (b *Bridge) dispatch(ctx context.Context, cmd crossing.Command) {
	events.Emit("info", "bridge.command", "", map[string]interface{}{
		"op":       string(cmd.Op),
		"actor_id": cmd.ActorID,
	})

	// rejections are already logged and advised by the session
	err := b.session.Dispatch(ctx, cmd)
	var rej *crossing.Rejection
	if err != nil && !errors.As(err, &rej) {
		events.Emit("error", "bridge.error", "command failed", map[string]interface{}{
			"op":    string(cmd.Op),
			"error": err.Error(),
		})
	}
}

func (b *Bridge) publish(o outbound) {
	if err := b.transport.Publish(o.topic, o.payload, o.retained); err != nil {
		events.Emit("error", "bridge.error", "publish failed", map[string]interface{}{
			"topic": o.topic,
			"error": err.Error(),
		})
	}
}

func (b *Bridge) enqueue(topic string, v interface{}, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case b.out <- outbound{topic: topic, payload: payload, retained: retained}:
	default:
		events.Emit("warn", "bridge.error", "publish queue full", map[string]interface{}{"topic": topic})
	}
}

// Render publishes the snapshot unless a newer one was already queued.
func (b *Bridge) Render(s crossing.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seen && s.Seq <= b.lastSeq {
		return
	}
	b.seen = true
	b.lastSeq = s.Seq
	b.enqueue(b.topics.State, s, true)
}

func (b *Bridge) Advise(a crossing.Advisory) {
	b.enqueue(b.topics.Advisory, a, false)
}

func (b *Bridge) Complete(v crossing.Verdict) {
	b.enqueue(b.topics.Verdict, v, false)
}
