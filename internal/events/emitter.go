package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/TorchBridge/internal/storage/postgres"
)

var buffer = NewRingBuffer(256)

var totalEmitted atomic.Uint64

var (
	journal       *postgres.Client
	journalMu     sync.RWMutex
	journalFailed bool
)

// SetPostgresClient sets the journal that every emitted event is appended to.
// Pass nil to stop journaling.
func SetPostgresClient(client *postgres.Client) {
	journalMu.Lock()
	journal = client
	journalFailed = false
	journalMu.Unlock()
}

// GetPostgresClient returns the current journal client (for API queries).
func GetPostgresClient() *postgres.Client {
	journalMu.RLock()
	defer journalMu.RUnlock()
	return journal
}

// Event is one structured log line. It is also the frame streamed to
// websocket clients.
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// SessionID returns the session_id field, if present.
func (e Event) SessionID() string {
	sid, _ := e.Fields["session_id"].(string)
	return sid
}

// Emit records an event in the ring buffer, broadcasts it to subscribers and
// appends it to the journal when one is configured. Unknown names are refused.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	totalEmitted.Add(1)
	broadcast(e)
	appendToJournal(ts, e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return b, nil
}

// appendToJournal persists e. The first failure is reported once as a
// system.error straight into the ring buffer; going through Emit would recurse
// while the database stays down.
func appendToJournal(ts time.Time, e Event) {
	journalMu.RLock()
	client := journal
	failed := journalFailed
	journalMu.RUnlock()

	if client == nil {
		return
	}
	err := client.Append(ts, e.Level, e.Name, e.Message, e.Fields, e.SessionID())
	if err == nil || failed {
		return
	}

	journalMu.Lock()
	if journalFailed {
		journalMu.Unlock()
		return
	}
	journalFailed = true
	journalMu.Unlock()

	buffer.Add(Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     "error",
		Name:      "system.error",
		Message:   "postgres append failed",
		Fields:    map[string]interface{}{"error": err.Error()},
	})
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns how many events were emitted since startup.
func TotalCount() uint64 {
	return totalEmitted.Load()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
