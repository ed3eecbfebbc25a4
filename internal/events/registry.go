package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// selection
	"selection.changed": {},

	// moves
	"move.executed": {},
	"move.undone":   {},

	// rejected input (wrong side, limit, busy, ...)
	"operation.rejected": {},

	// puzzle
	"puzzle.reset":     {},
	"puzzle.completed": {},

	// scripted replay
	"autoplay.started": {},
	"autoplay.stopped": {},

	// mqtt bridge
	"bridge.connected":    {},
	"bridge.disconnected": {},
	"bridge.command":      {},
	"bridge.error":        {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
