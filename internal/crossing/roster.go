package crossing

import (
	"fmt"
	"strings"
)

// Side is one bank of the crossing.
type Side string

const (
	SideStart       Side = "start"
	SideDestination Side = "destination"
)

// Opposite returns the other bank.
func (s Side) Opposite() Side {
	if s == SideStart {
		return SideDestination
	}
	return SideStart
}

// Actor is a person who has to cross. Cost is the crossing time in minutes.
type Actor struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Cost  int    `json:"cost" yaml:"cost"`
}

// Roster is the fixed, ordered set of actors for a puzzle.
// It is immutable once built.
type Roster struct {
	actors []Actor
	byID   map[string]Actor
}

// NewRoster validates and builds a roster.
func NewRoster(actors []Actor) (*Roster, error) {
	if len(actors) == 0 {
		return nil, fmt.Errorf("roster has no actors")
	}

	r := &Roster{
		actors: make([]Actor, 0, len(actors)),
		byID:   make(map[string]Actor, len(actors)),
	}
	for i, a := range actors {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			return nil, fmt.Errorf("actor %d: id is required", i)
		}
		if _, dup := r.byID[a.ID]; dup {
			return nil, fmt.Errorf("actor %s: duplicate id", a.ID)
		}
		if a.Cost <= 0 {
			return nil, fmt.Errorf("actor %s: cost must be positive, got %d", a.ID, a.Cost)
		}
		if a.Label == "" {
			a.Label = a.ID
		}
		r.actors = append(r.actors, a)
		r.byID[a.ID] = a
	}
	return r, nil
}

// DefaultRoster returns the reference four-person roster.
func DefaultRoster() *Roster {
	r, _ := NewRoster([]Actor{
		{ID: "ava", Label: "Ava", Cost: 1},
		{ID: "ben", Label: "Ben", Cost: 2},
		{ID: "cara", Label: "Cara", Cost: 5},
		{ID: "dax", Label: "Dax", Cost: 10},
	})
	return r
}

// DefaultSolution is the pre-authored 17 minute solution for DefaultRoster.
func DefaultSolution() [][]string {
	return [][]string{
		{"ava", "ben"},
		{"ava"},
		{"cara", "dax"},
		{"ben"},
		{"ava", "ben"},
	}
}

// DefaultGoal is the optimal total time for DefaultRoster.
const DefaultGoal = 17

// Actors returns the actors in configuration order.
func (r *Roster) Actors() []Actor {
	return append([]Actor(nil), r.actors...)
}

// Len returns the number of actors.
func (r *Roster) Len() int {
	return len(r.actors)
}

// Lookup returns the actor with the given id.
func (r *Roster) Lookup(id string) (Actor, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Label returns the display label for id, or id itself if unknown.
func (r *Roster) Label(id string) string {
	if a, ok := r.byID[id]; ok {
		return a.Label
	}
	return id
}

// Duration returns the time a group needs to cross: the slowest member's cost.
// Unknown ids contribute nothing.
func (r *Roster) Duration(ids []string) int {
	max := 0
	for _, id := range ids {
		if a, ok := r.byID[id]; ok && a.Cost > max {
			max = a.Cost
		}
	}
	return max
}
