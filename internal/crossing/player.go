package crossing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrPlaybackDone is returned by Step when no scripted steps remain.
	ErrPlaybackDone = errors.New("playback has no steps left")
	// ErrPlaybackCancelled is returned by Step once the player was cancelled
	// or a reset ended the replay.
	ErrPlaybackCancelled = errors.New("playback cancelled")
)

// Player replays a pre-authored sequence of groups one step at a time.
// Steps go through the same checks as manual moves, so a malformed script
// stops with ErrInvalidSelection instead of corrupting the state.
//
// A Player is driven from a single goroutine; only Cancel may be called
// concurrently.
type Player struct {
	session   *Session
	steps     [][]string
	next      int
	cancelled atomic.Bool
	closeOnce sync.Once
}

// Remaining returns the number of steps not yet applied.
func (p *Player) Remaining() int {
	return len(p.steps) - p.next
}

// Cancel asks the player to stop before its next step. A step already in
// flight still lands.
func (p *Player) Cancel() {
	p.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (p *Player) Cancelled() bool {
	return p.cancelled.Load()
}

// Step applies the next scripted group and waits for it to land.
func (p *Player) Step(ctx context.Context) (Move, error) {
	if p.Cancelled() {
		return Move{}, ErrPlaybackCancelled
	}
	if p.Remaining() == 0 {
		return Move{}, ErrPlaybackDone
	}
	ids := p.steps[p.next]
	p.next++
	return p.session.scriptedCross(ctx, p, ids)
}

// Run applies the remaining steps, pausing the step delay before each one.
// Cancellation is checked before and after every pause.
func (p *Player) Run(ctx context.Context) error {
	for p.Remaining() > 0 {
		if p.Cancelled() {
			return nil
		}
		if err := p.session.sleep(ctx, p.session.stepDelay); err != nil {
			p.Cancel()
			return err
		}
		if p.Cancelled() {
			return nil
		}
		if _, err := p.Step(ctx); err != nil {
			if errors.Is(err, ErrPlaybackCancelled) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close leaves autoplay and reports the verdict. It is safe to call twice.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		p.session.finishPlayback(p)
	})
}

// Play runs the replay to the end and closes the player.
func (p *Player) Play(ctx context.Context) error {
	defer p.Close()
	return p.Run(ctx)
}
