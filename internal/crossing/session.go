package crossing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AaronLay10/TorchBridge/internal/events"
)

// Default timings of the reference puzzle.
const (
	DefaultTravelDelay      = 820 * time.Millisecond
	DefaultStepDelay        = 260 * time.Millisecond
	DefaultAdvisoryDuration = 1800 * time.Millisecond
)

// Options configures a Session. Zero delays mean no waiting.
type Options struct {
	Roster           *Roster
	Goal             int
	Solution         [][]string
	TravelDelay      time.Duration
	StepDelay        time.Duration
	AdvisoryDuration time.Duration
	Sleep            SleepFunc
	Renderers        []Renderer
	SessionID        string
}

// Session drives one puzzle: it gates input on the current phase, holds the
// travel delay after each move, runs scripted replays and notifies renderers.
type Session struct {
	mu sync.Mutex

	id               string
	roster           *Roster
	goal             int
	solution         [][]string
	travelDelay      time.Duration
	stepDelay        time.Duration
	advisoryDuration time.Duration
	sleep            SleepFunc
	renderers        []Renderer

	state    *State
	phase    Phase
	status   string
	verdict  *Verdict
	seq      uint64
	player   *Player
	playDone chan struct{}
	played   int
	// inStep is set while a scripted move travels; resetPending asks the
	// landing step to end the replay and reset.
	inStep       bool
	resetPending bool
}

// NewSession creates a session in the initial state. A nil Roster selects
// the reference puzzle together with its goal and solution.
func NewSession(opts Options) (*Session, error) {
	if opts.Roster == nil {
		opts.Roster = DefaultRoster()
		if opts.Goal == 0 {
			opts.Goal = DefaultGoal
		}
		if opts.Solution == nil {
			opts.Solution = DefaultSolution()
		}
	}
	if opts.Goal <= 0 {
		return nil, fmt.Errorf("goal time must be positive, got %d", opts.Goal)
	}
	for i, step := range opts.Solution {
		if len(step) < 1 || len(step) > SideLimit(SideStart) {
			return nil, fmt.Errorf("solution step %d: expected 1 or 2 actors, got %d", i+1, len(step))
		}
		for _, id := range step {
			if _, ok := opts.Roster.Lookup(id); !ok {
				return nil, fmt.Errorf("solution step %d: unknown actor %q", i+1, id)
			}
		}
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	s := &Session{
		id:               opts.SessionID,
		roster:           opts.Roster,
		goal:             opts.Goal,
		solution:         cloneSteps(opts.Solution),
		travelDelay:      opts.TravelDelay,
		stepDelay:        opts.StepDelay,
		advisoryDuration: opts.AdvisoryDuration,
		sleep:            opts.Sleep,
		renderers:        append([]Renderer(nil), opts.Renderers...),
		state:            NewState(opts.Roster),
		phase:            PhaseIdle,
		status:           statusIdle,
	}
	return s, nil
}

// ID returns the session id stamped on every event.
func (s *Session) ID() string { return s.id }

// Roster returns the session's roster.
func (s *Session) Roster() *Roster { return s.roster }

// Goal returns the goal time in minutes.
func (s *Session) Goal() int { return s.goal }

// AdvisoryDuration is how long renderers should show an advisory.
func (s *Session) AdvisoryDuration() time.Duration { return s.advisoryDuration }

// AddRenderer attaches another renderer. It receives the current snapshot.
func (s *Session) AddRenderer(r Renderer) {
	s.mu.Lock()
	s.renderers = append(s.renderers, r)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	r.Render(snap)
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns the current renderer payload.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns a copy of the puzzle state.
func (s *Session) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Toggle stages or unstages an actor.
func (s *Session) Toggle(actorID string) error {
	s.mu.Lock()
	if !Allows(s.phase, OpSelect) {
		s.mu.Unlock()
		s.rejected(OpSelect, ErrBusy)
		return ErrBusy
	}
	if err := ToggleSelection(s.state, s.roster, actorID); err != nil {
		s.mu.Unlock()
		s.rejected(OpSelect, err)
		return err
	}
	selection := append([]string(nil), s.state.Selection...)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.emit("info", "selection.changed", "", map[string]interface{}{
		"actor_id":  actorID,
		"selection": selection,
	})
	s.render(snap)
	return nil
}

// Cross moves the staged selection. It returns after the travel delay, once
// the move has landed; input is refused in the meantime. Cancelling ctx only
// shortens the delay, the move itself is never rolled back.
func (s *Session) Cross(ctx context.Context) (Move, error) {
	s.mu.Lock()
	if !Allows(s.phase, OpCross) {
		s.mu.Unlock()
		s.rejected(OpCross, ErrBusy)
		return Move{}, ErrBusy
	}
	move, err := Execute(s.state, s.roster, s.state.Selection)
	if err != nil {
		s.mu.Unlock()
		s.rejected(OpCross, err)
		return Move{}, err
	}
	s.phase = PhaseTransitioning
	s.verdict = nil
	snap := s.commitLocked()
	s.mu.Unlock()

	s.emitMove(move, false)
	s.render(snap)

	_ = s.sleep(ctx, s.travelDelay)

	s.mu.Lock()
	s.status = DescribeMove(move, s.roster)
	verdict := s.settleLocked()
	snap = s.commitLocked()
	s.mu.Unlock()

	s.render(snap)
	if verdict != nil {
		s.complete(*verdict, false)
	}
	return move, nil
}

// Undo reverts the last move. It returns nil, nil when there is nothing to undo.
func (s *Session) Undo() (*Move, error) {
	s.mu.Lock()
	if !Allows(s.phase, OpUndo) {
		s.mu.Unlock()
		s.rejected(OpUndo, ErrBusy)
		return nil, ErrBusy
	}
	move, ok := Undo(s.state)
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	s.status = statusUndone
	s.settleLocked()
	snap := s.commitLocked()
	s.mu.Unlock()

	s.emit("info", "move.undone", "", map[string]interface{}{
		"ids":      move.IDs,
		"from":     string(move.From),
		"to":       string(move.To),
		"duration": move.Duration,
		"elapsed":  snap.Elapsed,
	})
	s.render(snap)
	return &move, nil
}

// Reset returns the puzzle to its initial state. It is refused while a
// manual move is in transit. During a replay it cancels the player; a step in
// flight lands first and the reset follows it under the same lock. If ctx
// ends while waiting for that step, Reset returns ctx.Err() but the reset
// still happens when the step lands.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	if !Allows(s.phase, OpReset) {
		s.mu.Unlock()
		s.rejected(OpReset, ErrBusy)
		return ErrBusy
	}
	if s.phase == PhaseAutoPlaying {
		s.player.Cancel()
		if s.inStep {
			s.resetPending = true
			done := s.playDone
			s.mu.Unlock()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		notify := s.resetPlaybackLocked()
		s.mu.Unlock()
		notify()
		return nil
	}
	s.resetLocked(statusIdle)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.emit("info", "puzzle.reset", "", map[string]interface{}{"reason": "manual"})
	s.render(snap)
	return nil
}

// resetPlaybackLocked ends a cancelled replay and resets the puzzle in one
// step. The returned func notifies and must run after unlocking.
func (s *Session) resetPlaybackLocked() func() {
	done, played, elapsed := s.playDone, s.played, s.state.Elapsed
	s.player = nil
	s.playDone = nil
	s.resetPending = false
	s.resetLocked(statusIdle)
	snap := s.commitLocked()

	return func() {
		s.emit("info", "autoplay.stopped", "", map[string]interface{}{
			"cancelled": true,
			"played":    played,
			"elapsed":   elapsed,
		})
		s.emit("info", "puzzle.reset", "", map[string]interface{}{"reason": "manual"})
		s.render(snap)
		close(done)
	}
}

// StartPlayback resets the puzzle and enters autoplay. The returned Player
// must be driven (Run or Step) and then closed.
func (s *Session) StartPlayback() (*Player, error) {
	s.mu.Lock()
	if !Allows(s.phase, OpPlay) {
		s.mu.Unlock()
		s.rejected(OpPlay, ErrBusy)
		return nil, ErrBusy
	}
	s.resetLocked(statusReplaying)
	s.phase = PhaseAutoPlaying
	p := &Player{session: s, steps: cloneSteps(s.solution)}
	s.player = p
	s.playDone = make(chan struct{})
	s.played = 0
	snap := s.commitLocked()
	s.mu.Unlock()

	s.emit("info", "puzzle.reset", "", map[string]interface{}{"reason": "autoplay"})
	s.emit("info", "autoplay.started", "", map[string]interface{}{"steps": len(p.steps)})
	s.render(snap)
	return p, nil
}

// PlaySolution replays the configured solution and blocks until it ends.
func (s *Session) PlaySolution(ctx context.Context) error {
	p, err := s.StartPlayback()
	if err != nil {
		return err
	}
	return p.Play(ctx)
}

// Command is a serialized input, as received from remote surfaces.
type Command struct {
	Op      Op     `json:"op"`
	ActorID string `json:"actor_id,omitempty"`
}

// Dispatch applies a command. OpPlay starts the replay in the background.
func (s *Session) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Op {
	case OpSelect:
		return s.Toggle(cmd.ActorID)
	case OpCross:
		_, err := s.Cross(ctx)
		return err
	case OpUndo:
		_, err := s.Undo()
		return err
	case OpReset:
		return s.Reset(ctx)
	case OpPlay:
		p, err := s.StartPlayback()
		if err != nil {
			return err
		}
		go p.Play(context.WithoutCancel(ctx))
		return nil
	default:
		return reject(ReasonUnknownCommand, "", fmt.Sprintf("unknown command %q", cmd.Op))
	}
}

// scriptedCross applies one replay step on behalf of p.
func (s *Session) scriptedCross(ctx context.Context, p *Player, ids []string) (Move, error) {
	s.mu.Lock()
	if s.player != p || s.phase != PhaseAutoPlaying {
		s.mu.Unlock()
		return Move{}, ErrPlaybackCancelled
	}
	move, err := Execute(s.state, s.roster, ids)
	if err != nil {
		s.mu.Unlock()
		s.rejected(OpPlay, err)
		return Move{}, err
	}
	s.inStep = true
	s.played++
	snap := s.commitLocked()
	s.mu.Unlock()

	s.emitMove(move, true)
	s.render(snap)

	_ = s.sleep(ctx, s.travelDelay)

	s.mu.Lock()
	s.inStep = false
	if s.resetPending {
		notify := s.resetPlaybackLocked()
		s.mu.Unlock()
		notify()
		return move, nil
	}
	s.status = DescribeMove(move, s.roster)
	snap = s.commitLocked()
	s.mu.Unlock()

	s.render(snap)
	return move, nil
}

// finishPlayback leaves autoplay for p and wakes any Reset waiting on it.
func (s *Session) finishPlayback(p *Player) {
	s.mu.Lock()
	if s.player != p {
		s.mu.Unlock()
		return
	}
	done, played := s.playDone, s.played
	s.player = nil
	s.playDone = nil
	s.resetPending = false

	cancelled := p.Cancelled()
	verdict := s.settleLocked()
	switch {
	case cancelled || verdict == nil:
		s.status = statusReplayHalted
	case verdict.Success():
		s.status = fmt.Sprintf("Everyone crossed in the ideal %d minutes!", s.goal)
	default:
		s.status = verdict.Message()
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.emit("info", "autoplay.stopped", "", map[string]interface{}{
		"cancelled": cancelled,
		"played":    played,
		"elapsed":   snap.Elapsed,
	})
	s.render(snap)
	if verdict != nil && !cancelled {
		s.complete(*verdict, true)
	}
	close(done)
}

func (s *Session) resetLocked(status string) {
	s.state.Reset(s.roster)
	s.phase = PhaseIdle
	s.status = status
	s.verdict = nil
}

// settleLocked leaves a busy phase and evaluates completion.
func (s *Session) settleLocked() *Verdict {
	s.verdict = Evaluate(s.state, s.goal)
	if s.verdict != nil {
		s.phase = PhaseCompleted
	} else {
		s.phase = PhaseIdle
	}
	return s.verdict
}

func (s *Session) commitLocked() Snapshot {
	s.seq++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.state.Clone()
	snap := Snapshot{
		Seq:           s.seq,
		SessionID:     s.id,
		Positions:     st.Positions,
		TorchSide:     st.TorchSide,
		Elapsed:       st.Elapsed,
		Goal:          s.goal,
		Selection:     st.Selection,
		History:       st.History,
		ProgressRatio: Progress(st.Elapsed, s.goal),
		Phase:         s.phase,
		Status:        s.status,
	}
	if s.verdict != nil {
		v := *s.verdict
		snap.Verdict = &v
	}
	return snap
}

func (s *Session) renderersCopy() []Renderer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Renderer(nil), s.renderers...)
}

func (s *Session) render(snap Snapshot) {
	for _, r := range s.renderersCopy() {
		r.Render(snap)
	}
}

func (s *Session) complete(v Verdict, autoplay bool) {
	s.emit("info", "puzzle.completed", v.Message(), map[string]interface{}{
		"outcome":  string(v.Outcome),
		"elapsed":  v.Elapsed,
		"goal":     v.Goal,
		"autoplay": autoplay,
	})
	for _, r := range s.renderersCopy() {
		r.Complete(v)
	}
}

// rejected records a refused operation. Busy rejections are not advised:
// the surfaces are expected to disable the control already.
func (s *Session) rejected(op Op, err error) {
	rej, ok := err.(*Rejection)
	if !ok {
		return
	}
	s.emit("warn", "operation.rejected", rej.Message, map[string]interface{}{
		"op":       string(op),
		"reason":   string(rej.Reason),
		"actor_id": rej.ActorID,
	})
	if rej.Reason == ReasonBusy {
		return
	}
	adv := Advisory{
		Reason:   rej.Reason,
		ActorID:  rej.ActorID,
		Message:  rej.Message,
		Duration: s.advisoryDuration,
	}
	for _, r := range s.renderersCopy() {
		r.Advise(adv)
	}
}

func (s *Session) emitMove(m Move, autoplay bool) {
	s.emit("info", "move.executed", DescribeMove(m, s.roster), map[string]interface{}{
		"ids":      m.IDs,
		"from":     string(m.From),
		"to":       string(m.To),
		"duration": m.Duration,
		"autoplay": autoplay,
	})
}

func (s *Session) emit(level, name, msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["session_id"] = s.id
	events.Emit(level, name, msg, fields)
}

func cloneSteps(steps [][]string) [][]string {
	out := make([][]string, 0, len(steps))
	for _, step := range steps {
		out = append(out, append([]string(nil), step...))
	}
	return out
}
