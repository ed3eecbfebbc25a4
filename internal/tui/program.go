package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
)

// Renderer forwards session output into a running program.
type Renderer struct {
	send func(tea.Msg)
}

// NewRenderer returns a Renderer that delivers through send, usually
// (*tea.Program).Send.
func NewRenderer(send func(tea.Msg)) *Renderer {
	return &Renderer{send: send}
}

// Render sends on its own goroutine. Send blocks until the event loop reads
// it, and the session may call in from a command the loop started. The model
// drops snapshots that arrive out of order.
func (r *Renderer) Render(s crossing.Snapshot) {
	go r.send(SnapshotMsg{Snapshot: s})
}

func (r *Renderer) Advise(a crossing.Advisory) {
	go r.send(AdvisoryMsg{Advisory: a})
}

func (r *Renderer) Complete(v crossing.Verdict) {
	go r.send(VerdictMsg{Verdict: v})
}

// Session is a Controller that accepts renderers.
type Session interface {
	Controller
	AddRenderer(r crossing.Renderer)
}

// Run shows the puzzle in the terminal until the user quits or ctx is done.
func Run(ctx context.Context, s Session, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(s), opts...)
	s.AddRenderer(NewRenderer(p.Send))

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
