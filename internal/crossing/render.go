package crossing

import (
	"context"
	"time"
)

// Snapshot is pushed to renderers after every state change.
// Seq increases with each change; renderers should drop stale snapshots.
type Snapshot struct {
	Seq           uint64          `json:"seq"`
	SessionID     string          `json:"session_id"`
	Positions     map[string]Side `json:"positions"`
	TorchSide     Side            `json:"torch_side"`
	Elapsed       int             `json:"elapsed"`
	Goal          int             `json:"goal"`
	Selection     []string        `json:"selection"`
	History       []Move          `json:"history"`
	ProgressRatio float64         `json:"progress_ratio"`
	Phase         Phase           `json:"phase"`
	Status        string          `json:"status"`
	Verdict       *Verdict        `json:"verdict,omitempty"`
}

// Advisory is a transient message shown instead of the status line until
// Duration has passed.
type Advisory struct {
	Reason   Reason        `json:"reason"`
	ActorID  string        `json:"actor_id,omitempty"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Renderer is the presentation side of a session. Implementations must not
// block; they are called from whichever goroutine changed the state.
type Renderer interface {
	Render(Snapshot)
	Advise(Advisory)
	Complete(Verdict)
}

// RendererFuncs adapts plain functions to Renderer. Nil fields are skipped.
type RendererFuncs struct {
	OnRender   func(Snapshot)
	OnAdvise   func(Advisory)
	OnComplete func(Verdict)
}

func (f RendererFuncs) Render(s Snapshot) {
	if f.OnRender != nil {
		f.OnRender(s)
	}
}

func (f RendererFuncs) Advise(a Advisory) {
	if f.OnAdvise != nil {
		f.OnAdvise(a)
	}
}

func (f RendererFuncs) Complete(v Verdict) {
	if f.OnComplete != nil {
		f.OnComplete(v)
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
