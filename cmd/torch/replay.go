package main

import (
	"context"
	"fmt"
	"io"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
)

// replay runs the stored solution headless, printing one line per move
// and the verdict.
func replay(ctx context.Context, sess *crossing.Session, w io.Writer) error {
	roster := sess.Roster()
	printed := 0
	var verdict *crossing.Verdict

	sess.AddRenderer(crossing.RendererFuncs{
		OnRender: func(s crossing.Snapshot) {
			// replay start resets the history
			if len(s.History) < printed {
				printed = 0
			}
			lines := crossing.DescribeHistory(s.History, roster)
			for _, line := range lines[printed:] {
				fmt.Fprintln(w, line)
			}
			printed = len(lines)
		},
		OnComplete: func(v crossing.Verdict) {
			verdict = &v
		},
	})

	if err := sess.PlaySolution(ctx); err != nil {
		return err
	}
	if verdict == nil {
		return fmt.Errorf("replay ended without everyone across: %s", sess.Snapshot().Status)
	}
	fmt.Fprintln(w, verdict.Message())
	return nil
}
