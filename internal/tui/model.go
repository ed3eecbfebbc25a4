// Package tui is the terminal surface of a puzzle session: a bubbletea
// program that renders snapshots and turns key presses into commands.
//
// The model is only touched from the bubbletea event loop. Session output
// reaches it as messages sent by Renderer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
)

// Controller is what the model drives. *crossing.Session implements it.
type Controller interface {
	Dispatch(ctx context.Context, cmd crossing.Command) error
	Snapshot() crossing.Snapshot
	Roster() *crossing.Roster
}

// Messages

// SnapshotMsg carries a rendered session state.
type SnapshotMsg struct{ Snapshot crossing.Snapshot }

// AdvisoryMsg carries a transient message.
type AdvisoryMsg struct{ Advisory crossing.Advisory }

// VerdictMsg is sent when a run completes.
type VerdictMsg struct{ Verdict crossing.Verdict }

// ErrMsg reports a command that failed for reasons other than a rejection.
type ErrMsg struct{ Err error }

type advisoryExpiredMsg struct{ id int }

const progressWidth = 24

// Model is the bubbletea model of one session.
type Model struct {
	ctrl   Controller
	roster *crossing.Roster

	snap crossing.Snapshot

	advisory   *crossing.Advisory
	advisoryID int
	verdict    *crossing.Verdict
	err        error

	width    int
	quitting bool
}

// New seeds the model with the controller's current snapshot.
func New(ctrl Controller) Model {
	snap := ctrl.Snapshot()
	return Model{
		ctrl:    ctrl,
		roster:  ctrl.Roster(),
		snap:    snap,
		verdict: snap.Verdict,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		// renderer messages are delivered from separate goroutines
		if msg.Snapshot.Seq <= m.snap.Seq {
			return m, nil
		}
		m.snap = msg.Snapshot
		m.verdict = msg.Snapshot.Verdict
		m.err = nil

	case AdvisoryMsg:
		m.advisoryID++
		a := msg.Advisory
		m.advisory = &a
		id := m.advisoryID
		return m, tea.Tick(a.Duration, func(time.Time) tea.Msg {
			return advisoryExpiredMsg{id: id}
		})

	case advisoryExpiredMsg:
		if msg.id == m.advisoryID {
			m.advisory = nil
		}

	case VerdictMsg:
		if m.snap.Phase == crossing.PhaseCompleted {
			v := msg.Verdict
			m.verdict = &v
		}

	case ErrMsg:
		m.err = msg.Err
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "c", "enter":
		return m, m.dispatch(crossing.Command{Op: crossing.OpCross})
	case "u":
		return m, m.dispatch(crossing.Command{Op: crossing.OpUndo})
	case "r":
		return m, m.dispatch(crossing.Command{Op: crossing.OpReset})
	case "s":
		return m, m.dispatch(crossing.Command{Op: crossing.OpPlay})
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		actors := m.roster.Actors()
		idx := int(key[0] - '1')
		if idx < len(actors) {
			return m, m.dispatch(crossing.Command{Op: crossing.OpSelect, ActorID: actors[idx].ID})
		}
	}
	return m, nil
}

// dispatch runs cmd off the event loop; a cross blocks for the travel delay.
// Rejections come back through the renderer as advisories.
func (m Model) dispatch(cmd crossing.Command) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		err := ctrl.Dispatch(context.Background(), cmd)
		var rej *crossing.Rejection
		if err != nil && !errors.As(err, &rej) {
			return ErrMsg{Err: err}
		}
		return nil
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	bankStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1).
			Width(26)

	bankTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("250"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("214"))

	torchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("202"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	advisoryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	successBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 2)

	overGoalBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("220")).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Torch Bridge"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderBank(crossing.SideStart),
		"  ",
		m.renderBank(crossing.SideDestination),
	))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Torch: %s\n", crossing.DescribeSide(m.snap.TorchSide))
	fmt.Fprintf(&b, "Time:  %s %d / %d min\n",
		progressBar(m.snap.ProgressRatio, progressWidth), m.snap.Elapsed, m.snap.Goal)
	fmt.Fprintf(&b, "Selected: %s\n\n", crossing.DescribeSelection(m.snap.Selection, m.roster))

	if lines := crossing.DescribeHistory(m.snap.History, m.roster); len(lines) > 0 {
		for i, line := range lines {
			fmt.Fprintf(&b, "%s %s\n", dimStyle.Render(fmt.Sprintf("%2d.", i+1)), line)
		}
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.verdict != nil {
		b.WriteString("\n")
		if m.verdict.Success() {
			b.WriteString(successBanner.Render(m.verdict.Message()))
		} else {
			b.WriteString(overGoalBanner.Render(m.verdict.Message()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("1-9 select • c/enter cross • u undo • r reset • s solution • q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderBank(side crossing.Side) string {
	var b strings.Builder
	title := "Start"
	if side == crossing.SideDestination {
		title = "Destination"
	}
	b.WriteString(bankTitleStyle.Render(title))
	if m.snap.TorchSide == side {
		b.WriteString(" " + torchStyle.Render("(torch)"))
	}

	for i, a := range m.roster.Actors() {
		if m.snap.Positions[a.ID] != side {
			continue
		}
		line := fmt.Sprintf("%d %s (%d min)", i+1, a.Label, a.Cost)
		if isSelected(m.snap.Selection, a.ID) {
			line = selectedStyle.Render(line)
		}
		b.WriteString("\n" + line)
	}
	return bankStyle.Render(b.String())
}

func (m Model) statusLine() string {
	if m.err != nil {
		return advisoryStyle.Render("error: " + m.err.Error())
	}
	if m.advisory != nil {
		return advisoryStyle.Render(m.advisory.Message)
	}
	return m.snap.Status
}

func isSelected(selection []string, id string) bool {
	for _, s := range selection {
		if s == id {
			return true
		}
	}
	return false
}

func progressBar(ratio float64, width int) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
