// Package tui shows live progress of a sweep with Bubble Tea.
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/polychain/internal/dynamo"
	"github.com/san-kum/polychain/internal/experiment"
	"github.com/san-kum/polychain/internal/sim"
	"github.com/san-kum/polychain/internal/viz"
)

const historyLen = 60

type runStatus int

const (
	statusPending runStatus = iota
	statusRunning
	statusDone
	statusFailed
)

type runRow struct {
	plan   experiment.Plan
	status runStatus
	frames int
	detail string
}

// EventMsg wraps a sweep event.
type EventMsg experiment.Event

// FrameMsg carries a copy of a sampled frame of one run.
type FrameMsg struct {
	Plan  experiment.Plan
	Frame dynamo.Frame
}

// DoneMsg ends the sweep.
type DoneMsg struct{ Err error }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the sweep progress screen.
type Model struct {
	title   string
	rows    []runRow
	done    int
	spin    int
	view    *viz.ChainView
	last    *FrameMsg
	history []float64
	err     error
	over    bool
	cancel  func()
	width   int
}

// New builds a model for plans. cancel is called when the user quits early.
func New(title string, plans []experiment.Plan, cancel func()) Model {
	rows := make([]runRow, len(plans))
	for i, p := range plans {
		rows[i] = runRow{plan: p}
	}
	return Model{
		title:  title,
		rows:   rows,
		view:   viz.NewChainView(24, 6),
		cancel: cancel,
		width:  80,
	}
}

func (m Model) Init() tea.Cmd { return tick() }

// Err reports the sweep error once the model has finished.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.over && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.spin++
		if m.over {
			return m, nil
		}
		return m, tick()
	case EventMsg:
		m.apply(experiment.Event(msg))
	case FrameMsg:
		m.last = &msg
		if msg.Plan.Index < len(m.rows) {
			m.rows[msg.Plan.Index].frames++
		}
		m.history = append(m.history, msg.Frame.Gyration)
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	case DoneMsg:
		m.over = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(ev experiment.Event) {
	if ev.Plan.Index >= len(m.rows) {
		return
	}
	row := &m.rows[ev.Plan.Index]
	m.done = ev.Done
	switch ev.Kind {
	case experiment.RunStarted:
		row.status = statusRunning
		row.detail = fmt.Sprintf("V_%d", ev.Files.Index)
	case experiment.RunFinished:
		row.status = statusDone
		row.frames = ev.Result.Frames
		row.detail = fmt.Sprintf("V_%d  %s", ev.Files.Index, ev.Result.WallTime.Round(time.Millisecond))
	case experiment.RunFailed:
		row.status = statusFailed
		row.detail = ev.Err.Error()
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(viz.Title.Render(m.title))
	b.WriteString("\n\n")

	frac := 0.0
	if len(m.rows) > 0 {
		frac = float64(m.done) / float64(len(m.rows))
	}
	b.WriteString(viz.ProgressBar(frac, 40))
	b.WriteString(viz.MetricLabel.Render(fmt.Sprintf("  %d/%d runs", m.done, len(m.rows))))
	b.WriteString("\n\n")

	for _, r := range m.rows {
		b.WriteString(m.statusIcon(r.status))
		label := fmt.Sprintf(" N=%-3d", r.plan.N)
		if r.plan.Anchored {
			label += fmt.Sprintf(" F=%-9g", r.plan.PullForce)
		}
		b.WriteString(viz.MetricValue.Render(label))
		b.WriteString(viz.Subtle.Render(fmt.Sprintf(" %6d frames  %s", r.frames, r.detail)))
		b.WriteString("\n")
	}

	if m.last != nil {
		b.WriteString("\n")
		info := fmt.Sprintf("N=%d  t=%.1f\nRg %.4f\nRee %.4f\nE %.4f\n%s",
			m.last.Plan.N, m.last.Frame.Time, m.last.Frame.Gyration,
			m.last.Frame.EndToEnd, m.last.Frame.Total, viz.Sparkline(m.history, 20))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			viz.Panel.Render(strings.TrimRight(m.view.Render(m.last.Frame.X), "\n")),
			"  ", info))
		b.WriteString("\n")
	}

	if m.over {
		if m.err != nil {
			b.WriteString("\n" + viz.StatusFailed.Render("sweep failed: "+m.err.Error()) + "\n")
		} else {
			b.WriteString("\n" + viz.StatusRunning.Render("sweep complete") + "\n")
		}
	} else {
		b.WriteString("\n" + viz.Subtle.Render("q to abort") + "\n")
	}
	return b.String()
}

func (m Model) statusIcon(s runStatus) string {
	switch s {
	case statusRunning:
		return viz.StatusRunning.Render(viz.AnimatedSpinner(m.spin))
	case statusDone:
		return viz.StatusRunning.Render("✓")
	case statusFailed:
		return viz.StatusFailed.Render("✗")
	default:
		return viz.Subtle.Render("·")
	}
}

// Sender is the part of *tea.Program the hooks need.
type Sender interface {
	Send(msg tea.Msg)
}

// Progress forwards sweep events to p.
func Progress(p Sender) func(experiment.Event) {
	return func(ev experiment.Event) { p.Send(EventMsg(ev)) }
}

// Frames returns an observer factory forwarding at most one frame per
// interval and run to p.
func Frames(p Sender, interval time.Duration) func(experiment.Plan) sim.Observer {
	return func(plan experiment.Plan) sim.Observer {
		var mu sync.Mutex
		var last time.Time
		return sim.ObserverFunc(func(f *dynamo.Frame) {
			mu.Lock()
			defer mu.Unlock()
			if time.Since(last) < interval {
				return
			}
			last = time.Now()
			cp := *f
			cp.X = f.X.Clone()
			cp.V = f.V.Clone()
			p.Send(FrameMsg{Plan: plan, Frame: cp})
		})
	}
}
