// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/eclipse"
	"github.com/litescript/ls-eclipse/internal/state"
	"github.com/litescript/ls-eclipse/internal/timeline"
	"github.com/litescript/ls-eclipse/internal/version"
)

const (
	stepSmall = time.Minute
	stepLarge = 10 * time.Minute

	// playStep is how far the cursor advances per animation frame.
	playStep     = 30 * time.Second
	animInterval = 50 * time.Millisecond
)

// Calculator evaluates the sky at the cursor.
type Calculator interface {
	Coverage(t time.Time, obs astro.Observer) (float64, error)
	SunHorizontal(t time.Time, obs astro.Observer) (eclipse.SunDirection, error)
}

// Msg types for Bubble Tea
type (
	// AnimTickMsg advances playback.
	AnimTickMsg time.Time

	// SelectionMsg signals that an eclipse has been resolved and selected
	// in the state manager.
	SelectionMsg struct {
		Sun   timeline.SunEvents
		Trace []timeline.SunPoint
	}

	// ErrorMsg signals a failed search.
	ErrorMsg struct {
		Error error
	}

	// cursorInfoMsg carries the sky at a cursor position.
	cursorInfoMsg struct {
		at       time.Time
		coverage float64
		sun      eclipse.SunDirection
		err      error
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	state    *state.Manager
	calc     Calculator
	provider string

	// UI state
	width    int
	height   int
	ready    bool
	animTick int
	playing  bool
	err      error

	// Data snapshot (updated on SelectionMsg and cursor moves)
	snapshot state.Snapshot
	sun      timeline.SunEvents
	trace    []timeline.SunPoint

	// Sky at the cursor
	cursorCoverage float64
	cursorSun      eclipse.SunDirection
	cursorErr      error
}

// New creates a new root UI model.
func New(stateMgr *state.Manager, calc Calculator, provider string) Model {
	return Model{
		state:    stateMgr,
		calc:     calc,
		provider: provider,
		snapshot: stateMgr.Snapshot(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return animTickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case AnimTickMsg:
		m.animTick++
		if m.playing && m.snapshot.Timing != nil {
			if !m.snapshot.Cursor.Before(m.snapshot.Timing.End) {
				m.playing = false
				return m, animTickCmd()
			}
			m.state.StepCursor(playStep)
			m = m.moved()
			return m, tea.Batch(animTickCmd(), m.cursorCmd())
		}
		return m, animTickCmd()

	case SelectionMsg:
		m.err = nil
		m.sun = msg.Sun
		m.trace = msg.Trace
		m.snapshot = m.state.Snapshot()
		return m, m.cursorCmd()

	case ErrorMsg:
		m.err = msg.Error

	case cursorInfoMsg:
		// Drop answers for positions the cursor has already left
		if msg.at.Equal(m.snapshot.Cursor) {
			m.cursorCoverage = msg.coverage
			m.cursorSun = msg.sun
			m.cursorErr = msg.err
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	if m.snapshot.Timing == nil {
		return m, nil
	}
	tm := *m.snapshot.Timing

	switch msg.String() {
	case "left":
		m.state.StepCursor(-stepSmall)
	case "right":
		m.state.StepCursor(stepSmall)
	case "shift+left":
		m.state.StepCursor(-stepLarge)
	case "shift+right":
		m.state.StepCursor(stepLarge)
	case "home":
		m.state.SetCursor(tm.Start)
	case "end":
		m.state.SetCursor(tm.End)
	case "p":
		m.state.SetCursor(tm.Peak)
	case " ", "space":
		m.playing = !m.playing
		if m.playing && !m.snapshot.Cursor.Before(tm.End) {
			m.state.SetCursor(tm.Start)
		}
	default:
		return m, nil
	}

	m = m.moved()
	return m, m.cursorCmd()
}

// moved refreshes the snapshot after a cursor change and shows the curve's
// interpolated coverage until the exact value arrives.
func (m Model) moved() Model {
	m.snapshot = m.state.Snapshot()
	m.cursorCoverage = m.snapshot.Curve.At(m.snapshot.Cursor)
	return m
}

// cursorCmd evaluates coverage and the Sun's direction at the cursor.
func (m Model) cursorCmd() tea.Cmd {
	at := m.snapshot.Cursor
	obs := m.snapshot.Observer
	calc := m.calc
	return func() tea.Msg {
		info := cursorInfoMsg{at: at}
		info.coverage, info.err = calc.Coverage(at, obs)
		if info.err != nil {
			return info
		}
		info.sun, info.err = calc.SunHorizontal(at, obs)
		return info
	}
}

// Playing reports whether playback is running.
func (m Model) Playing() bool {
	return m.playing
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch {
	case m.snapshot.Timing == nil && m.err != nil:
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
		content = errorStyle.Render("  " + m.err.Error())
	case m.snapshot.Timing == nil:
		content = "  " + renderShimmer(m.animTick, sparklineWidth(m.width), "Searching for the next eclipse...")
	default:
		content = m.renderScrubber()
	}

	return m.renderHeader() + "\n" + content + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString("\n  ")

	title := "☀ LS-ECLIPSE"
	runes := []rune(title)
	for col, r := range runes {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradientColor(col, len(runes)))).Bold(true)
		b.WriteString(style.Render(string(r)))
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	b.WriteString(muted.Render(fmt.Sprintf("  v%s · %s ephemeris", version.Version, m.provider)))
	b.WriteString("\n")

	if m.snapshot.Timing != nil {
		b.WriteString(muted.Render("  " + m.snapshot.Observer.String()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))

	var parts []string
	if m.cursorErr != nil {
		parts = append(parts, errorStyle.Render("ephemeris: "+m.cursorErr.Error()))
	}
	parts = append(parts, dimStyle.Render("←/→ 1m · shift+←/→ 10m · home/end · p peak · space play · q quit"))
	return "\n  " + strings.Join(parts, "  ")
}

// gradientColor returns a hex color along a gold → orange → crimson ramp.
func gradientColor(col, width int) string {
	x := 0.0
	if width > 1 {
		x = float64(col) / float64(width-1)
	}

	var r, g, b float64
	if x < 0.5 {
		// Gold to orange
		t := x / 0.5
		r = 255
		g = 215 + t*(140-215)
		b = 0
	} else {
		// Orange to crimson
		t := (x - 0.5) / 0.5
		r = 255 + t*(220-255)
		g = 140 + t*(20-140)
		b = t * 60
	}
	return fmt.Sprintf("#%02x%02x%02x", int(r), int(g), int(b))
}

func animTickCmd() tea.Cmd {
	return tea.Tick(animInterval, func(t time.Time) tea.Msg {
		return AnimTickMsg(t)
	})
}
