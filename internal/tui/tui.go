package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/jvn1228/rdum/internal/seq"
)

// TickMsg drives the UI refresh; state is pumped from the snapshot channel
// at a steady rate instead of one tea message per pulse.
type TickMsg struct{}

const refreshFPS = 30

type promptKind int

const (
	promptNone promptKind = iota
	promptLoadPattern
	promptAddTrack
	promptTrackLen
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	nameStyle     = lipgloss.NewStyle().Width(14).MaxWidth(14)
	playheadStyle = lipgloss.NewStyle().Underline(true)
	statusStyle   = lipgloss.NewStyle().Faint(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)

	emptyColor, _ = colorful.Hex("#404040")
	fullColor, _  = colorful.Hex("#FF5F87")
)

// Model is the terminal controller: it renders the last snapshot and maps
// keys onto commands. It never touches the Context directly.
type Model struct {
	cmdTx   chan<- seq.Command
	stateRx <-chan seq.StateUpdate

	state        seq.SeqState
	patternFiles []string
	sampleFiles  []string

	cursorRow int
	cursorCol int

	prompt promptKind
	input  textinput.Model

	status string
	width  int
	height int
}

func New(ref *seq.Ref) *Model {
	ti := textinput.New()
	ti.CharLimit = 128
	return &Model{
		cmdTx:   ref.CommandTx(),
		stateRx: ref.GetStateRx(),
		input:   ti,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/refreshFPS, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) Init() tea.Cmd {
	m.cmdTx <- seq.ListPatterns()
	m.cmdTx <- seq.ListSamples()
	return tick()
}

// drainState folds every pending snapshot into the model, keeping only the
// newest. Missing intermediate snapshots is fine by contract.
func (m *Model) drainState() {
	for {
		select {
		case upd := <-m.stateRx:
			switch {
			case upd.Seq != nil:
				m.state = *upd.Seq
			case upd.Files != nil:
				if upd.Files.Kind == seq.PatternFiles {
					m.patternFiles = upd.Files.Files
				} else {
					m.sampleFiles = upd.Files.Files
				}
			}
		default:
			return
		}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.drainState()
		m.clampCursor()
		return m, tick()

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if n := len(m.state.Trks); n == 0 {
		m.cursorRow = 0
	} else if m.cursorRow >= n {
		m.cursorRow = n - 1
	}
	if m.cursorRow < len(m.state.Trks) {
		if l := m.state.Trks[m.cursorRow].Len; m.cursorCol >= l && l > 0 {
			m.cursorCol = l - 1
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.state.Playing {
			m.cmdTx <- seq.StopSequencer()
		} else {
			m.cmdTx <- seq.PlaySequencer()
		}
	case "up":
		if m.cursorRow > 0 {
			m.cursorRow--
		}
	case "down":
		m.cursorRow++
		m.clampCursor()
	case "left":
		if m.cursorCol > 0 {
			m.cursorCol--
		}
	case "right":
		m.cursorCol++
		m.clampCursor()
	case "x", "enter":
		if m.cursorRow < len(m.state.Trks) {
			vel := 127
			if t := m.state.Trks[m.cursorRow]; m.cursorCol < len(t.Slots) && t.Slots[m.cursorCol] > 0 {
				vel = 0
			}
			m.cmdTx <- seq.SetSlotVelocity(m.cursorRow, m.cursorCol, vel)
		}
	case "pgup":
		m.nudgeVelocity(16)
	case "pgdown":
		m.nudgeVelocity(-16)
	case "backspace", "delete":
		m.cmdTx <- seq.SetSlotVelocity(m.cursorRow, m.cursorCol, 0)
	case "+", "=":
		m.cmdTx <- seq.SetTempo(m.state.Tempo + 1)
	case "-":
		m.cmdTx <- seq.SetTempo(m.state.Tempo - 1)
	case "d":
		m.cmdTx <- seq.SetDivision(nextDivision(m.state.Division, 1))
	case "D":
		m.cmdTx <- seq.SetDivision(nextDivision(m.state.Division, -1))
	case ">":
		m.cmdTx <- seq.SetSwing(min(100, m.state.Swing+5))
	case "<":
		m.cmdTx <- seq.SetSwing(max(0, m.state.Swing-5))
	case "[":
		m.cmdTx <- seq.SelectPattern(max(0, m.state.PatternID-1))
	case "]":
		m.cmdTx <- seq.SelectPattern(min(m.state.PatternCount-1, m.state.PatternID+1))
	case "n":
		m.cmdTx <- seq.AddPattern()
	case "N":
		m.cmdTx <- seq.RemovePattern(m.state.PatternID)
	case "w":
		m.cmdTx <- seq.SavePattern()
		m.status = "pattern saved"
	case "l":
		m.openPrompt(promptLoadPattern, "pattern file: ")
	case "a":
		m.openPrompt(promptAddTrack, "sample path: ")
	case "t":
		m.openPrompt(promptTrackLen, "track length: ")
	case "r":
		m.cmdTx <- seq.ListPatterns()
		m.cmdTx <- seq.ListSamples()
	default:
		// Digits audition the matching track.
		if len(msg.String()) == 1 {
			if c := msg.String()[0]; c >= '0' && c <= '9' {
				m.cmdTx <- seq.PlaySound(int(c-'0'), 127)
			}
		}
	}
	return m, nil
}

func (m *Model) nudgeVelocity(delta int) {
	if m.cursorRow >= len(m.state.Trks) {
		return
	}
	t := m.state.Trks[m.cursorRow]
	if m.cursorCol >= len(t.Slots) {
		return
	}
	v := t.Slots[m.cursorCol] + delta
	if v < 0 {
		v = 0
	}
	if v > 127 {
		v = 127
	}
	m.cmdTx <- seq.SetSlotVelocity(m.cursorRow, m.cursorCol, v)
}

func (m *Model) openPrompt(kind promptKind, placeholder string) {
	m.prompt = kind
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt = promptNone
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		switch m.prompt {
		case promptLoadPattern:
			if value != "" {
				m.cmdTx <- seq.LoadPattern(value)
			}
		case promptAddTrack:
			if value != "" {
				m.cmdTx <- seq.AddTrack(value)
			}
		case promptTrackLen:
			var n int
			if _, err := fmt.Sscanf(value, "%d", &n); err == nil {
				m.cmdTx <- seq.SetTrackLength(m.cursorRow, n)
			}
		}
		m.prompt = promptNone
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func nextDivision(current, dir int) int {
	for i, d := range seq.Divisions {
		if d == current {
			j := i + dir
			if j < 0 {
				j = 0
			}
			if j >= len(seq.Divisions) {
				j = len(seq.Divisions) - 1
			}
			return seq.Divisions[j]
		}
	}
	return 4
}

// velocityColor blends from dim to hot as velocity rises.
func velocityColor(velocity int) lipgloss.Color {
	t := float64(velocity) / 127.0
	return lipgloss.Color(emptyColor.BlendLuv(fullColor, t).Hex())
}

func (m *Model) View() string {
	var b strings.Builder

	transport := "stopped"
	if m.state.Playing {
		transport = "playing"
	}
	queued := ""
	if m.state.QueuedPatternID != m.state.PatternID {
		queued = fmt.Sprintf(" -> %d", m.state.QueuedPatternID+1)
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf(
		" rdum  %s  %d bpm  1/%d  swing %d  %s (%d/%d)%s  latency %s",
		transport, m.state.Tempo, m.state.Division, m.state.Swing,
		m.state.PatternName, m.state.PatternID+1, m.state.PatternCount, queued,
		m.state.Latency.Round(time.Microsecond),
	)))
	b.WriteString("\n\n")

	for row, t := range m.state.Trks {
		b.WriteString(nameStyle.Render(t.Name))
		b.WriteString(" ")
		// Idx points at the next slot; the one behind it is what just
		// sounded, which reads better against the ear.
		playhead := (t.Idx - 1 + t.Len) % t.Len
		for col, vel := range t.Slots {
			cell := "--"
			if vel > 0 {
				cell = fmt.Sprintf("%02X", vel)
			}
			style := lipgloss.NewStyle().Foreground(velocityColor(vel))
			if m.state.Playing && col == playhead {
				style = style.Inherit(playheadStyle)
			}
			if row == m.cursorRow && col == m.cursorCol {
				style = style.Inherit(cursorStyle)
			}
			b.WriteString(style.Render(cell))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	if len(m.state.Trks) == 0 {
		b.WriteString(statusStyle.Render(" no tracks yet; press a to add one"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.prompt != promptNone {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	} else {
		b.WriteString(statusStyle.Render(
			" space play  x toggle  pgup/pgdn vel  +/- tempo  d/D div  </> swing  [/] pattern  n/N add/rm  a track  t len  w save  l load  q quit"))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(" " + m.status))
		b.WriteString("\n")
	}
	return b.String()
}
