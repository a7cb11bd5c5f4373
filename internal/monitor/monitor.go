// Package monitor is a terminal view of the note lifecycle. It never reads
// the note frame: everything it shows is derived from add, finalize, cleanup
// and clear events.
package monitor

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/engine"
)

const recentEvents = 8

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	heldStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86"))
	idleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	logStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type eventsMsg []engine.Event

type closedMsg struct{}

// Model is the bubbletea model. Keys fixes the lane order of the key row;
// keys that only show up in events are appended.
type Model struct {
	sub    *bridge.Subscription
	title  string
	keys   []string
	held   map[string]bool
	live   int
	counts map[engine.EventType]int
	recent []engine.Event
	done   bool
}

func New(sub *bridge.Subscription, title string, keys []string) Model {
	return Model{
		sub:    sub,
		title:  title,
		keys:   append([]string(nil), keys...),
		held:   make(map[string]bool),
		counts: make(map[engine.EventType]int),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvents(m.sub)
}

func waitForEvents(sub *bridge.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-sub.Ready(); !ok {
			return closedMsg{}
		}
		return eventsMsg(sub.Drain(nil))
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsMsg:
		for _, ev := range msg {
			m = m.Apply(ev)
		}
		return m, waitForEvents(m.sub)
	case closedMsg:
		m.done = true
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

// Apply folds one lifecycle event into the model.
func (m Model) Apply(ev engine.Event) Model {
	m.counts[ev.Type]++
	m.live = ev.Count
	switch ev.Type {
	case engine.EventAdd:
		m.addKey(ev.Key)
		m.held[ev.Key] = true
	case engine.EventFinalize:
		delete(m.held, ev.Key)
	case engine.EventClear:
		clear(m.held)
		m.live = 0
	}
	m.recent = append(m.recent, ev)
	if len(m.recent) > recentEvents {
		m.recent = m.recent[len(m.recent)-recentEvents:]
	}
	return m
}

func (m *Model) addKey(key string) {
	for _, k := range m.keys {
		if k == key {
			return
		}
	}
	m.keys = append(m.keys, key)
}

// Live is the note count reported by the latest event.
func (m Model) Live() int { return m.live }

// Held reports whether key has a growing note.
func (m Model) Held(key string) bool { return m.held[key] }

func (m Model) Count(t engine.EventType) int { return m.counts[t] }

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	cells := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		if m.held[k] {
			cells = append(cells, heldStyle.Render(" "+k+" "))
		} else {
			cells = append(cells, idleStyle.Render(" "+k+" "))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	b.WriteString("\n\n")

	b.WriteString(statStyle.Render(fmt.Sprintf("live %d  add %d  finalize %d  cleanup %d  clear %d",
		m.live,
		m.counts[engine.EventAdd],
		m.counts[engine.EventFinalize],
		m.counts[engine.EventCleanup],
		m.counts[engine.EventClear],
	)))
	b.WriteString("\n")

	lines := make([]string, 0, len(m.recent))
	for _, ev := range m.recent {
		lines = append(lines, logStyle.Render(fmt.Sprintf("%10.1f  %-8s %-6s slot %d", ev.Time, ev.Type, ev.Key, ev.Slot)))
	}
	if len(lines) == 0 {
		lines = append(lines, logStyle.Render("waiting for notes"))
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")
	if m.done {
		b.WriteString("host closed; q to quit\n")
	} else {
		b.WriteString("q to quit\n")
	}
	return b.String()
}
