// Package tui renders a stepping session in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/hydrosim/internal/experiment"
)

const (
	barWidth    = 30
	sparkWidth  = 24
	maxSpeed    = 64
	defaultRate = 100 * time.Millisecond
)

type TickMsg time.Time

type keyMap struct {
	Pause  key.Binding
	Faster key.Binding
	Slower key.Binding
	Probe  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Faster, k.Slower, k.Probe, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Faster, k.Slower}, {k.Probe, k.Help, k.Quit}}
}

var keys = keyMap{
	Pause:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
	Faster: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
	Slower: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
	Probe:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next probe")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// Model advances an experiment by one stride per tick (times the speed
// factor) and shows progress, simulation time and probe values.
type Model struct {
	exp      *experiment.Experiment
	title    string
	rate     time.Duration
	running  bool
	done     bool
	speed    int
	selected int
	err      error
	spinner  spinner.Model
	help     help.Model
}

// NewModel wraps an experiment that has already been started.
func NewModel(exp *experiment.Experiment, title string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		exp:     exp,
		title:   title,
		rate:    defaultRate,
		running: true,
		speed:   1,
		spinner: sp,
		help:    help.New(),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.rate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tea.Batch(m.tick(), m.spinner.Tick) }

// Done reports whether the simulation reached its end date.
func (m Model) Done() bool { return m.done }

// Err returns the error that stopped stepping, if any.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Pause):
			m.running = !m.running
		case key.Matches(msg, keys.Faster):
			m.speed = min(m.speed*2, maxSpeed)
		case key.Matches(msg, keys.Slower):
			m.speed = max(m.speed/2, 1)
		case key.Matches(msg, keys.Probe):
			if n := len(m.probes()); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case TickMsg:
		if m.running && !m.done && m.err == nil {
			m.advance()
		}
		if m.done || m.err != nil {
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for range m.speed {
		done, err := m.exp.Advance()
		if err != nil {
			m.err = err
			return
		}
		if done {
			m.done = true
			return
		}
	}
}

func (m Model) probes() []string {
	if r := m.exp.Result(); r != nil {
		return r.Probes
	}
	return nil
}

func (m Model) View() string {
	s := m.exp.Session()
	res := m.exp.Result()

	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("ERROR") + "\n")
	case m.done:
		b.WriteString(statusDone.Render("FINISHED") + "\n")
	case m.running:
		b.WriteString(m.spinner.View() + " " + statusRunning.Render(fmt.Sprintf("RUNNING x%d", m.speed)) + "\n")
	default:
		b.WriteString(statusPaused.Render("PAUSED") + "\n")
	}
	b.WriteString("\n")
	b.WriteString(progressBar(s.Progress(), barWidth) + fmt.Sprintf(" %5.1f%%\n\n", s.Progress()*100))
	b.WriteString(labelStyle.Render("Sim time") + valueStyle.Render(s.CurrentTime().Format("2006-01-02 15:04:05")) + "\n")
	b.WriteString(labelStyle.Render("End") + valueStyle.Render(s.EndTime().Format("2006-01-02 15:04:05")) + "\n")
	steps := 0
	if res != nil {
		steps = res.Steps
	}
	b.WriteString(labelStyle.Render("Samples") + valueStyle.Render(fmt.Sprintf("%d", steps)) + "\n")
	b.WriteString("\nPROBES\n")

	var chart string
	for i, p := range m.probes() {
		series := res.Series[p]
		last := 0.0
		if len(series) > 0 {
			last = series[len(series)-1]
		}
		line := fmt.Sprintf("%-12s %s %10.4f", p, sparkline(series, sparkWidth), last)
		if i == m.selected {
			b.WriteString(activeStyle.Render("> ") + line + "\n")
			if len(series) > 1 {
				chart = asciigraph.Plot(series, asciigraph.Height(8), asciigraph.Width(40), asciigraph.Caption(p))
			}
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(keys)))

	view := panelStyle.Render(b.String())
	if chart != "" {
		view = lipgloss.JoinHorizontal(lipgloss.Top, graphStyle.Render(chart), view)
	}
	return view
}

// Run shows the model full-screen until the user quits or the run ends
// and the user quits. It returns the final model state.
func Run(m Model) (Model, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}
