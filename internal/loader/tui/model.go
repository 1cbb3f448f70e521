// Package tui previews the loading animation in a terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JakeFAU/zerovo-site/internal/loader"
)

var (
	brandStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2899c6"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#77abab"))
	readyStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#38bdf8"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

type tickMsg time.Time

type readyMsg struct{}

type unmountMsg struct{}

// Model is a bubbletea model wrapping a loader.Driver.
type Model struct {
	brand  string
	driver *loader.Driver
	bar    progress.Model
	frame  loader.Frame
	done   bool
}

// New builds a Model around driver, titled with brand.
func New(brand string, driver *loader.Driver) Model {
	return Model{
		brand:  brand,
		driver: driver,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		frame:  driver.Frame(),
	}
}

// Init starts the frame loop.
func (m Model) Init() tea.Cmd {
	return m.nextFrame()
}

// Update advances the driver on each frame message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, msg.Width-8)
	case tickMsg:
		m.frame = m.driver.Step()
		if m.frame.Phase == loader.PhaseRunning {
			return m, m.nextFrame()
		}
		return m, after(m.driver.Config().HoldDelay, readyMsg{})
	case readyMsg:
		m.frame = m.driver.Finish()
		return m, after(m.driver.Config().UnmountDelay, unmountMsg{})
	case unmountMsg:
		m.frame = m.driver.Unmount()
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current frame.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(brandStyle.Render(m.brand))
	b.WriteString("\n\n  ")
	b.WriteString(statusStyle.Render(m.frame.Status))
	b.WriteString("\n  ")
	b.WriteString(m.bar.ViewAs(m.frame.Progress / 100))
	b.WriteString(fmt.Sprintf(" %3d%%", m.frame.Percent))
	b.WriteString("\n\n  ")
	if m.frame.Ready {
		b.WriteString(readyStyle.Render("page ready"))
	} else {
		b.WriteString(mutedStyle.Render("press q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// Frame exposes the last rendered frame.
func (m Model) Frame() loader.Frame {
	return m.frame
}

// Done reports whether the model asked the program to exit.
func (m Model) Done() bool {
	return m.done
}

func (m Model) nextFrame() tea.Cmd {
	return tea.Tick(m.driver.Config().FrameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func after(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// Run plays the animation in the terminal until it unmounts or the user quits.
func Run(brand string, driver *loader.Driver, opts ...tea.ProgramOption) error {
	if _, err := tea.NewProgram(New(brand, driver), opts...).Run(); err != nil {
		return fmt.Errorf("run loader preview: %w", err)
	}
	return nil
}
