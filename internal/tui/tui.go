// Package tui renders the player in the terminal with bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	authorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	loadingStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("238"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const volumeStep = 0.05

// stateMsg carries a fresh view after a store change.
type stateMsg player.View

// Model is the bubbletea model of the player screen.
type Model struct {
	controller *player.Controller
	changes    chan struct{}

	view   player.View
	cursor int
	width  int
	status string
}

// New creates a model and subscribes it to the controller's store.
// The returned function unsubscribes.
func New(controller *player.Controller) (Model, func()) {
	changes := make(chan struct{}, 1)
	unsubscribe := controller.Store().Subscribe(func(player.PlaybackState) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	view := controller.View()
	return Model{
		controller: controller,
		changes:    changes,
		view:       view,
		cursor:     view.State.CurrentTrackIndex,
		width:      60,
	}, unsubscribe
}

// Run shows the player until the user quits or ctx is cancelled.
func Run(ctx context.Context, controller *player.Controller) error {
	m, unsubscribe := New(controller)
	defer unsubscribe()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange blocks until the store changes and reports the new view.
func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return stateMsg(m.controller.View())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.view = player.View(msg)
		return m, m.waitForChange()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.controller
	m.status = ""

	var err error
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ":
		c.TogglePlayPause()
	case "left":
		c.Skip(-player.SkipSeconds)
	case "right":
		c.Skip(player.SkipSeconds)
	case "+", "=":
		c.SetVolume(m.view.State.Volume + volumeStep)
	case "-":
		c.SetVolume(m.view.State.Volume - volumeStep)
	case "m":
		c.ToggleMute()
	case "v":
		c.SetVolumeControlVisible(!m.view.State.IsVolumeControlVisible)
	case "f":
		c.ToggleFullscreen()
	case "n":
		err = c.Next()
	case "p":
		err = c.Previous()
	case "up", "k":
		m.cursor = player.WrapIndex(m.cursor, -1, len(m.view.Playlist))
	case "down", "j":
		m.cursor = player.WrapIndex(m.cursor, 1, len(m.view.Playlist))
	case "enter":
		err = c.SelectTrack(m.cursor)
	}

	if err != nil {
		log.Debug().Err(err).Msg("TUI command failed")
		m.status = err.Error()
	}
	m.view = c.View()
	return m, nil
}

func (m Model) View() string {
	return render(m.view, m.cursor, m.width, m.status)
}

// render draws the whole screen for view.
func render(view player.View, cursor, width int, status string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(view.Track.Name))
	if view.Track.Author != "" {
		b.WriteString(" " + authorStyle.Render("by "+view.Track.Author))
	}
	b.WriteString("\n\n")

	icon := "⏸"
	if view.State.IsPlaying {
		icon = "▶"
	}
	barWidth := max(10, width-20)
	fmt.Fprintf(&b, "%s %s %s / %s\n", icon,
		barStyle.Render(progressBar(view.ProgressPercent, barWidth)),
		view.CurrentTimeText, view.DurationText)

	volume := fmt.Sprintf("vol %3d%%", view.VolumePercent)
	if view.Muted {
		volume = "vol muted"
	}
	if view.State.IsVolumeControlVisible {
		volume += " " + barStyle.Render(progressBar(float64(view.VolumePercent), 20))
	}
	b.WriteString(volume)
	if view.State.IsFullscreen {
		b.WriteString("  [fullscreen]")
	}
	b.WriteString("\n")

	if view.State.IsLoading {
		b.WriteString(loadingStyle.Render("Loading…") + "\n")
	}
	b.WriteString("\n")

	for _, entry := range view.Playlist {
		marker := "  "
		switch {
		case entry.Playing:
			marker = "♪ "
		case entry.Active:
			marker = "› "
		}
		line := fmt.Sprintf("%s%d. %s", marker, entry.Index+1, entry.Track.Name)
		if entry.Active {
			line = activeStyle.Render(line)
		}
		if entry.Index == cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if status != "" {
		b.WriteString("\n" + errorStyle.Render(status) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("space play/pause · ←/→ ±10s · +/- volume · m mute · v volume bar · f fullscreen · n/p track · ↑/↓ enter select · q quit"))
	return b.String()
}

// progressBar draws percent (0..100) as a bar of width cells.
func progressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(percent / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
