package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/planes-near-me/internal/locate"
	"github.com/unklstewy/planes-near-me/internal/proximity"
	"github.com/unklstewy/planes-near-me/internal/render"
	"github.com/unklstewy/planes-near-me/pkg/airline"
)

// sessionID is the single session the terminal client uses.
const sessionID = "terminal"

// radiusStep is how far +/- move the radius.
const radiusStep = 5.0

type locationMsg struct {
	readout locate.Readout
	err     error
}

type planesMsg struct {
	result proximity.Result
	err    error
}

type model struct {
	airlines  *airline.Directory
	locator   *locate.Acquirer
	provider  locate.Provider
	proximity *proximity.Client
	renderer  render.Renderer
	timeout   time.Duration

	radius         float64
	readout        *locate.Readout
	loading        bool
	message        string
	alert          string
	rows           []render.Row
	airlineWarning bool
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) acquire() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		readout, err := m.locator.Acquire(ctx, sessionID, m.provider)
		return locationMsg{readout: readout, err: err}
	}
}

func (m model) fetch() tea.Cmd {
	radius := strconv.FormatFloat(m.radius, 'f', -1, 64)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		result, err := m.proximity.Query(ctx, sessionID, radius)
		return planesMsg{result: result, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Dismiss alerts on any keypress
		if m.alert != "" {
			m.alert = ""
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "l":
			return m, m.acquire()
		case "f":
			if m.loading {
				return m, nil
			}
			if m.readout == nil {
				m.alert = proximity.ErrNoLocation.Error()
				return m, nil
			}
			m.loading = true
			m.message = proximity.LoadingText
			m.rows = nil
			return m, m.fetch()
		case "+", "=":
			m.radius += radiusStep
		case "-":
			if m.radius > radiusStep {
				m.radius -= radiusStep
			}
		}

	case locationMsg:
		if msg.err != nil {
			m.alert = msg.err.Error()
			return m, nil
		}
		m.readout = &msg.readout

	case planesMsg:
		m.loading = false
		m.rows = nil
		switch {
		case msg.err != nil:
			m.alert = msg.err.Error()
			m.message = proximity.FailureText
		case msg.result.Kind == proximity.KindPlanes:
			m.message = ""
			m.rows = render.Prepare(msg.result.Aircraft, m.airlines)
		default:
			m.message = msg.result.Message()
		}
	}

	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	linkStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	alertStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	s.WriteString(titleStyle.Render("PLANES NEAR ME"))
	s.WriteString("\n\n")

	if m.airlineWarning {
		s.WriteString(warnStyle.Render("Failed to load airline data. Please try again later."))
		s.WriteString("\n")
	}

	if m.readout != nil {
		s.WriteString(labelStyle.Render(m.readout.Text))
		s.WriteString("\n")
		s.WriteString(linkStyle.Render(m.readout.MapURL))
		s.WriteString("\n")
	} else {
		s.WriteString(helpStyle.Render("No location yet"))
		s.WriteString("\n")
	}
	s.WriteString(fmt.Sprintf("Radius: %s nm\n\n", strconv.FormatFloat(m.radius, 'f', -1, 64)))

	if m.alert != "" {
		s.WriteString(alertStyle.Render(m.alert))
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("Press any key to continue"))
		s.WriteString("\n\n")
	}

	if m.message != "" {
		s.WriteString(m.message)
		s.WriteString("\n\n")
	}

	if len(m.rows) > 0 {
		m.renderer.RenderRows(&s, m.rows)
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("l: get location  f: find planes  +/-: radius  q: quit"))
	return s.String()
}
