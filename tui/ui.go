// Package tui renders a follow-along transcript player in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parlo/etc"
	"parlo/player"
	"parlo/segment"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	badgeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	rewriteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Italic(true)
	translateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const tickInterval = 200 * time.Millisecond

type tickMsg time.Time

func doTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	viewport       viewport.Model
	ctrl           *player.Controller
	analysis       *segment.Analysis
	filename       string
	transcriptOnly bool
	ready          bool
	activeIdx      int
	lineOfSegment  []int
}

func initialModel(ctrl *player.Controller, analysis *segment.Analysis, filename string, transcriptOnly bool) model {
	return model{
		ctrl:           ctrl,
		analysis:       analysis,
		filename:       filename,
		transcriptOnly: transcriptOnly,
		activeIdx:      -1,
	}
}

// Run blocks until the user quits the player view.
func Run(ctrl *player.Controller, analysis *segment.Analysis, filename string, transcriptOnly bool) error {
	p := tea.NewProgram(
		initialModel(ctrl, analysis, filename, transcriptOnly),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return doTick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.ctrl.Pause()
			return m, tea.Quit
		case " ":
			if !m.transcriptOnly {
				m.ctrl.Toggle()
			}
		case "left":
			m.ctrl.Skip(-5)
		case "right":
			m.ctrl.Skip(5)
		case "s":
			m.ctrl.CycleRate()
		case "0":
			m.ctrl.Seek(0)
		}

	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		verticalMarginHeight := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMarginHeight)
			m.viewport.YPosition = headerHeight
			m.viewport.SetContent(m.contentView())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMarginHeight
		}

	case tickMsg:
		idx := segment.ActiveIndexAt(m.analysis.Segments, m.ctrl.Position())
		if idx != m.activeIdx {
			m.activeIdx = idx
			m.viewport.SetContent(m.contentView())
			m.scrollToActive()
		}
		return m, doTick()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) scrollToActive() {
	if m.activeIdx < 0 || m.activeIdx >= len(m.lineOfSegment) {
		return
	}
	target := m.lineOfSegment[m.activeIdx] - m.viewport.Height/2
	if target < 0 {
		target = 0
	}
	m.viewport.SetYOffset(target)
}

func (m *model) contentView() string {
	var b strings.Builder
	m.lineOfSegment = m.lineOfSegment[:0]
	line := 0

	for i, s := range m.analysis.Segments {
		m.lineOfSegment = append(m.lineOfSegment, line)

		stamp := badgeStyle.Render(etc.FormatClock(s.Start))
		text := s.Text
		if i == m.activeIdx {
			text = activeStyle.Render("▶ " + s.Text)
		}
		block := fmt.Sprintf("%s  %s\n   %s\n   %s\n\n",
			stamp,
			text,
			rewriteStyle.Render(s.NativeRewrite),
			translateStyle.Render(s.Translation),
		)
		b.WriteString(block)
		line += strings.Count(block, "\n")
	}
	return b.String()
}

func (m model) headerView() string {
	title := headerStyle.Render(m.filename)
	badge := badgeStyle.Render(fmt.Sprintf(
		" %s · %.0f wpm", m.analysis.Metadata.CEFR, m.analysis.Metadata.WPM))
	note := ""
	if m.transcriptOnly {
		note = badgeStyle.Render("  [transcript only — audio not persisted]")
	}
	return title + badge + note + "\n" + strings.Repeat("─", 40) + "\n"
}

func (m model) footerView() string {
	state := "⏸"
	if m.ctrl.IsPlaying() {
		state = "▶"
	}
	return "\n" + footerStyle.Render(fmt.Sprintf(
		"%s %s / %s · %.2gx · space play · ←/→ ±5s · s speed · q quit",
		state,
		etc.FormatClock(m.ctrl.Position()),
		etc.FormatClock(m.ctrl.ProgressMax()),
		m.ctrl.Rate(),
	))
}

func (m model) View() string {
	if !m.ready {
		return "\n  loading transcript..."
	}
	return fmt.Sprintf("%s%s%s", m.headerView(), m.viewport.View(), m.footerView())
}
