// PawPrint messenger
// Terminal APRS message composer and ledger view over a running daemon.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ki9ng/PawPrint/internal/apiclient"
	"github.com/ki9ng/PawPrint/internal/state"
	"github.com/ki9ng/PawPrint/pkg/aprs"
)

var serverURL = flag.String("server", "http://localhost:5000", "pawprint daemon URL")

const (
	fieldTo = iota
	fieldText
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	txStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	rxStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	ackStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type model struct {
	client   *apiclient.Client
	messages []*state.Message
	to       string
	text     string
	focus    int
	notice   string
	err      error
}

type tickMsg time.Time

type ledgerMsg struct {
	messages []*state.Message
	err      error
}

type sentMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetchLedger() tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.client.Messages()
		return ledgerMsg{messages: msgs, err: err}
	}
}

func (m model) send() tea.Cmd {
	to, text := m.to, m.text
	return func() tea.Msg {
		_, err := m.client.SendMessage(to, text)
		return sentMsg{err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchLedger(), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.focus = (m.focus + 1) % 2
			return m, nil
		case tea.KeyEnter:
			if strings.TrimSpace(m.to) == "" || strings.TrimSpace(m.text) == "" {
				m.notice = "recipient and text are required"
				return m, nil
			}
			m.notice = "sending..."
			cmd := m.send()
			m.text = ""
			return m, cmd
		case tea.KeyBackspace:
			if m.focus == fieldTo && len(m.to) > 0 {
				m.to = m.to[:len(m.to)-1]
			} else if m.focus == fieldText && len(m.text) > 0 {
				m.text = m.text[:len(m.text)-1]
			}
			return m, nil
		case tea.KeyRunes, tea.KeySpace:
			s := string(msg.Runes)
			if msg.Type == tea.KeySpace {
				s = " "
			}
			if m.focus == fieldTo {
				m.to += s
			} else if len(m.text)+len(s) <= aprs.MaxMessageLen {
				m.text += s
			}
			return m, nil
		}

	case tickMsg:
		return m, tea.Batch(m.fetchLedger(), tick())

	case ledgerMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.messages = msg.messages
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.notice = "send failed: " + msg.err.Error()
		} else {
			m.notice = "queued"
		}
		return m, m.fetchLedger()
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("PawPrint messages"))
	if m.err != nil {
		b.WriteString("  " + errStyle.Render(fmt.Sprintf("(daemon unreachable: %v)", m.err)))
	}
	b.WriteString("\n\n")

	// Last entries first is what you want on a small screen.
	shown := m.messages
	if len(shown) > 15 {
		shown = shown[len(shown)-15:]
	}
	for _, msg := range shown {
		b.WriteString(renderMessage(msg))
		b.WriteString("\n")
	}
	if len(shown) == 0 {
		b.WriteString(labelStyle.Render("no messages yet") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(renderField("To", m.to, m.focus == fieldTo))
	b.WriteString("\n")
	b.WriteString(renderField(fmt.Sprintf("Text %d/%d", len(m.text), aprs.MaxMessageLen),
		m.text, m.focus == fieldText))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(m.notice + "\n")
	}
	b.WriteString(labelStyle.Render("tab: switch field · enter: send · esc: quit"))
	b.WriteString("\n")

	return b.String()
}

func renderField(label, value string, focused bool) string {
	cursor := ""
	style := labelStyle
	if focused {
		cursor = "▌"
		style = activeStyle
	}
	return fmt.Sprintf("%s %s%s", style.Render(label+":"), value, cursor)
}

func renderMessage(m *state.Message) string {
	when := time.Unix(int64(m.TS), 0).Format("15:04")
	if m.Direction == state.DirectionRX {
		return fmt.Sprintf("%s %s %s", when,
			rxStyle.Render(fmt.Sprintf("%-9s →", m.From)), m.Text)
	}

	status := m.Status
	switch m.Status {
	case state.StatusAcked:
		status = ackStyle.Render("✓ acked")
	case state.StatusFailed:
		status = failStyle.Render("✗ failed")
	}
	return fmt.Sprintf("%s %s %s  [%s]", when,
		txStyle.Render(fmt.Sprintf("→ %-9s", m.To)), m.Text, status)
}

func main() {
	flag.Parse()

	m := model{client: apiclient.New(*serverURL)}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}
