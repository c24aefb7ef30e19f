// Package tui is an interactive terminal chat client over the chat service,
// for local use without the HTTP layer.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/service"
)

// ChatPort is the TUI-facing subset of the chat service.
type ChatPort interface {
	Ask(ctx context.Context, question string) (*service.Answer, error)
}

type exchange struct {
	question string
	answer   string
	sources  []string
	err      error
}

// answerMsg delivers a completed Ask back to the event loop.
type answerMsg struct {
	question string
	answer   *service.Answer
	err      error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service  ChatPort
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	status   string
	ready    bool
	waiting  bool
}

// New creates a new chat model.
func New(svc ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: svc, input: ti, viewport: vp, status: "Ready. Ask away."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// ask runs the question off the event loop and reports back as an answerMsg.
func ask(svc ChatPort, question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := svc.Ask(context.Background(), question)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case answerMsg:
		m.waiting = false
		ex := exchange{question: msg.question}
		if msg.err != nil {
			ex.err = msg.err
			m.status = "Error. Ask again or Ctrl+C to quit."
		} else {
			ex.answer = msg.answer.Text
			for _, r := range msg.answer.Sources {
				ex.sources = append(ex.sources, fmt.Sprintf("%.3f %s", r.Score, r.Chunk.ID))
			}
			m.status = "Ready."
		}
		m.history = append(m.history, ex)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				break
			}
			m.input.SetValue("")
			m.status = "Thinking..."
			m.waiting = true
			// The provider call can take the full generation timeout; run it
			// off the event loop so the UI keeps rendering.
			return m, ask(m.service, q)
		case "up":
			m.viewport.ScrollUp(1)
			return m, nil
		case "down":
			m.viewport.ScrollDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("ragchat")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "No messages yet."
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render("Error: " + ex.err.Error()))
			continue
		}
		b.WriteString(ex.answer)
		if len(ex.sources) > 0 {
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("sources: " + strings.Join(ex.sources, ", ")))
		}
	}
	return b.String()
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
