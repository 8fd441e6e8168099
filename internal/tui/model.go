// Package tui is the interactive terminal chat over the pipeline.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bull/localrag/internal/answer"
)

// Answerer is the TUI-facing subset of the pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string) (*answer.Answer, error)
}

// maxShownSources caps the sources listed under an answer.
const maxShownSources = 3

type turn struct {
	question string
	answer   *answer.Answer
	err      error
}

// answerMsg carries a finished pipeline call back into Update.
type answerMsg struct {
	question string
	answer   *answer.Answer
	err      error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	service  Answerer
	title    string
	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	pending  string
	status   string
	ready    bool
}

// New creates a chat model. ctx bounds every pipeline call the model makes.
func New(ctx context.Context, service Answerer, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (/clear, /quit)"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		service:  service,
		title:    title,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // title and spacer, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = ""
		m.turns = append(m.turns, turn{question: msg.question, answer: msg.answer, err: msg.err})
		switch {
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
		default:
			m.status = fmt.Sprintf("%s in %s", msg.answer.Kind, msg.answer.Elapsed.Round(10*time.Millisecond))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	switch {
	case q == "":
		return m, nil
	case q == "/quit" || q == "/exit":
		return m, tea.Quit
	case q == "/clear":
		m.turns = nil
		m.input.Reset()
		m.status = "History cleared."
		m.refresh()
		return m, nil
	case m.pending != "":
		m.status = "Still answering the previous question..."
		return m, nil
	}

	m.input.Reset()
	m.pending = q
	m.status = "Thinking..."
	m.refresh()
	return m, m.ask(q)
}

// ask runs the pipeline off the UI goroutine.
func (m Model) ask(q string) tea.Cmd {
	ctx, service := m.ctx, m.service
	return func() tea.Msg {
		ans, err := service.Answer(ctx, q)
		return answerMsg{question: q, answer: ans, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := titleStyle.Render(m.title)
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return title + "\n\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.turns) == 0 && m.pending == "" {
		return dimStyle.Render("No questions yet.")
	}

	var b strings.Builder
	for _, t := range m.turns {
		b.WriteString(questionStyle.Render("You: " + t.question))
		b.WriteString("\n")
		if t.err != nil {
			b.WriteString(errorStyle.Render("Error: " + t.err.Error()))
		} else {
			b.WriteString(renderAnswer(t.answer))
		}
		b.WriteString("\n\n")
	}
	if m.pending != "" {
		b.WriteString(questionStyle.Render("You: " + m.pending))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("..."))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAnswer(a *answer.Answer) string {
	var b strings.Builder
	text := a.Text
	if a.Kind == answer.KindGenerationFailed {
		text = errorStyle.Render("Generation failed: " + text)
	}
	b.WriteString(text)

	if len(a.Sources) > 0 {
		shown := a.Sources
		if len(shown) > maxShownSources {
			shown = shown[:maxShownSources]
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Sources: " + strings.Join(shown, ", ")))
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
