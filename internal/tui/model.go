// Package tui is a terminal chat screen for the course advisor.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/dialogue"
	"github.com/garyellow/course-advisor/internal/retrieval"
)

type speaker int

const (
	speakerUser speaker = iota
	speakerAdvisor
	speakerSystem
)

type entry struct {
	who  speaker
	text string
}

type replyMsg struct {
	reply dialogue.Reply
	err   error
}

type detailMsg struct {
	course      catalog.Course
	description string
	err         error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	client   Client
	timeout  time.Duration
	title    string
	input    textinput.Model
	viewport viewport.Model

	transcript []entry
	results    []retrieval.RankedResult
	cursor     int
	busy       bool
	status     string
	ready      bool
}

// New creates the chat screen. title is shown in the header.
func New(client Client, title string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What would you like to learn?"
	ti.CharLimit = 1000
	ti.Focus()

	return Model{
		client:     client,
		timeout:    timeout,
		title:      title,
		input:      ti,
		viewport:   viewport.New(0, 0),
		transcript: []entry{{speakerAdvisor, "👋 Hi! Tell me what you'd like to learn."}},
		status:     "enter send · ↑/↓ pick a course · tab details · esc quit",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := transcriptStyle.GetFrameSize()
		_, inputFrame := inputStyle.GetFrameSize()
		reserved := 1 + 1 + inputFrame + 1 // header, status, input line
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-frame)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyUp:
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.refresh()
				return m, nil
			}
		case tea.KeyDown:
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.refresh()
				return m, nil
			}
		case tea.KeyTab:
			if len(m.results) > 0 && !m.busy {
				m.busy = true
				m.status = "Fetching course details..."
				return m, m.describe(m.results[m.cursor].Course.ID)
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.transcript = append(m.transcript, entry{speakerSystem, "⚠️ " + msg.err.Error()})
			m.status = "Request failed, try again."
			m.refresh()
			return m, nil
		}
		m.transcript = append(m.transcript, entry{speakerAdvisor, msg.reply.Text})
		if msg.reply.Kind == dialogue.KindResults {
			m.results = msg.reply.Results
			m.cursor = 0
		}
		m.status = statusFor(msg.reply)
		m.refresh()
		return m, nil

	case detailMsg:
		m.busy = false
		if msg.err != nil {
			m.transcript = append(m.transcript, entry{speakerSystem, "⚠️ " + msg.err.Error()})
		} else {
			m.transcript = append(m.transcript, entry{speakerAdvisor, renderDetail(msg.course, msg.description)})
		}
		m.status = "tab details · ↑/↓ pick a course"
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return m, nil
	}
	m.input.Reset()
	m.transcript = append(m.transcript, entry{speakerUser, text})
	m.busy = true
	m.status = "Thinking..."
	m.refresh()
	return m, m.send(text)
}

func (m Model) send(text string) tea.Cmd {
	client, timeout := m.client, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reply, err := client.Send(ctx, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) describe(id int) tea.Cmd {
	client, timeout := m.client, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		course, text, err := client.Describe(ctx, id)
		return detailMsg{course: course, description: text, err: err}
	}
}

// refresh re-renders the transcript and scrolls to the newest line.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title)
	body := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	width := max(20, m.viewport.Width-2)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, e := range m.transcript {
		switch e.who {
		case speakerUser:
			b.WriteString(userStyle.Render("You") + "\n")
		case speakerAdvisor:
			b.WriteString(advisorStyle.Render("Advisor") + "\n")
		}
		b.WriteString(wrap.Render(emphasize(e.text)) + "\n\n")
	}
	if len(m.results) > 0 {
		b.WriteString(renderResults(m.results, m.cursor, width))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderResults(results []retrieval.RankedResult, cursor, width int) string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Courses (%d)", len(results))) + "\n")
	for i, r := range results {
		c := r.Course
		line := fmt.Sprintf("%2d. %s · %s · %s · %.1f%%",
			i+1, titleCase(c.Title), titleCase(c.Level), c.DisplayPrice(), r.MatchPercent)
		line = truncate(line, width-2)
		if i == cursor {
			b.WriteString(selectedStyle.Render("▸ "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func renderDetail(c catalog.Course, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", titleCase(c.Title))
	if description != "" {
		b.WriteString(description + "\n")
	}
	fmt.Fprintf(&b, "Subject: %s\nLevel: %s\nPrice: %s\nDuration: %s\nLectures: %d · Subscribers: %d",
		titleCase(c.Subject), titleCase(c.Level), c.DisplayPrice(), c.DisplayDuration(), c.Lectures, c.Subscribers)
	if published := c.DisplayPublished(); published != "" {
		b.WriteString("\nPublished: " + published)
	}
	if c.URL != "" {
		b.WriteString("\n" + c.URL)
	}
	return b.String()
}

func statusFor(reply dialogue.Reply) string {
	switch {
	case reply.Kind == dialogue.KindResults:
		return "↑/↓ pick a course · tab details · keep chatting to refine"
	case reply.Awaiting != dialogue.SlotNone:
		return "Answer the question above, or say \"reset\" to start over."
	default:
		return "enter send · esc quit"
	}
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	advisorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	boldStyle       = lipgloss.NewStyle().Bold(true)

	emphasisRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// emphasize renders **markdown bold** spans.
func emphasize(s string) string {
	return emphasisRe.ReplaceAllStringFunc(s, func(m string) string {
		return boldStyle.Render(strings.Trim(m, "*"))
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
