// Package tui implements the interactive terminal chat over the agent.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"minisearch/internal/agent"
)

// TurnRunner is the slice of the agent the chat needs.
type TurnRunner interface {
	RunSafe(ctx context.Context, query string) agent.Response
}

type Options struct {
	Agent  TurnRunner
	Model  string
	DBPath string
}

// Run starts the full-screen chat and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(initialModel(ctx, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type answerMsg struct {
	response agent.Response
	quit     bool
	clear    bool
	help     bool
}

type chatModel struct {
	agent     TurnRunner
	ctx       context.Context
	modelName string
	viewport  viewport.Model
	textInput textinput.Model
	spinner   spinner.Model
	messages  []string
	banner    []string
	isLoading bool
	ready     bool
	width     int
	height    int
}

func initialModel(ctx context.Context, opts Options) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about a field, category or encoding, or type /help..."
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 80

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(clrBrand)

	msgs := startupBanner(opts.Model, opts.DBPath)

	return chatModel{
		agent:     opts.Agent,
		ctx:       ctx,
		modelName: opts.Model,
		textInput: ti,
		spinner:   s,
		messages:  msgs,
		banner:    append([]string(nil), msgs...),
	}
}

func startupBanner(modelName, dbPath string) []string {
	lines := []string{
		brandStyle.Render("minisearch") + mutedStyle.Render(" · UK Biobank field dictionary"),
	}
	if modelName != "" {
		lines = append(lines, dim("model: "+modelName))
	}
	if dbPath != "" {
		lines = append(lines, dim("dictionary: "+dbPath))
	}
	lines = append(lines, dim("Ask in English or Chinese. /help for commands."))
	return lines
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}

			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.SetValue("")

			m.messages = append(m.messages, prompt()+input)
			m.isLoading = true
			m.refreshViewport()

			return m, tea.Batch(m.processInputCmd(input), m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.applyWindowSize(msg.Width, msg.Height)

	case answerMsg:
		m.isLoading = false
		if msg.quit {
			return m, tea.Quit
		}
		if msg.clear {
			m.messages = append([]string(nil), m.banner...)
			m.refreshViewport()
			return m, nil
		}
		if msg.help {
			m.messages = append(m.messages, formatHelp())
			m.refreshViewport()
			return m, nil
		}
		if msg.response.OK {
			m.messages = append(m.messages, msg.response.Answer)
		} else {
			m.messages = append(m.messages, errLinef("%s", msg.response.Message))
		}
		m.refreshViewport()
		return m, nil
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.isLoading {
		b.WriteString(m.spinner.View() + " ")
	} else {
		b.WriteString(prompt())
	}
	b.WriteString(m.textInput.View())
	b.WriteString("\n")
	b.WriteString(dim("/help commands · esc quits"))
	return b.String()
}

func (m *chatModel) refreshViewport() {
	m.viewport.SetContent(strings.Join(m.messages, "\n\n"))
	m.viewport.GotoBottom()
}

func (m *chatModel) applyWindowSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	m.width = width
	m.height = height

	vpWidth := maxInt(width-2, 1)
	m.textInput.Width = maxInt(width-16, 1)

	reservedHeight := 2 // input row + status row
	vpHeight := maxInt(height-reservedHeight, 1)

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.viewport.SetContent(strings.Join(m.messages, "\n\n"))
		m.ready = true
		return
	}

	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
}

func (m *chatModel) processInputCmd(input string) tea.Cmd {
	return func() tea.Msg {
		switch strings.ToLower(input) {
		case "/quit", "/exit":
			return answerMsg{quit: true}
		case "/clear":
			return answerMsg{clear: true}
		case "/help":
			return answerMsg{help: true}
		}
		return answerMsg{response: m.agent.RunSafe(m.ctx, input)}
	}
}

func formatHelp() string {
	var b strings.Builder
	b.WriteString(brandStyle.Render("Commands:\n"))
	fmt.Fprintf(&b, "  %s  %s\n", keywordStyle.Render("/help"), mutedStyle.Render("Show help"))
	fmt.Fprintf(&b, "  %s  %s\n", keywordStyle.Render("/clear"), mutedStyle.Render("Clear chat history"))
	fmt.Fprintf(&b, "  %s  %s\n", keywordStyle.Render("/quit"), mutedStyle.Render("Exit"))
	b.WriteString(dim("  Any other text is answered by the model using the dictionary"))
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
