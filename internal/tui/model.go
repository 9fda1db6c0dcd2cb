package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/command-deck/internal"
)

// Deck is the session the UI drives. *internal.Controller implements it.
type Deck interface {
	SelectAgent(id internal.AgentID)
	Submit(text string) error
	Approve(id internal.AssetID, assetType string)
	LaunchIntegration()
	Views() <-chan internal.View
}

// Options configures the UI
type Options struct {
	// ServerURL resolves relative image references
	ServerURL string
	Now       func() time.Time
}

const taskPanelWidth = 42

type viewMsg struct {
	view internal.View
}

// Model is the Bubble Tea model of the deck
type Model struct {
	deck Deck
	opts Options
	keys KeyMap

	view       internal.View
	ready      bool
	taskCursor int
	notice     string

	width  int
	height int

	input        textinput.Model
	conversation viewport.Model
	spinner      spinner.Model
	help         help.Model

	theme theme
}

// NewModel creates the UI for deck
func NewModel(deck Deck, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Message the active agent..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	conv := viewport.New(0, 0)
	conv.MouseWheelEnabled = true

	return Model{
		deck:         deck,
		opts:         opts,
		keys:         DefaultKeyMap(),
		input:        input,
		conversation: conv,
		spinner:      sp,
		help:         help.New(),
		theme:        newTheme(),
	}
}

func waitForView(ch <-chan internal.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return viewMsg{view: v}
	}
}

// Init starts listening for views
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForView(m.deck.Views()),
	)
}

// Update handles one message
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshConversation(true)
		return m, nil

	case viewMsg:
		grew := len(msg.view.Conversation) != len(m.view.Conversation) ||
			msg.view.Active.ID != m.view.Active.ID ||
			msg.view.Typing != m.view.Typing
		m.view = msg.view
		m.ready = true
		if m.taskCursor >= len(m.view.Tasks) {
			m.taskCursor = max(len(m.view.Tasks)-1, 0)
		}
		m.refreshConversation(grew)
		return m, waitForView(m.deck.Views())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.conversation, cmd = m.conversation.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextAgent):
		m.deck.SelectAgent(m.neighbourAgent(1))
		return m, nil

	case key.Matches(msg, m.keys.PrevAgent):
		m.deck.SelectAgent(m.neighbourAgent(-1))
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.view.Typing {
			// one reply per agent at a time; keep the draft
			m.notice = fmt.Sprintf("Waiting for %s...", m.view.Active.Name)
			return m, nil
		}
		if err := m.deck.Submit(m.input.Value()); err != nil {
			var verr *internal.ValidationError
			if errors.As(err, &verr) {
				m.notice = "Nothing to send."
			} else {
				m.notice = err.Error()
			}
			return m, nil
		}
		m.notice = ""
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.NextTask):
		if n := len(m.view.Tasks); n > 0 {
			m.taskCursor = (m.taskCursor + 1) % n
		}
		return m, nil

	case key.Matches(msg, m.keys.Approve):
		task, ok := m.selectedTask()
		switch {
		case !ok:
			m.notice = "No task selected."
		case task.Approving:
			m.notice = "Approval already in progress."
		case !task.AwaitingApproval:
			m.notice = fmt.Sprintf("%s is not awaiting approval.", task.Name)
		default:
			m.notice = ""
			m.deck.Approve(task.AssetID, task.AssetType)
		}
		return m, nil

	case key.Matches(msg, m.keys.Integrate):
		if m.view.Integration != internal.IntegrationIdle {
			m.notice = "Integration is " + string(m.view.Integration) + "."
			return m, nil
		}
		m.notice = ""
		m.deck.LaunchIntegration()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDn):
		var cmd tea.Cmd
		m.conversation, cmd = m.conversation.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// neighbourAgent returns the department step positions away from the active one
func (m Model) neighbourAgent(step int) internal.AgentID {
	agents := m.view.Agents
	if len(agents) == 0 {
		return m.view.Active.ID
	}
	idx := 0
	for i, a := range agents {
		if a.ID == m.view.Active.ID {
			idx = i
			break
		}
	}
	idx = (idx + step + len(agents)) % len(agents)
	return agents[idx].ID
}

func (m Model) selectedTask() (internal.TaskView, bool) {
	if m.taskCursor < 0 || m.taskCursor >= len(m.view.Tasks) {
		return internal.TaskView{}, false
	}
	return m.view.Tasks[m.taskCursor], true
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	helpHeight := lipgloss.Height(m.help.View(m.keys))
	// header, tabs, input panel (3), notice, help
	chrome := 1 + 1 + 3 + 1 + helpHeight + 2
	m.conversation.Width = max(m.width-taskPanelWidth-4, 20)
	m.conversation.Height = max(m.height-chrome, 3)
	m.input.Width = max(m.width-8, 10)
	m.help.Width = m.width
}

func (m *Model) refreshConversation(follow bool) {
	m.conversation.SetContent(m.renderConversation())
	if follow {
		m.conversation.GotoBottom()
	}
}

func (m Model) renderConversation() string {
	width := m.conversation.Width
	if width <= 0 {
		width = 80
	}
	body := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, msg := range m.view.Conversation {
		label := internal.SenderName(m.view.Active.ID, msg.Sender)
		style, ok := m.theme.sender[msg.Sender]
		if !ok {
			style = m.theme.muted
		}
		b.WriteString(style.Render(label))
		b.WriteString(" ")
		b.WriteString(m.theme.muted.Render(msg.Timestamp))
		b.WriteString("\n")
		b.WriteString(body.Render(internal.RenderContent(msg)))
		b.WriteString("\n\n")
	}
	if m.view.Typing {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.theme.muted.Render(m.view.Active.Name + " is typing..."))
	}
	return b.String()
}

// View renders the screen
func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " Starting Command Deck..."
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.title.Render("Command Deck"),
		"  ",
		m.renderStatus(),
		"  ",
		m.renderIntegration(),
	)

	var tabs []string
	for _, a := range m.view.Agents {
		if a.ID == m.view.Active.ID {
			tabs = append(tabs, m.theme.tabActive.Render(a.Name))
		} else {
			tabs = append(tabs, m.theme.tabInactive.Render(a.Name))
		}
	}

	conv := m.theme.panel.Render(m.conversation.View())
	tasks := m.theme.panel.Width(taskPanelWidth).Render(m.renderTasks())
	body := lipgloss.JoinHorizontal(lipgloss.Top, conv, tasks)

	input := m.theme.inputPanel.Render(m.input.View())
	notice := m.theme.warn.Render(m.notice)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		body,
		input,
		notice,
		m.help.View(m.keys),
	)
}

func (m Model) renderStatus() string {
	var dot string
	switch m.view.Status {
	case internal.StatusOnline:
		dot = m.theme.online.Render("● online")
	case internal.StatusReconnecting:
		dot = m.theme.warn.Render("● reconnecting")
	default:
		dot = m.theme.offline.Render("● offline")
	}
	detail := m.view.StatusDetail
	if m.view.Faults > 0 {
		detail += fmt.Sprintf(" (%d bad frames)", m.view.Faults)
	}
	return dot + " " + m.theme.muted.Render(detail)
}

func (m Model) renderIntegration() string {
	switch m.view.Integration {
	case internal.IntegrationRunning:
		return m.spinner.View() + " " + m.theme.warn.Render("integrating...")
	case internal.IntegrationCoolingDown:
		return m.theme.muted.Render("integration cooling down")
	default:
		return m.theme.muted.Render("ctrl+p: integrate & playtest")
	}
}

func (m Model) renderTasks() string {
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render(fmt.Sprintf("Tasks (%d)", len(m.view.Tasks))))
	b.WriteString("\n")
	if len(m.view.Tasks) == 0 {
		b.WriteString(m.theme.muted.Render("No tasks yet."))
		return b.String()
	}

	now := m.opts.Now()
	for i, t := range m.view.Tasks {
		marker := "  "
		name := t.Name
		if i == m.taskCursor {
			marker = m.theme.selected.Render("▸ ")
			name = m.theme.selected.Render(name)
		}
		status := t.Status
		if status == "" {
			status = "PENDING"
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker, name, m.theme.muted.Render("#"+string(t.AssetID)))
		fmt.Fprintf(&b, "    %s", m.theme.statusStyle(t.Status).Render(status))
		switch {
		case t.Approving:
			b.WriteString(" " + m.spinner.View() + " approving")
		case t.AwaitingApproval:
			b.WriteString(" " + m.theme.online.Render("ready for approval"))
		}
		b.WriteString("\n")
		if t.Message != "" {
			b.WriteString("    " + m.theme.muted.Render(t.Message) + "\n")
		}
		if ref := t.ImageRef(m.opts.ServerURL, now); ref != "" && i == m.taskCursor {
			b.WriteString("    " + m.theme.muted.Render(ref) + "\n")
		}
	}
	return b.String()
}

// Run shows the UI until the operator quits or ctx is cancelled
func Run(ctx context.Context, deck Deck, opts Options) error {
	p := tea.NewProgram(NewModel(deck, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
