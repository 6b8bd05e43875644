package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marketbridge/chat-sdk/pkg/client"
	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/encoding"
)

const helpText = `Commands:
  /join <room>  switch to a room (announces and subscribes)
  /leave        leave the current room
  /read         mark the current room as read
  /unread       show the unread inbox count
  /status       show the connection state
  /quit         exit
Any other line is sent to the current room.`

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	selfStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	senderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// model is the bubbletea model of the terminal client.
type model struct {
	client *client.Client
	events *eventQueue
	userID string
	server string

	room  string
	state core.ConnectionState
	lines []string

	viewport viewport.Model
	input    textinput.Model
	ready    bool
}

func newModel(c *client.Client, userID, room, server string, events *eventQueue) model {
	input := textinput.New()
	input.Placeholder = "type a message or /help"
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	return model{
		client: c,
		events: events,
		userID: userID,
		server: server,
		room:   room,
		state:  c.State(),
		lines:  strings.Split(helpText, "\n"),
		input:  input,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.events.wait())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if quit := m.execute(line); quit {
				return m, tea.Quit
			}
			m.refresh()
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := max(msg.Height-3, 3)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case roomMsg:
		m.showMessage(msg.env)
		m.refresh()
		return m, m.events.wait()

	case stateMsg:
		m.applyState(msg.event)
		m.refresh()
		return m, m.events.wait()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if !m.ready {
		return "connecting to " + m.server + "..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.viewport.View(),
		m.input.View(),
	)
}

func (m model) header() string {
	state := offlineStyle.Render(m.state.String())
	if m.state == core.StateConnected {
		state = connectedStyle.Render(m.state.String())
	}
	room := m.room
	if room == "" {
		room = "-"
	}
	return headerStyle.Render(fmt.Sprintf("%s @ %s", m.userID, m.server)) +
		fmt.Sprintf("  [%s]  room %s  unread %d", state, room, m.client.UnreadCount())
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) appendLine(line string) {
	m.lines = append(m.lines, line)
}

// applyState records a state transition. Entering Connected re-subscribes
// the current room: the client restores only the inbox on its own.
func (m *model) applyState(e core.StateEvent) {
	m.state = e.NewState
	line := fmt.Sprintf("* %s", e.NewState)
	if e.Error != nil {
		line += ": " + e.Error.Error()
	}
	m.appendLine(noticeStyle.Render(line))

	if e.NewState == core.StateConnected && m.room != "" {
		m.client.SubscribeRoom(m.room)
	}
}

// showMessage renders room messages of the current room; the listener sees
// every subscribed room.
func (m *model) showMessage(env *encoding.Envelope) {
	if env.RoomID.String() != m.room {
		return
	}
	msg, err := env.ChatMessage()
	if err != nil {
		return
	}
	switch msg.Type {
	case encoding.TypeJoin, encoding.TypeLeave:
		m.appendLine(noticeStyle.Render("-- " + msg.Content))
	default:
		style := senderStyle
		if msg.SenderID.String() == m.userID {
			style = selfStyle
		}
		m.appendLine(style.Render(msg.SenderID.String()+":") + " " + msg.Content)
	}
}
