package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/dci-bomberman/internal/game"
)

// releaseAfter is how long a movement key counts as held. Terminals report
// key presses only, so a move stops when no repeat arrives in time.
const releaseAfter = 150 * time.Millisecond

// Client is the game connection the console drives.
type Client interface {
	PlayerID() string
	StateChan() <-chan game.Snapshot
	Errors() <-chan string
	SendActions(game.Actions) error
	SendStart() error
	SendPause() error
	SendResume() error
	SendFillBots() error
}

// stateUpdateMsg carries a new snapshot from the network client.
type stateUpdateMsg game.Snapshot

// serverErrMsg carries an error reported by the server.
type serverErrMsg string

// releaseMsg stops a movement unless a newer key press superseded it.
type releaseMsg struct{ seq int }

// errMsg carries an error.
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// Model is the Bubbletea model for the game client.
type Model struct {
	client   Client
	state    *game.Snapshot
	playerID string
	actions  game.Actions
	seq      int
	notice   string
	err      error
	quitting bool
}

// NewModel creates a new TUI model connected to the given client.
func NewModel(client Client) Model {
	return Model{
		client:   client,
		playerID: client.PlayerID(),
	}
}

// Init starts listening for state updates from the server.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.client), waitForError(m.client))
}

// Update handles incoming messages (key presses, state updates).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateUpdateMsg:
		snap := game.Snapshot(msg)
		m.state = &snap
		return m, waitForState(m.client)

	case releaseMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.actions = game.Actions{}
		m.send()
		return m, nil

	case serverErrMsg:
		m.notice = string(msg)
		return m, waitForError(m.client)

	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the current game state.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye! 👋\n"
	}

	if m.err != nil {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4444")).
			Render("Error: "+m.err.Error()) + "\n"
	}

	board := RenderBoard(m.state, m.playerID)
	hud := RenderHUD(m.state, m.playerID)
	if m.notice != "" {
		hud += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Render(m.notice)
	}

	// Layout: board on the left, HUD on the right
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		board,
		"  ",
		hud,
	) + "\n"
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "w":
		return m.move(game.Actions{MoveUp: true})
	case "down", "s":
		return m.move(game.Actions{MoveDown: true})
	case "left", "a":
		return m.move(game.Actions{MoveLeft: true})
	case "right", "d":
		return m.move(game.Actions{MoveRight: true})
	case " ":
		plant := m.actions
		plant.PlantBomb = true
		m.sendActions(plant)
	case "enter":
		m.report(m.client.SendStart())
	case "p":
		m.report(m.client.SendPause())
	case "r":
		m.report(m.client.SendResume())
	case "b":
		m.report(m.client.SendFillBots())
	}

	return m, nil
}

// move holds a direction until releaseAfter passes without a repeat.
func (m Model) move(a game.Actions) (tea.Model, tea.Cmd) {
	m.actions = a
	m.seq++
	m.send()
	seq := m.seq
	return m, tea.Tick(releaseAfter, func(time.Time) tea.Msg {
		return releaseMsg{seq: seq}
	})
}

func (m *Model) send() {
	m.sendActions(m.actions)
}

func (m *Model) sendActions(a game.Actions) {
	m.report(m.client.SendActions(a))
}

func (m *Model) report(err error) {
	if err != nil {
		m.notice = err.Error()
	}
}

// waitForState returns a Cmd that waits for the next state update from the server.
func waitForState(client Client) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-client.StateChan()
		if !ok {
			return errMsg{err: fmt.Errorf("server connection closed")}
		}
		return stateUpdateMsg(state)
	}
}

// waitForError returns a Cmd that waits for the next server error message.
func waitForError(client Client) tea.Cmd {
	return func() tea.Msg {
		return serverErrMsg(<-client.Errors())
	}
}
