// Package ui is the terminal front end of the client: a bubbletea program that moves
// a cursor over the mirrored board and plays the selected cell.
package ui

import (
	"context"
	"errors"
	"mini-ttt/client"
	"mini-ttt/game"
	"mini-ttt/message"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const continuePrompt = "Continue? (y/n)"

// Exchanger sends one move and returns the server's response.
type Exchanger interface {
	Exchange(ctx context.Context, row, col int32) (message.Move, error)
}

type replyMsg struct {
	req  message.Move
	resp message.Move
	err  error
}

// Model is the bubbletea model of one client session.
type Model struct {
	exchanger Exchanger
	mirror    *client.Mirror
	header    string
	spinner   spinner.Model

	row, col int32
	waiting  bool // a move is in flight; input other than quit is ignored
	prompt   bool // a round ended and the replay question is shown
	status   string
	err      error
}

func NewModel(ex Exchanger, clientMark message.Mark) *Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		exchanger: ex,
		mirror:    client.NewMirror(clientMark),
		header:    Header(clientMark),
		spinner:   s,
		row:       1,
		col:       1,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Err returns the error that ended the program, if any.
func (m *Model) Err() error {
	return m.err
}

// Board returns the mirrored board.
func (m *Model) Board() game.Board {
	return m.mirror.Board()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
			if errors.Is(msg.err, client.ErrServerGone) {
				m.status = "The server ended the game."
			} else {
				m.status = msg.err.Error()
			}
			return m, tea.Quit
		}
		out := m.mirror.Apply(msg.req, msg.resp)
		m.status = out.Text
		m.prompt = out.Over
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return m, tea.Quit
	}
	if m.waiting {
		return m, nil
	}

	if m.prompt {
		switch key {
		case "y", "Y":
			m.mirror.Reset()
			m.prompt = false
			m.status = ""
		case "n", "N":
			return m, tea.Quit
		}
		return m, nil
	}

	switch key {
	case "up", "k":
		m.row = max(m.row-1, 0)
	case "down", "j":
		m.row = min(m.row+1, game.BoardSize-1)
	case "left", "h":
		m.col = max(m.col-1, 0)
	case "right", "l":
		m.col = min(m.col+1, game.BoardSize-1)
	case " ", "enter":
		if !m.mirror.CanPlace(m.row, m.col) {
			m.status = "Cell taken"
			return m, nil
		}
		m.waiting = true
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, m.play(m.row, m.col))
	}
	return m, nil
}

func (m *Model) play(row, col int32) tea.Cmd {
	ex := m.exchanger
	return func() tea.Msg {
		req := message.Move{Row: row, Col: col}
		resp, err := ex.Exchange(context.Background(), row, col)
		return replyMsg{req: req, resp: resp, err: err}
	}
}

func (m *Model) View() string {
	cur := Cursor{Row: m.row, Col: m.col}
	switch {
	case m.waiting:
		return m.header + Render(m.mirror.Board(), "", cur) + "\n" + m.spinner.View() + " waiting for the server\n"
	case m.prompt:
		return m.header + Render(m.mirror.Board(), m.status+"  "+continuePrompt, cur)
	default:
		return m.header + Render(m.mirror.Board(), m.status, cur)
	}
}
