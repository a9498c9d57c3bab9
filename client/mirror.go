package client

import (
	"mini-ttt/game"
	"mini-ttt/message"
)

// Outcome is what the player is told after one exchange.
type Outcome struct {
	Status message.Status
	Text   string
	Over   bool // the round ended; the server has already cleared its board
}

var outcomeText = map[message.Status]string{
	message.StatusOK:         "",
	message.StatusInvalid:    "Invalid move",
	message.StatusClientWins: "You won!",
	message.StatusServerWins: "You lose!",
	message.StatusTied:       "Tied game",
}

// Mirror is the client's copy of the board, rebuilt from its own requests and the
// server's responses. The server's board is authoritative; the mirror exists to
// draw the board and to refuse clicks on occupied cells before they cost a round trip.
type Mirror struct {
	board      game.Board
	clientMark message.Mark
	serverMark message.Mark
}

func NewMirror(clientMark message.Mark) *Mirror {
	return &Mirror{
		board:      game.NewBoard(),
		clientMark: clientMark,
		serverMark: clientMark.Opponent(),
	}
}

// Board returns a copy of the mirrored board.
func (m *Mirror) Board() game.Board {
	return m.board
}

// CanPlace reports whether (row, col) is on the board and empty.
func (m *Mirror) CanPlace(row, col int32) bool {
	return game.InBounds(row, col) && m.board.At(row, col) == message.MarkEmpty
}

// Apply records the request and the server's response to it. Only OK and terminal
// responses place marks; anything else leaves the board alone. After a terminal
// outcome the mirror keeps the final position on screen until Reset.
func (m *Mirror) Apply(req, resp message.Move) Outcome {
	accepted := resp.Status == message.StatusOK || resp.Status.IsTerminal()
	if accepted && game.InBounds(req.Row, req.Col) {
		m.board.Apply(req, m.clientMark)
		if resp.HasCell() && game.InBounds(resp.Row, resp.Col) {
			m.board.Apply(resp, m.serverMark)
		}
	}

	text, ok := outcomeText[resp.Status]
	if !ok {
		text = "Unexpected reply " + resp.Status.String()
	}
	return Outcome{Status: resp.Status, Text: text, Over: resp.Status.IsTerminal()}
}

// Reset clears the mirror for a new round.
func (m *Mirror) Reset() {
	m.board.Reset()
}
