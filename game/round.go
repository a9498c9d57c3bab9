package game

import (
	"fmt"
	"mini-ttt/message"
)

// Round runs the per-session game state machine:
//
//	AwaitingClientMove
//	  ├─ invalid ──────────────────────────────► INVALID, stay
//	  └─ valid → apply → evaluate
//	        ├─ terminal ───────────────────────► CLIENT_WINS | TIED, reset
//	        └─ counter-move → apply → evaluate
//	              ├─ terminal ─────────────────► SERVER_WINS | TIED, reset
//	              └─ ──────────────────────────► OK, await next move
//
// Any terminal outcome clears the board, so the client can start a new round
// without a new handshake.
type Round struct {
	board      Board
	clientMark message.Mark
	serverMark message.Mark
	strategy   Strategy
	finished   int
}

// NewRound returns a round with an empty board. A nil strategy means FirstEmpty.
func NewRound(clientMark, serverMark message.Mark, strategy Strategy) *Round {
	if strategy == nil {
		strategy = FirstEmpty{}
	}
	return &Round{
		board:      NewBoard(),
		clientMark: clientMark,
		serverMark: serverMark,
		strategy:   strategy,
	}
}

// Play applies the client's request and returns the server's response.
// The only error is a strategy failure, which leaves the board unchanged from
// after the client's move.
func (r *Round) Play(req message.Move) (message.Move, error) {
	resp := message.Move{Row: message.NoCell, Col: message.NoCell}

	if resp.Status = Validate(req, &r.board); resp.Status != message.StatusOK {
		return resp, nil
	}
	r.board.Apply(req, r.clientMark)

	if resp.Status = Evaluate(&r.board, r.clientMark, r.serverMark); resp.Status == message.StatusOK {
		row, col, err := r.strategy.CounterMove(&r.board, r.serverMark)
		if err != nil {
			return message.Move{}, fmt.Errorf("counter-move: %w", err)
		}
		resp.Row, resp.Col = row, col
		r.board.Apply(resp, r.serverMark)
		resp.Status = Evaluate(&r.board, r.clientMark, r.serverMark)
	}

	if resp.Status.IsTerminal() {
		r.board.Reset()
		r.finished++
	}
	return resp, nil
}

// Board returns a copy of the current board.
func (r *Round) Board() Board {
	return r.board
}

// Finished returns how many rounds reached a terminal outcome.
func (r *Round) Finished() int {
	return r.finished
}
