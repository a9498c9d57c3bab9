// Package message defines the records exchanged between a tic-tac-toe client and server.
//
// Two records exist on the wire:
//
//   - Handshake: sent once by a client over the rendezvous channel. It carries the mark
//     assignment and the names of the two private channels the client created.
//   - Move: sent by the client as a request (row/col only) and by the server as a response
//     (status always meaningful, row/col naming the server's counter-move cell when one exists).
//
// The records are serialized by the codec layer and read/written as whole units by the
// protocol layer.
package message

import (
	"fmt"
	"strings"
)

// Mark is the symbol a player places on the board. The values are the character codes
// of the symbols so a raw dump of a handshake stays readable.
type Mark int32

const (
	MarkEmpty Mark = ' '
	MarkX     Mark = 'X'
	MarkO     Mark = 'O'
)

func (m Mark) String() string {
	switch m {
	case MarkEmpty:
		return " "
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return fmt.Sprintf("Mark(%d)", int32(m))
	}
}

// Valid reports whether m is a player mark (X or O).
func (m Mark) Valid() bool {
	return m == MarkX || m == MarkO
}

// Opponent returns the other player mark. MarkEmpty has no opponent and is returned as is.
func (m Mark) Opponent() Mark {
	switch m {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return m
	}
}

// ParseMark accepts "X"/"x"/"O"/"o".
func ParseMark(s string) (Mark, error) {
	switch s {
	case "X", "x":
		return MarkX, nil
	case "O", "o":
		return MarkO, nil
	}
	return MarkEmpty, fmt.Errorf("invalid mark %q: want X or O", s)
}

// Status is the outcome carried by a server response.
type Status int32

const (
	StatusOK         Status = 0
	StatusInvalid    Status = -1
	StatusTied       Status = 1
	StatusClientWins Status = 2
	StatusServerWins Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalid:
		return "INVALID"
	case StatusTied:
		return "TIED"
	case StatusClientWins:
		return "CLIENT_WINS"
	case StatusServerWins:
		return "SERVER_WINS"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// IsTerminal reports whether s ends the current round.
func (s Status) IsTerminal() bool {
	return s == StatusTied || s == StatusClientWins || s == StatusServerWins
}

// NoCell marks the row/col of a response that carries no server move.
const NoCell int32 = -1

// Move is a request (client → server) or a response (server → client).
//
//   - On request:  Row/Col name the cell the client wants; Status is ignored.
//   - On response: Status is always set; Row/Col name the server's counter-move,
//     or NoCell when the server did not move (INVALID, or a round the client ended).
type Move struct {
	Status Status
	Row    int32
	Col    int32
}

// HasCell reports whether the move names a cell.
func (m Move) HasCell() bool {
	return m.Row != NoCell && m.Col != NoCell
}

// Handshake is the registration record a client sends over the rendezvous channel.
// ClientIn is the channel the client reads (server → client); ClientOut is the
// channel the client writes (client → server).
type Handshake struct {
	ClientMark Mark
	ServerMark Mark
	ClientIn   string
	ClientOut  string
}

// Validate checks the mark assignment: both marks are drawn from {X, O} and distinct.
// Address limits are enforced by the protocol layer.
func (h *Handshake) Validate() error {
	if !h.ClientMark.Valid() || !h.ServerMark.Valid() {
		return fmt.Errorf("marks must be X or O, got client=%v server=%v", h.ClientMark, h.ServerMark)
	}
	if h.ClientMark == h.ServerMark {
		return fmt.Errorf("client and server marks must differ, both are %v", h.ClientMark)
	}
	if h.ClientIn == "" || h.ClientOut == "" {
		return fmt.Errorf("both channel addresses are required")
	}
	if strings.IndexByte(h.ClientIn, 0) >= 0 || strings.IndexByte(h.ClientOut, 0) >= 0 {
		return fmt.Errorf("channel addresses must not contain NUL bytes")
	}
	if h.ClientIn == h.ClientOut {
		return fmt.Errorf("channel addresses must differ, both are %q", h.ClientIn)
	}
	return nil
}
