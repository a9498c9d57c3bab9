package game

import "mini-ttt/message"

// lines lists every row, then every column, then both diagonals.
// Evaluate reports the first complete line in this order.
var lines = [8][BoardSize][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{2, 0}, {1, 1}, {0, 2}},
}

// Validate returns StatusOK if m names an in-bounds empty cell of b, StatusInvalid otherwise.
func Validate(m message.Move, b *Board) message.Status {
	if !InBounds(m.Row, m.Col) || b.At(m.Row, m.Col) != message.MarkEmpty {
		return message.StatusInvalid
	}
	return message.StatusOK
}

// Evaluate reports the state of b.
//
// The first complete line in row, column, diagonal order decides, server mark tested
// before client mark. A board where both players own a line never arises from
// alternating valid moves, so the order only shows on hand-built boards.
func Evaluate(b *Board, clientMark, serverMark message.Mark) message.Status {
	for _, line := range lines {
		switch lineOwner(b, line) {
		case message.MarkEmpty:
		case serverMark:
			return message.StatusServerWins
		case clientMark:
			return message.StatusClientWins
		}
	}

	if b.Full() {
		return message.StatusTied
	}
	return message.StatusOK
}

// lineOwner returns the mark filling every cell of line, or MarkEmpty.
func lineOwner(b *Board, line [BoardSize][2]int) message.Mark {
	first := b[line[0][0]][line[0][1]]
	for _, cell := range line[1:] {
		if b[cell[0]][cell[1]] != first {
			return message.MarkEmpty
		}
	}
	return first
}
