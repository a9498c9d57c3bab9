// Package game is the board and rules engine of a single tic-tac-toe session.
//
// Nothing here is shared: every server session owns one Round, and every client keeps
// its own mirror Board. The package does no I/O.
package game

import (
	"mini-ttt/message"
	"strings"
)

const BoardSize = 3

// Board is a 3×3 grid of marks. The zero value is NOT empty (MarkEmpty is ' '),
// use NewBoard or Reset.
type Board [BoardSize][BoardSize]message.Mark

// NewBoard returns an all-empty board.
func NewBoard() Board {
	var b Board
	b.Reset()
	return b
}

// Reset sets every cell to MarkEmpty.
func (b *Board) Reset() {
	for i := range b {
		for j := range b[i] {
			b[i][j] = message.MarkEmpty
		}
	}
}

// InBounds reports whether (row, col) names a cell.
func InBounds(row, col int32) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// At returns the mark at (row, col). The caller must check bounds.
func (b *Board) At(row, col int32) message.Mark {
	return b[row][col]
}

// Apply places mark on the cell named by m. m must have been validated.
func (b *Board) Apply(m message.Move, mark message.Mark) {
	b[m.Row][m.Col] = mark
}

// Full reports whether no empty cell remains.
func (b *Board) Full() bool {
	for i := range b {
		for j := range b[i] {
			if b[i][j] == message.MarkEmpty {
				return false
			}
		}
	}
	return true
}

// String draws the board as three rows of marks separated by '|', empty cells as '.'.
func (b Board) String() string {
	var s strings.Builder
	for i, row := range b {
		for j, cell := range row {
			if j > 0 {
				s.WriteByte('|')
			}
			if cell == message.MarkEmpty {
				s.WriteByte('.')
			} else {
				s.WriteString(cell.String())
			}
		}
		if i < BoardSize-1 {
			s.WriteByte('\n')
		}
	}
	return s.String()
}
