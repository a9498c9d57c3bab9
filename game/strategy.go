package game

import (
	"errors"
	"mini-ttt/message"
)

var ErrNoMoveAvailable = errors.New("no move available: board is full")

// Strategy picks the server's counter-move. The returned cell must be empty at call
// time. Implementations must not modify the board.
type Strategy interface {
	CounterMove(b *Board, serverMark message.Mark) (row, col int32, err error)
}

// FirstEmpty plays the first empty cell in row-major order.
type FirstEmpty struct{}

func (FirstEmpty) CounterMove(b *Board, _ message.Mark) (int32, int32, error) {
	for i := range b {
		for j := range b[i] {
			if b[i][j] == message.MarkEmpty {
				return int32(i), int32(j), nil
			}
		}
	}
	return message.NoCell, message.NoCell, ErrNoMoveAvailable
}
