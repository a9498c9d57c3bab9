package game

import (
	"mini-ttt/message"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	C = message.MarkX
	S = message.MarkO
	E = message.MarkEmpty
)

// hasLine is a straightforward reference for Evaluate.
func hasLine(b *Board, mark message.Mark) bool {
	for i := 0; i < BoardSize; i++ {
		if b[i][0] == mark && b[i][1] == mark && b[i][2] == mark {
			return true
		}
		if b[0][i] == mark && b[1][i] == mark && b[2][i] == mark {
			return true
		}
	}
	if b[0][0] == mark && b[1][1] == mark && b[2][2] == mark {
		return true
	}
	return b[2][0] == mark && b[1][1] == mark && b[0][2] == mark
}

// TestEvaluateAllBoards walks all 3^9 boards.
func TestEvaluateAllBoards(t *testing.T) {
	marks := []message.Mark{E, C, S}
	total := 1
	for i := 0; i < BoardSize*BoardSize; i++ {
		total *= len(marks)
	}

	for n := 0; n < total; n++ {
		var b Board
		code := n
		for cell := 0; cell < BoardSize*BoardSize; cell++ {
			b[cell/BoardSize][cell%BoardSize] = marks[code%3]
			code /= 3
		}

		got := Evaluate(&b, C, S)
		clientLine, serverLine := hasLine(&b, C), hasLine(&b, S)

		switch {
		case clientLine && serverLine:
			if got != message.StatusClientWins && got != message.StatusServerWins {
				t.Fatalf("board\n%v\nboth own a line, got %v", b, got)
			}
		case clientLine:
			if got != message.StatusClientWins {
				t.Fatalf("board\n%v\nwant CLIENT_WINS, got %v", b, got)
			}
		case serverLine:
			if got != message.StatusServerWins {
				t.Fatalf("board\n%v\nwant SERVER_WINS, got %v", b, got)
			}
		case b.Full():
			if got != message.StatusTied {
				t.Fatalf("board\n%v\nwant TIED, got %v", b, got)
			}
		default:
			if got != message.StatusOK {
				t.Fatalf("board\n%v\nwant OK, got %v", b, got)
			}
		}
	}
}

func TestEvaluateLineOrder(t *testing.T) {
	// Any row crosses any column, so only parallel lines can have different owners.
	b := Board{
		{S, S, S},
		{C, C, C},
		{E, E, E},
	}
	assert.Equal(t, message.StatusServerWins, Evaluate(&b, C, S))

	b = Board{
		{E, E, E},
		{C, C, C},
		{S, S, S},
	}
	assert.Equal(t, message.StatusClientWins, Evaluate(&b, C, S))

	b = Board{
		{C, S, E},
		{C, S, E},
		{C, S, E},
	}
	assert.Equal(t, message.StatusClientWins, Evaluate(&b, C, S))
}

func TestValidate(t *testing.T) {
	b := NewBoard()
	b[1][1] = C

	cases := []struct {
		row, col int32
		want     message.Status
	}{
		{0, 0, message.StatusOK},
		{2, 2, message.StatusOK},
		{1, 1, message.StatusInvalid},
		{-1, 0, message.StatusInvalid},
		{0, -1, message.StatusInvalid},
		{3, 0, message.StatusInvalid},
		{0, 3, message.StatusInvalid},
		{100, 100, message.StatusInvalid},
	}
	for _, tc := range cases {
		before := b
		got := Validate(message.Move{Row: tc.row, Col: tc.col}, &b)
		assert.Equal(t, tc.want, got, "(%d,%d)", tc.row, tc.col)
		assert.Equal(t, before, b, "validate must not modify the board")
	}
}

func TestResetIdempotent(t *testing.T) {
	b := Board{
		{C, S, C},
		{E, S, E},
		{C, E, S},
	}
	b.Reset()
	once := b
	b.Reset()
	assert.Equal(t, once, b)
	assert.Equal(t, NewBoard(), b)
}

func TestFirstEmpty(t *testing.T) {
	b := NewBoard()
	row, col, err := FirstEmpty{}.CounterMove(&b, S)
	require.NoError(t, err)
	assert.Equal(t, [2]int32{0, 0}, [2]int32{row, col})

	b = Board{
		{C, S, C},
		{S, C, E},
		{E, E, E},
	}
	row, col, err = FirstEmpty{}.CounterMove(&b, S)
	require.NoError(t, err)
	assert.Equal(t, [2]int32{1, 2}, [2]int32{row, col})

	b = Board{
		{C, S, C},
		{S, C, S},
		{S, C, S},
	}
	_, _, err = FirstEmpty{}.CounterMove(&b, S)
	assert.ErrorIs(t, err, ErrNoMoveAvailable)
}

func TestRoundScenarioCounterMove(t *testing.T) {
	r := NewRound(C, S, nil)

	resp, err := r.Play(message.Move{Row: 1, Col: 1})
	require.NoError(t, err)
	assert.Equal(t, message.Move{Status: message.StatusOK, Row: 0, Col: 0}, resp)

	assert.Equal(t, Board{
		{S, E, E},
		{E, C, E},
		{E, E, E},
	}, r.Board())
}

func TestRoundScenarioOccupiedCell(t *testing.T) {
	r := NewRound(C, S, nil)
	_, err := r.Play(message.Move{Row: 1, Col: 1})
	require.NoError(t, err)
	before := r.Board()

	for _, req := range []message.Move{{Row: 1, Col: 1}, {Row: 0, Col: 0}, {Row: 3, Col: 0}} {
		resp, err := r.Play(req)
		require.NoError(t, err)
		assert.Equal(t, message.StatusInvalid, resp.Status)
		assert.False(t, resp.HasCell())
		assert.Equal(t, before, r.Board())
	}
}

func TestRoundScenarioClientWins(t *testing.T) {
	r := NewRound(C, S, nil)
	r.board = Board{
		{C, C, E},
		{S, S, E},
		{E, E, E},
	}

	resp, err := r.Play(message.Move{Row: 0, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, message.StatusClientWins, resp.Status)
	assert.False(t, resp.HasCell(), "server does not move after the client won")
	assert.Equal(t, NewBoard(), r.Board())
	assert.Equal(t, 1, r.Finished())
}

func TestRoundScenarioServerWins(t *testing.T) {
	r := NewRound(C, S, nil)
	r.board = Board{
		{E, S, S},
		{C, C, E},
		{C, E, E},
	}

	// (0,0) is the first empty cell after the client's move and completes row 0
	resp, err := r.Play(message.Move{Row: 2, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, message.Move{Status: message.StatusServerWins, Row: 0, Col: 0}, resp)
	assert.Equal(t, NewBoard(), r.Board())
}

func TestRoundScenarioTied(t *testing.T) {
	t.Run("client fills the last cell", func(t *testing.T) {
		r := NewRound(C, S, nil)
		r.board = Board{
			{C, S, C},
			{C, S, S},
			{S, C, E},
		}
		resp, err := r.Play(message.Move{Row: 2, Col: 2})
		require.NoError(t, err)
		assert.Equal(t, message.StatusTied, resp.Status)
		assert.False(t, resp.HasCell())
		assert.Equal(t, NewBoard(), r.Board())
	})

	t.Run("server fills the last cell", func(t *testing.T) {
		r := NewRound(C, S, nil)
		r.board = Board{
			{C, C, S},
			{S, S, C},
			{C, E, E},
		}
		resp, err := r.Play(message.Move{Row: 2, Col: 2})
		require.NoError(t, err)
		assert.Equal(t, message.Move{Status: message.StatusTied, Row: 2, Col: 1}, resp)
		assert.Equal(t, NewBoard(), r.Board())
	})
}

func TestRoundFullGameThenReplay(t *testing.T) {
	r := NewRound(message.MarkO, message.MarkX, nil)

	// Server answers (0,0) then (0,1), and completes row 0 with (0,2).
	for _, req := range []message.Move{{Row: 1, Col: 1}, {Row: 2, Col: 1}} {
		resp, err := r.Play(req)
		require.NoError(t, err)
		require.Equal(t, message.StatusOK, resp.Status)
	}
	last, err := r.Play(message.Move{Row: 2, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, message.Move{Status: message.StatusServerWins, Row: 0, Col: 2}, last)

	// A new round starts on the same Round without any reset call
	resp, err := r.Play(message.Move{Row: 1, Col: 1})
	require.NoError(t, err)
	assert.Equal(t, message.Move{Status: message.StatusOK, Row: 0, Col: 0}, resp)
}

func TestBoardString(t *testing.T) {
	b := Board{
		{C, E, E},
		{E, S, E},
		{E, E, E},
	}
	assert.Equal(t, "X|.|.\n.|O|.\n.|.|.", b.String())
}
