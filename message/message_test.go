package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeValidate(t *testing.T) {
	cases := []struct {
		name    string
		hs      Handshake
		wantErr bool
	}{
		{"x vs o", Handshake{MarkX, MarkO, "/tmp/in", "/tmp/out"}, false},
		{"o vs x", Handshake{MarkO, MarkX, "/tmp/in", "/tmp/out"}, false},
		{"same marks", Handshake{MarkX, MarkX, "/tmp/in", "/tmp/out"}, true},
		{"empty mark", Handshake{MarkEmpty, MarkO, "/tmp/in", "/tmp/out"}, true},
		{"garbage mark", Handshake{Mark(7), MarkO, "/tmp/in", "/tmp/out"}, true},
		{"missing in", Handshake{MarkX, MarkO, "", "/tmp/out"}, true},
		{"same channel", Handshake{MarkX, MarkO, "/tmp/a", "/tmp/a"}, true},
		{"nul in address", Handshake{MarkX, MarkO, "/tmp/a\x00b", "/tmp/out"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.hs.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusOK.IsTerminal())
	assert.False(t, StatusInvalid.IsTerminal())
	assert.True(t, StatusTied.IsTerminal())
	assert.True(t, StatusClientWins.IsTerminal())
	assert.True(t, StatusServerWins.IsTerminal())
}

func TestParseMark(t *testing.T) {
	m, err := ParseMark("o")
	require.NoError(t, err)
	assert.Equal(t, MarkO, m)
	assert.Equal(t, MarkX, m.Opponent())

	_, err = ParseMark("Z")
	assert.Error(t, err)
}

func TestMoveHasCell(t *testing.T) {
	assert.True(t, Move{Status: StatusOK, Row: 0, Col: 0}.HasCell())
	assert.False(t, Move{Status: StatusInvalid, Row: NoCell, Col: NoCell}.HasCell())
}
