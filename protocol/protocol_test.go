package protocol

import (
	"bytes"
	"errors"
	"io"
	"mini-ttt/message"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingWriter records how many Write calls a record takes.
type countingWriter struct {
	bytes.Buffer
	calls int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.calls++
	return w.Buffer.Write(p)
}

func testHandshake() *message.Handshake {
	in, out := ChannelPaths("/tmp", DefaultName, 4242)
	return &message.Handshake{
		ClientMark: message.MarkX,
		ServerMark: message.MarkO,
		ClientIn:   in,
		ClientOut:  out,
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	var buf countingWriter
	original := testHandshake()

	require.NoError(t, WriteHandshake(&buf, original))
	assert.Equal(t, 1, buf.calls, "handshake must go out in a single write")
	assert.Equal(t, HandshakeSize, buf.Len())

	decoded, err := ReadHandshake(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestMoveRoundTrip(t *testing.T) {
	var buf countingWriter
	original := &message.Move{Status: message.StatusClientWins, Row: message.NoCell, Col: message.NoCell}

	require.NoError(t, WriteMove(&buf, original))
	assert.Equal(t, 1, buf.calls)

	decoded, err := ReadMove(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestReadConsecutiveHandshakes(t *testing.T) {
	var buf bytes.Buffer
	first := testHandshake()
	second := testHandshake()
	second.ClientIn, second.ClientOut = ChannelPaths("/tmp", DefaultName, 7)

	require.NoError(t, WriteHandshake(&buf, first))
	require.NoError(t, WriteHandshake(&buf, second))

	got1, err := ReadHandshake(&buf)
	require.NoError(t, err)
	got2, err := ReadHandshake(&buf)
	require.NoError(t, err)
	assert.Equal(t, first, got1)
	assert.Equal(t, second, got2)

	_, err = ReadHandshake(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteHandshakeRejectsSameMarks(t *testing.T) {
	h := testHandshake()
	h.ServerMark = h.ClientMark

	var buf bytes.Buffer
	err := WriteHandshake(&buf, h)
	assert.ErrorIs(t, err, ErrBadHandshake)
	assert.Zero(t, buf.Len(), "nothing may be written for a rejected handshake")
}

func TestReadHandshakeBadContentKeepsAlignment(t *testing.T) {
	var buf bytes.Buffer

	// A full-size record of zeros: decodes, but marks are invalid
	buf.Write(make([]byte, HandshakeSize))
	good := testHandshake()
	require.NoError(t, WriteHandshake(&buf, good))

	_, err := ReadHandshake(&buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadHandshake))

	got, err := ReadHandshake(&buf)
	require.NoError(t, err)
	assert.Equal(t, good, got)
}

func TestReadMoveTruncated(t *testing.T) {
	_, err := ReadMove(bytes.NewReader([]byte{0, 0, 0, 0, 0}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestChannelPaths(t *testing.T) {
	in, out := ChannelPaths("/tmp", "TTT", 99)
	assert.Equal(t, "/tmp/fifo_rd_TTT_99", in)
	assert.Equal(t, "/tmp/fifo_wr_TTT_99", out)
	assert.Equal(t, "/tmp/TICTACTOE_TTT", DefaultRendezvous("TTT"))
}
