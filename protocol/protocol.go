// Package protocol implements the record exchange of a tic-tac-toe session.
//
// Channels are FIFOs: byte streams without message boundaries. Records are therefore
// fixed-size (see codec) and every record is written with exactly one Write call. For the
// rendezvous channel, shared by all clients, the handshake is PipeBuf bytes so that the
// kernel delivers each one as an atomic unit and concurrent registrations never interleave.
//
// Session sequence:
//
//	client                          rendezvous                 server
//	  │ mkfifo in/out                   │                          │
//	  │── Handshake ───────────────────►│─────────────────────────►│ spawn session
//	  │                                                            │ open out (read), in (write)
//	  │── Move{row,col} ──────────── out ─────────────────────────►│ validate, counter-move
//	  │◄─ Move{status,row,col} ───── in ───────────────────────────│
//	  │   ... strictly alternating until the client closes out ... │
package protocol

import (
	"errors"
	"fmt"
	"io"
	"mini-ttt/codec"
	"mini-ttt/message"
	"path/filepath"
	"strconv"
)

// Sizes re-exported from the codec so callers don't need both packages.
const (
	PipeBuf       = codec.PipeBuf
	HandshakeSize = codec.HandshakeSize
	MoveSize      = codec.MoveSize
)

// DefaultName is the tag shared by the rendezvous and private channel names.
const DefaultName = "TTT"

// ErrBadHandshake is returned by ReadHandshake when a complete record arrived but its
// content is unusable. The stream is still aligned on a record boundary, so the reader
// may keep going.
var ErrBadHandshake = errors.New("bad handshake")

var binaryCodec = &codec.BinaryCodec{}

// DefaultRendezvous returns the well-known rendezvous path for name.
func DefaultRendezvous(name string) string {
	return "/tmp/TICTACTOE_" + name
}

// ChannelPaths returns the private channel names for one client identity.
// in carries server → client traffic, out carries client → server traffic.
func ChannelPaths(dir, name string, id int) (in, out string) {
	suffix := name + "_" + strconv.Itoa(id)
	return filepath.Join(dir, "fifo_rd_"+suffix), filepath.Join(dir, "fifo_wr_"+suffix)
}

// WriteHandshake validates h and writes it as one record.
func WriteHandshake(w io.Writer, h *message.Handshake) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	buf, err := binaryCodec.Encode(h)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	return writeRecord(w, buf)
}

// ReadHandshake reads exactly one handshake record from r.
// io.EOF is returned unchanged when r ends cleanly before a record starts.
func ReadHandshake(r io.Reader) (*message.Handshake, error) {
	buf := make([]byte, HandshakeSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &message.Handshake{}
	if err := binaryCodec.Decode(buf, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	return h, nil
}

// WriteMove writes m as one record.
func WriteMove(w io.Writer, m *message.Move) error {
	buf, err := binaryCodec.Encode(m)
	if err != nil {
		return err
	}
	return writeRecord(w, buf)
}

// ReadMove reads exactly one move record from r.
// io.EOF means the peer closed its end between records.
func ReadMove(r io.Reader) (*message.Move, error) {
	buf := make([]byte, MoveSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	m := &message.Move{}
	if err := binaryCodec.Decode(buf, m); err != nil {
		return nil, err
	}
	return m, nil
}

func writeRecord(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}
