package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"mini-ttt/message"
	"strings"
)

// Record layout. Every field is a big-endian int32 or a NUL-padded byte string;
// there is no length prefix, so both ends must agree on these sizes exactly.
//
//	Move (12 bytes):
//	0        4        8        12
//	┌────────┬────────┬────────┐
//	│ status │  row   │  col   │
//	└────────┴────────┴────────┘
//
//	Handshake (PipeBuf = 4096 bytes):
//	0      4      8              8+AddrSize          PipeBuf
//	┌──────┬──────┬──────────────┬──────────────────┐
//	│cmark │smark │ client_in    │ client_out       │
//	└──────┴──────┴──────────────┴──────────────────┘
const (
	// PipeBuf is the largest write the kernel guarantees to deliver atomically on a pipe.
	PipeBuf = 4096
	// AddrSize is the fixed width of each channel address, chosen so the whole
	// handshake is exactly PipeBuf bytes.
	AddrSize      = (PipeBuf - 8) / 2
	HandshakeSize = 8 + 2*AddrSize
	MoveSize      = 12
)

var errUnsupported = errors.New("BinaryCodec: v must be *message.Move or *message.Handshake")

type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *message.Move:
		buf := make([]byte, MoveSize)
		binary.BigEndian.PutUint32(buf[0:4], uint32(msg.Status))
		binary.BigEndian.PutUint32(buf[4:8], uint32(msg.Row))
		binary.BigEndian.PutUint32(buf[8:12], uint32(msg.Col))
		return buf, nil

	case *message.Handshake:
		// An address must leave room for at least one NUL so the decoder can find its end
		if len(msg.ClientIn) >= AddrSize || len(msg.ClientOut) >= AddrSize {
			return nil, fmt.Errorf("BinaryCodec: channel address longer than %d bytes", AddrSize-1)
		}
		// NUL terminates an address on the wire, so an embedded one would truncate it
		if strings.IndexByte(msg.ClientIn, 0) >= 0 || strings.IndexByte(msg.ClientOut, 0) >= 0 {
			return nil, errors.New("BinaryCodec: channel address contains a NUL byte")
		}
		buf := make([]byte, HandshakeSize)
		binary.BigEndian.PutUint32(buf[0:4], uint32(msg.ClientMark))
		binary.BigEndian.PutUint32(buf[4:8], uint32(msg.ServerMark))
		copy(buf[8:8+AddrSize], msg.ClientIn)
		copy(buf[8+AddrSize:HandshakeSize], msg.ClientOut)
		return buf, nil
	}
	return nil, errUnsupported
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	switch msg := v.(type) {
	case *message.Move:
		if len(data) != MoveSize {
			return fmt.Errorf("BinaryCodec: move record is %d bytes, want %d", len(data), MoveSize)
		}
		msg.Status = message.Status(int32(binary.BigEndian.Uint32(data[0:4])))
		msg.Row = int32(binary.BigEndian.Uint32(data[4:8]))
		msg.Col = int32(binary.BigEndian.Uint32(data[8:12]))
		return nil

	case *message.Handshake:
		if len(data) != HandshakeSize {
			return fmt.Errorf("BinaryCodec: handshake record is %d bytes, want %d", len(data), HandshakeSize)
		}
		msg.ClientMark = message.Mark(int32(binary.BigEndian.Uint32(data[0:4])))
		msg.ServerMark = message.Mark(int32(binary.BigEndian.Uint32(data[4:8])))
		msg.ClientIn = cString(data[8 : 8+AddrSize])
		msg.ClientOut = cString(data[8+AddrSize : HandshakeSize])
		return nil
	}
	return errUnsupported
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

// cString returns the bytes before the first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
