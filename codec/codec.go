// Package codec turns game records into bytes and back.
//
// The game channels only ever carry BinaryCodec records: fixed width, big-endian,
// sized so a whole record is one atomic pipe write. JSONCodec exists for the values
// the registry stores, which humans read with etcdctl.
package codec

import "fmt"

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
)

func (t CodecType) String() string {
	switch t {
	case CodecTypeJSON:
		return "json"
	case CodecTypeBinary:
		return "binary"
	default:
		return fmt.Sprintf("CodecType(%d)", byte(t))
	}
}

// Codec encodes *message.Move and *message.Handshake (BinaryCodec), or any
// JSON-marshalable value (JSONCodec).
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType
}

// GetCodec returns the codec for t. Unknown types get the wire codec.
func GetCodec(t CodecType) Codec {
	switch t {
	case CodecTypeJSON:
		return &JSONCodec{}
	default:
		return &BinaryCodec{}
	}
}
