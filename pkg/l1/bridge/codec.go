package bridge

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"

	"github.com/robotalks/multilink/pkg/hw"
)

var (
	// ErrReservedValue indicates a payload equal to a transport sentinel.
	ErrReservedValue = errors.New("reserved value")
	// ErrOutOfRange indicates a payload which doesn't fit 16 bits.
	ErrOutOfRange = errors.New("value out of range")
)

// EncodeValue encodes a link word as a protobuf UInt32Value.
func EncodeValue(v uint16) ([]byte, error) {
	return proto.Marshal(&wrappers.UInt32Value{Value: uint32(v)})
}

// DecodeValue decodes a protobuf UInt32Value into a sendable link word.
func DecodeValue(data []byte) (uint16, error) {
	var msg wrappers.UInt32Value
	if err := proto.Unmarshal(data, &msg); err != nil {
		return 0, fmt.Errorf("decode value: %w", err)
	}
	return checkValue(msg.Value)
}

func checkValue(v uint32) (uint16, error) {
	if v > 0xFFFF {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	if w := uint16(v); w == hw.NoData || w == hw.Disconnected {
		return 0, fmt.Errorf("%w: 0x%04x", ErrReservedValue, w)
	}
	return uint16(v), nil
}
