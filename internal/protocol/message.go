package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// userCodeLength is the padded hex-digit length of a panel user code.
const userCodeLength = 16

// WriteMessage is an outbound command: opcode plus assembled payload.
// It is built once by the caller and consumed exactly once by the
// transport.
type WriteMessage struct {
	Cmd  WriteCommand
	Data []byte
}

// NewRawMessage builds a write message with a caller-supplied payload.
func NewRawMessage(cmd WriteCommand, data []byte) *WriteMessage {
	return &WriteMessage{Cmd: cmd, Data: data}
}

// NewCodedMessage builds a write message from a user code and optional
// partition and zone/output selections. The code is right-padded with
// 'F' to 16 hex digits; partitions become a 4-byte bitmask and
// zones/outputs a 32-byte bitmask, in that order.
func NewCodedMessage(cmd WriteCommand, code string, partitions, zonesOrOutputs []int) (*WriteMessage, error) {
	var data []byte

	if code != "" {
		encoded, err := EncodeUserCode(code)
		if err != nil {
			return nil, err
		}
		data = append(data, encoded...)
	}
	if len(partitions) > 0 {
		mask, err := EncodeBitmask(partitions, 4)
		if err != nil {
			return nil, fmt.Errorf("partitions: %w", err)
		}
		data = append(data, mask...)
	}
	if len(zonesOrOutputs) > 0 {
		mask, err := EncodeBitmask(zonesOrOutputs, 32)
		if err != nil {
			return nil, fmt.Errorf("zones/outputs: %w", err)
		}
		data = append(data, mask...)
	}

	return &WriteMessage{Cmd: cmd, Data: data}, nil
}

// EncodeUserCode converts a user code string into the 8-byte padded form
// the panel expects.
func EncodeUserCode(code string) ([]byte, error) {
	padded := strings.TrimSpace(code)
	if len(padded) > userCodeLength {
		return nil, fmt.Errorf("user code too long: %d digits", len(padded))
	}
	padded += strings.Repeat("F", userCodeLength-len(padded))

	encoded, err := hex.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("invalid user code: %w", err)
	}
	return encoded, nil
}

// EncodeFrame constructs the full wire frame for this message.
func (m *WriteMessage) EncodeFrame() []byte {
	return EncodeFrame(byte(m.Cmd), m.Data)
}

func (m *WriteMessage) String() string {
	return fmt.Sprintf("%s -> %s (%d)", m.Cmd, hex.EncodeToString(m.Data), len(m.Data))
}

// ReadMessage is a decoded inbound message: opcode plus payload.
type ReadMessage struct {
	Cmd  ReadCommand
	Data []byte
}

// ActiveBits decodes the payload as a bitmask of the given length and
// returns the 1-based positions of all set bits.
func (m *ReadMessage) ActiveBits(expectedLength int) ([]int, error) {
	return DecodeBitmask(m.Data, expectedLength)
}

func (m *ReadMessage) String() string {
	return fmt.Sprintf("%s -> %s (%d)", m.Cmd, hex.EncodeToString(m.Data), len(m.Data))
}
