package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame delimiters and the escape substitution applied to the region
// between them.
var (
	FrameStart = []byte{0xFE, 0xFE}
	FrameEnd   = []byte{0xFE, 0x0D}

	frameSpecial            = []byte{0xFE}
	frameSpecialReplacement = []byte{0xFE, 0xF0}
)

// Decode error classes. DecodeFrame wraps these with detail; use
// errors.Is to classify.
var (
	ErrInvalidFrame     = errors.New("invalid frame")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrUnknownOpcode    = errors.New("unknown opcode")
)

// EncodeFrame wraps a command byte and payload into a complete wire
// frame: checksum appended big-endian, special bytes escaped, start and
// end markers added unescaped.
func EncodeFrame(cmd byte, payload []byte) []byte {
	body := make([]byte, 0, len(payload)+3)
	body = append(body, cmd)
	body = append(body, payload...)

	csum := Checksum(body)
	body = append(body, byte(csum>>8), byte(csum))

	body = bytes.ReplaceAll(body, frameSpecial, frameSpecialReplacement)

	frame := make([]byte, 0, len(body)+4)
	frame = append(frame, FrameStart...)
	frame = append(frame, body...)
	frame = append(frame, FrameEnd...)
	return frame
}

// DecodeFrame strips the frame markers, reverses the escape substitution
// and verifies the checksum, returning the decoded message.
func DecodeFrame(data []byte) (*ReadMessage, error) {
	if len(data) < 7 || !bytes.HasPrefix(data, FrameStart) {
		return nil, fmt.Errorf("%w: bad header: %x", ErrInvalidFrame, data)
	}
	if !bytes.HasSuffix(data, FrameEnd) {
		return nil, fmt.Errorf("%w: bad footer: %x", ErrInvalidFrame, data)
	}

	body := bytes.ReplaceAll(data[2:len(data)-2], frameSpecialReplacement, frameSpecial)
	if len(body) < 3 {
		return nil, fmt.Errorf("%w: frame too short: %x", ErrInvalidFrame, data)
	}

	received := uint16(body[len(body)-2])<<8 | uint16(body[len(body)-1])
	calculated := Checksum(body[:len(body)-2])
	if received != calculated {
		return nil, fmt.Errorf("%w: got 0x%04X, expected 0x%04X", ErrChecksumMismatch, received, calculated)
	}

	cmd := ReadCommand(body[0])
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, body[0])
	}

	payload := make([]byte, len(body)-3)
	copy(payload, body[1:len(body)-2])
	return &ReadMessage{Cmd: cmd, Data: payload}, nil
}
