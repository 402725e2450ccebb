package encryption

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
)

// HeaderLength is the size of the plaintext PDU header.
const HeaderLength = 6

// ErrDesync indicates the peer echoed a session id that does not match
// the one we last transmitted. The encryption state cannot be trusted
// anymore; the caller must reconnect to reinitialize it.
var ErrDesync = errors.New("session id desynchronized")

// nextSessionID hands out the initial sender session id for each new
// handler. Distinct starting ids across reconnects within one process
// make desync diagnostics readable; the value carries no security weight.
var nextSessionID atomic.Uint64

// Handler maintains the per-connection encryption session: the rolling
// counter and the two session ids exchanged in PDU headers.
type Handler struct {
	cipher         *Cipher
	rollingCounter uint16
	idS            byte
	idR            byte
}

// NewHandler creates a fresh session handler. Each handler draws a new
// initial sender id from a process-wide counter.
func NewHandler(integrationKey string) (*Handler, error) {
	cipher, err := NewCipher(integrationKey)
	if err != nil {
		return nil, err
	}
	return &Handler{
		cipher: cipher,
		idS:    byte(nextSessionID.Add(1) - 1),
	}, nil
}

// prepareHeader builds the 6-byte PDU header and advances the session
// state: the rolling counter increments mod 2^16 and the transmitted
// sender id is recorded for the next receive-side comparison.
func (h *Handler) prepareHeader() []byte {
	header := make([]byte, HeaderLength)
	if _, err := rand.Read(header[:2]); err != nil {
		// The two bytes are protocol padding with no cryptographic role.
		binary.BigEndian.PutUint16(header[:2], h.rollingCounter)
	}
	binary.BigEndian.PutUint16(header[2:4], h.rollingCounter)
	header[4] = h.idS
	header[5] = h.idR

	h.rollingCounter++
	h.idS = header[4]
	return header
}

// PreparePDU wraps a plaintext frame into an encrypted PDU.
func (h *Handler) PreparePDU(frame []byte) []byte {
	pdu := append(h.prepareHeader(), frame...)
	return h.cipher.Encrypt(pdu)
}

// ExtractDataFromPDU decrypts a PDU and returns the enclosed frame. The
// peer's echo of our session id is verified; a mismatch returns
// ErrDesync.
func (h *Handler) ExtractDataFromPDU(pdu []byte) ([]byte, error) {
	plain := h.cipher.Decrypt(pdu)
	if len(plain) < HeaderLength {
		return nil, fmt.Errorf("PDU too short: %d bytes", len(plain))
	}

	header := plain[:HeaderLength]
	data := plain[HeaderLength:]

	h.idR = header[4]
	if header[5] != h.idS {
		return nil, fmt.Errorf("%w: received 0x%02X, expected 0x%02X (decrypted: %s)",
			ErrDesync, header[5], h.idS, hex.EncodeToString(plain))
	}
	return data, nil
}
