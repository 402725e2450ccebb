package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/satelink/internal/encryption"
	"github.com/muurk/satelink/internal/logging"
	"github.com/muurk/satelink/internal/protocol"
)

// DefaultPort is the TCP port of Satel ETHM integration modules.
const DefaultPort = 7094

const (
	// busyMarker is the literal banner the panel sends when another
	// client already holds the integration channel.
	busyMarker = "Busy"

	// probeTimeout bounds the post-connect busy probe read.
	probeTimeout = 100 * time.Millisecond

	// maxFrameLength caps a plain frame read; anything longer means the
	// stream lost frame synchronization.
	maxFrameLength = 1024
)

var (
	// ErrClosed is returned after a terminal Close; the transport never
	// reconnects afterwards.
	ErrClosed = errors.New("transport closed")

	// ErrNotConnected is returned by I/O calls while disconnected.
	ErrNotConnected = errors.New("not connected")

	// ErrPanelBusy means the panel rejected us because another client is
	// connected. The TCP connect itself succeeds in this case; the panel
	// signals the rejection in-band.
	ErrPanelBusy = errors.New("panel busy: another client is connected")
)

// Transport owns the raw socket and speaks either plain frames or
// encrypted PDUs depending on whether an integration key is configured.
type Transport struct {
	host           string
	port           int
	integrationKey string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	crypto *encryption.Handler
	closed bool
}

// New creates a transport for the given module address. A non-empty
// integrationKey selects the encrypted PDU codec.
func New(host string, port int, integrationKey string) *Transport {
	return &Transport{host: host, port: port, integrationKey: integrationKey}
}

// Connected reports whether a live reader/writer pair exists.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Closed reports whether the terminal closed flag is set.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Connect opens the TCP stream. On failure the transport stays
// disconnected and the error is returned. Each successful connect on an
// encrypted transport starts a fresh encryption session.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.mu.Unlock()

	var crypto *encryption.Handler
	if t.integrationKey != "" {
		var err error
		crypto, err = encryption.NewHandler(t.integrationKey)
		if err != nil {
			return err
		}
	}

	addr := net.JoinHostPort(t.host, fmt.Sprintf("%d", t.port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logging.Debug("TCP connection failed",
			zap.String("addr", addr),
			zap.Error(err),
		)
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.crypto = crypto
	t.mu.Unlock()

	logging.Debug("TCP connection established", zap.String("addr", addr))
	return nil
}

// CheckConnection probes a freshly connected plain transport for the
// panel's busy rejection. The panel accepts a second TCP connection but
// silently drops its commands, so the only reliable signal is the "Busy"
// banner it prints right after connect. A read timeout means no banner
// and therefore success. Encrypted transports skip the probe.
func (t *Transport) CheckConnection() error {
	t.mu.Lock()
	conn, reader, crypto := t.conn, t.reader, t.crypto
	t.mu.Unlock()

	if conn == nil {
		logging.Warn("Cannot check connection, not connected")
		return ErrNotConnected
	}
	if crypto != nil {
		return nil
	}

	_ = conn.SetReadDeadline(time.Now().Add(probeTimeout))
	buf := make([]byte, 256)
	n, err := reader.Read(buf)
	_ = conn.SetReadDeadline(time.Time{})

	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// No banner within the window: the channel is ours.
			return nil
		}
		logging.Debug("Connection check failed", zap.Error(err))
		t.teardown()
		return err
	}

	if bytes.Contains(buf[:n], []byte(busyMarker)) {
		logging.Warn("Panel reports busy (another client is connected)")
		_ = t.Close()
		return ErrPanelBusy
	}

	logging.LogRawBytes("Received data after connect", buf[:n])
	return nil
}

// ReadFrame reads one complete frame from the panel. Any I/O or decode
// failure tears down the reader/writer and returns the error; the caller
// treats the connection as dead and reconnects.
func (t *Transport) ReadFrame() ([]byte, error) {
	t.mu.Lock()
	reader, crypto := t.reader, t.crypto
	t.mu.Unlock()

	if reader == nil {
		logging.Warn("Cannot read, not connected")
		return nil, ErrNotConnected
	}

	var frame []byte
	var err error
	if crypto != nil {
		frame, err = readEncryptedFrame(reader, crypto)
	} else {
		frame, err = readPlainFrame(reader)
	}
	if err != nil {
		logging.Warn("Read failed", zap.Error(err))
		t.teardown()
		return nil, err
	}

	logging.LogRawBytes("Received raw frame", frame)
	return frame, nil
}

// readPlainFrame accumulates bytes until the frame-end marker. The
// marker bytes cannot occur unescaped inside a frame, so a literal
// 0xFE 0x0D always terminates one.
func readPlainFrame(r *bufio.Reader) ([]byte, error) {
	buf := make([]byte, 0, 64)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
		if len(buf) >= 2 && bytes.Equal(buf[len(buf)-2:], protocol.FrameEnd) {
			return buf, nil
		}
		if len(buf) > maxFrameLength {
			return nil, fmt.Errorf("no frame end marker within %d bytes", maxFrameLength)
		}
	}
}

// readEncryptedFrame reads a length-prefixed PDU, decrypts it and
// resynchronizes on the frame-end marker inside the plaintext. Trailing
// cipher padding after the marker is discarded.
func readEncryptedFrame(r *bufio.Reader, crypto *encryption.Handler) ([]byte, error) {
	lengthByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("no PDU length received (wrong integration key?): %w", err)
	}

	pdu := make([]byte, int(lengthByte))
	if _, err := io.ReadFull(r, pdu); err != nil {
		return nil, err
	}

	plain, err := crypto.ExtractDataFromPDU(pdu)
	if err != nil {
		return nil, err
	}

	idx := bytes.Index(plain, protocol.FrameEnd)
	if idx < 0 {
		return nil, fmt.Errorf("no frame end marker in decrypted PDU: %x", plain)
	}
	return plain[:idx+len(protocol.FrameEnd)], nil
}

// SendFrame writes one frame to the panel, wrapping it into a
// length-prefixed encrypted PDU first when encryption is active. Any
// write failure tears down the reader/writer.
func (t *Transport) SendFrame(frame []byte) error {
	t.mu.Lock()
	conn, crypto := t.conn, t.crypto
	t.mu.Unlock()

	if conn == nil {
		logging.Warn("Cannot write, not connected")
		return ErrNotConnected
	}

	data := frame
	if crypto != nil {
		pdu := crypto.PreparePDU(frame)
		if len(pdu) > 0xFF {
			return fmt.Errorf("PDU too large: %d bytes", len(pdu))
		}
		data = make([]byte, 0, len(pdu)+1)
		data = append(data, byte(len(pdu)))
		data = append(data, pdu...)
	}

	if _, err := conn.Write(data); err != nil {
		logging.Warn("Write failed", zap.Error(err))
		t.teardown()
		return err
	}

	logging.LogRawBytes("Sent raw frame", data)
	return nil
}

// Close is terminal and idempotent: it sets the closed flag, shuts the
// socket down best-effort and clears the reader/writer.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.reader = nil
	t.crypto = nil
	t.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			logging.Warn("Exception during close", zap.Error(err))
		}
	}
	return nil
}

// Drop discards the current socket without closing the transport, so a
// later Connect can establish a fresh session. Callers use it when the
// stream can no longer be trusted, e.g. after a framing error.
func (t *Transport) Drop() {
	t.teardown()
}

// teardown drops the reader/writer after an I/O failure without setting
// the terminal closed flag, leaving the transport eligible for
// reconnection.
func (t *Transport) teardown() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.reader = nil
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}
