package satel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/muurk/satelink/internal/protocol"
	"github.com/muurk/satelink/internal/transport"
)

// startPanel runs a scripted plain-mode panel on a loopback listener
// and returns a client configured to talk to it.
func startPanel(t *testing.T, cfg Config, handler func(net.Conn)) *Client {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handler(conn)
			}()
		}
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to split address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg.Host = host
	cfg.Port = port
	client := NewClient(cfg)
	t.Cleanup(func() { client.Close() })
	return client
}

// readClientFrame reads one framed command off the wire and returns its
// opcode and payload. Client frames carry write opcodes, so they cannot
// go through DecodeFrame's read-namespace validation. It runs on panel
// handler goroutines, so failures are returned rather than fatal.
func readClientFrame(conn net.Conn) (byte, []byte, error) {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var raw []byte
	buf := make([]byte, 1)
	for !bytes.HasSuffix(raw, protocol.FrameEnd) || len(raw) < 4 {
		if _, err := conn.Read(buf); err != nil {
			return 0, nil, err
		}
		raw = append(raw, buf[0])
	}

	body := raw[len(protocol.FrameStart) : len(raw)-len(protocol.FrameEnd)]
	body = bytes.ReplaceAll(body, []byte{0xFE, 0xF0}, []byte{0xFE})
	if len(body) < 3 {
		return 0, nil, fmt.Errorf("client frame too short: %x", raw)
	}
	return body[0], body[1 : len(body)-2], nil
}

func startedClient(t *testing.T, cfg Config, handler func(net.Conn)) *Client {
	t.Helper()
	client := startPanel(t, cfg, handler)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Start(ctx, false); err != nil {
		t.Fatalf("failed to start client: %v", err)
	}
	return client
}

func TestClientMonitoringAndZoneReports(t *testing.T) {
	zoneEvents := make(chan ZoneStatus, 1)
	alarmEvents := make(chan struct{}, 4)

	handler := func(conn net.Conn) {
		cmd, payload, err := readClientFrame(conn)
		if err != nil {
			return
		}
		if cmd != byte(protocol.WriteStartMonitoring) {
			t.Errorf("first command 0x%02X, want START MONITORING", cmd)
		}
		wantMask := []byte{0x01, 0xDE, 0x99, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
		if !bytes.Equal(payload, wantMask) {
			t.Errorf("monitoring mask %x, want %x", payload, wantMask)
		}
		conn.Write(protocol.EncodeFrame(byte(protocol.ReadResult), []byte{0xFF}))

		// Zones 3, 14 and 128 violated, as a 16-byte report.
		zones := make([]byte, 16)
		zones[0] = 0x04
		zones[1] = 0x20
		zones[15] = 0x80
		conn.Write(protocol.EncodeFrame(byte(protocol.ReadZonesViolated), zones))

		// Partition 2 armed in mode 0.
		conn.Write(protocol.EncodeFrame(byte(protocol.ReadArmedMode0), []byte{0x02, 0x00, 0x00, 0x00}))

		// Hold the session open until the test tears it down.
		conn.SetReadDeadline(time.Time{})
		conn.Read(make([]byte, 1))
	}

	client := startPanel(t, Config{MonitoredZones: []int{1, 3, 128}}, handler)
	client.OnZoneChanged(func(status ZoneStatus) {
		select {
		case zoneEvents <- status:
		default:
		}
	})
	client.OnAlarmStatusChanged(func() {
		select {
		case alarmEvents <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Start(ctx, true); err != nil {
		t.Fatalf("failed to start client: %v", err)
	}

	select {
	case status := <-zoneEvents:
		want := ZoneStatus{1: false, 3: true, 128: true}
		if !reflect.DeepEqual(status, want) {
			t.Errorf("zone status %v, want %v", status, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no zone event received")
	}

	select {
	case <-alarmEvents:
	case <-time.After(2 * time.Second):
		t.Fatal("no alarm status event received")
	}

	if got := client.ViolatedZones(); !reflect.DeepEqual(got, []int{3, 14, 128}) {
		t.Errorf("violated zones %v, want [3 14 128]", got)
	}
	states := client.PartitionStates()
	if !reflect.DeepEqual(states[StateArmedMode0], []int{2}) {
		t.Errorf("armed partitions %v, want [2]", states[StateArmedMode0])
	}
}

func TestClientArmSendsCodedCommand(t *testing.T) {
	received := make(chan []byte, 1)
	handler := func(conn net.Conn) {
		cmd, payload, err := readClientFrame(conn)
		if err != nil {
			return
		}
		if cmd != byte(protocol.WriteArmMode0) {
			t.Errorf("command 0x%02X, want ARM MODE 0", cmd)
		}
		received <- payload
		conn.Write(protocol.EncodeFrame(byte(protocol.ReadResult), []byte{0x00}))

		conn.SetReadDeadline(time.Time{})
		conn.Read(make([]byte, 1))
	}

	client := startedClient(t, Config{}, handler)
	if err := client.Arm("3333", []int{1}, 0); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	select {
	case payload := <-received:
		want := []byte{
			0x33, 0x33, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
			0x01, 0x00, 0x00, 0x00,
		}
		if !bytes.Equal(payload, want) {
			t.Errorf("arm payload %x, want %x", payload, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panel never received the arm command")
	}
}

func TestClientArmRejectsInvalidMode(t *testing.T) {
	client := NewClient(Config{Host: "127.0.0.1", Port: transport.DefaultPort})
	t.Cleanup(func() { client.Close() })

	if err := client.Arm("1234", []int{1}, 4); err == nil {
		t.Error("mode 4 accepted")
	}
	if err := client.Arm("1234", []int{1}, -1); err == nil {
		t.Error("mode -1 accepted")
	}
}

func TestClientDeviceName(t *testing.T) {
	handler := func(conn net.Conn) {
		cmd, payload, err := readClientFrame(conn)
		if err != nil {
			return
		}
		if cmd != byte(protocol.WriteReadDeviceName) {
			t.Errorf("command 0x%02X, want READ DEVICE NAME", cmd)
		}
		if !bytes.Equal(payload, []byte{0x00, 0x05}) {
			t.Errorf("query payload %x, want 0005", payload)
		}
		reply := append([]byte{0x00, 0x05}, []byte("Garage door     ")...)
		conn.Write(protocol.EncodeFrame(byte(protocol.ReadDeviceName), reply))

		conn.SetReadDeadline(time.Time{})
		conn.Read(make([]byte, 1))
	}

	client := startedClient(t, Config{}, handler)
	name, err := client.DeviceName(0x00, 0x05)
	if err != nil {
		t.Fatalf("DeviceName failed: %v", err)
	}
	if name != "Garage door" {
		t.Errorf("device name %q, want %q", name, "Garage door")
	}
}

func TestClientKeepAlive(t *testing.T) {
	queries := make(chan []byte, 4)
	handler := func(conn net.Conn) {
		for {
			cmd, payload, err := readClientFrame(conn)
			if err != nil {
				return
			}
			if cmd != byte(protocol.WriteReadDeviceName) {
				t.Errorf("keep-alive command 0x%02X, want READ DEVICE NAME", cmd)
			}
			select {
			case queries <- payload:
			default:
			}
			reply := append([]byte{payload[0], payload[1]}, []byte("Partition 1     ")...)
			conn.Write(protocol.EncodeFrame(byte(protocol.ReadDeviceName), reply))
		}
	}

	startedClient(t, Config{KeepAliveInterval: 40 * time.Millisecond}, handler)

	select {
	case payload := <-queries:
		if !bytes.Equal(payload, []byte{0x01, 0x01}) {
			t.Errorf("keep-alive payload %x, want 0101", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no keep-alive query received")
	}
}

func TestClientCloseWithoutStart(t *testing.T) {
	client := NewClient(Config{Host: "127.0.0.1"})
	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestClientStartAfterClose(t *testing.T) {
	client := NewClient(Config{Host: "127.0.0.1"})
	client.Close()

	if err := client.Start(context.Background(), false); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

// reserveUnusedPort binds an ephemeral port and releases it so a test
// can dial an address with no listener behind it yet.
func reserveUnusedPort(t *testing.T) (string, string, int) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("failed to split address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return addr, host, port
}

func TestClientStartRetriesUntilPanelListens(t *testing.T) {
	addr, host, port := reserveUnusedPort(t)

	// The panel comes up only after the first connect attempts have
	// been refused.
	go func() {
		time.Sleep(200 * time.Millisecond)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		conn, err := listener.Accept()
		listener.Close()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Read(make([]byte, 1))
	}()

	client := NewClient(Config{
		Host:              host,
		Port:              port,
		ReconnectInterval: 50 * time.Millisecond,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Start(ctx, false); err != nil {
		t.Fatalf("Start() = %v, want retry until the panel listens", err)
	}
	if !client.Connected() {
		t.Error("client not connected after Start")
	}
}

func TestClientStartStopsOnContextCancel(t *testing.T) {
	_, host, port := reserveUnusedPort(t)

	client := NewClient(Config{
		Host:              host,
		Port:              port,
		ReconnectInterval: 50 * time.Millisecond,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err := client.Start(ctx, false)
	if err == nil {
		t.Fatal("Start() succeeded with no listener")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Start() = %v, want context.DeadlineExceeded", err)
	}

	// The failed start must not poison a later attempt.
	done := make(chan struct{})
	go func() {
		defer close(done)
		handlerDone := make(chan struct{})
		listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			return
		}
		defer listener.Close()
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		go func() {
			defer close(handlerDone)
			defer conn.Close()
			conn.Read(make([]byte, 1))
		}()
		<-handlerDone
	}()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := client.Start(ctx2, false); err != nil {
		t.Fatalf("second Start() = %v, want success once the panel listens", err)
	}
	client.Close()
	<-done
}

func TestResultError(t *testing.T) {
	tests := []struct {
		name string
		code byte
		want error
	}{
		{"success", 0x00, nil},
		{"accepted", 0xFF, nil},
		{"user code not found", 0x01, ErrUserCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ResultError(tt.code); !errors.Is(err, tt.want) {
				t.Errorf("ResultError(0x%02X) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}

	var panelErr *PanelError
	err := ResultError(0x12)
	if !errors.As(err, &panelErr) || panelErr.Code != 0x12 {
		t.Errorf("ResultError(0x12) = %v, want PanelError", err)
	}
}
