package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestConnectionConnect(t *testing.T) {
	port := startPanel(t, func(conn net.Conn) {
		time.Sleep(time.Second)
		_ = conn.Close()
	})

	c := NewConnection("127.0.0.1", port, "", 10*time.Millisecond)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !c.Connected() {
		t.Error("connection not connected")
	}
}

func TestConnectionConnectAfterClose(t *testing.T) {
	c := NewConnection("127.0.0.1", DefaultPort, "", 10*time.Millisecond)
	_ = c.Close()
	if err := c.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Connect() error = %v, want ErrClosed", err)
	}
}

func TestEnsureConnectedSucceeds(t *testing.T) {
	port := startPanel(t, func(conn net.Conn) {
		time.Sleep(time.Second)
		_ = conn.Close()
	})

	c := NewConnection("127.0.0.1", port, "", 10*time.Millisecond)
	if !c.EnsureConnected(context.Background()) {
		t.Fatal("EnsureConnected() = false with listener up")
	}
	// A second call must return immediately.
	if !c.EnsureConnected(context.Background()) {
		t.Fatal("EnsureConnected() = false while connected")
	}
}

func TestEnsureConnectedStopsOnClose(t *testing.T) {
	// No listener: every attempt fails and the loop keeps retrying
	// until the connection is closed from another goroutine.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	c := NewConnection("127.0.0.1", port, "", 5*time.Millisecond)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = c.Close()
	}()

	done := make(chan bool, 1)
	go func() {
		done <- c.EnsureConnected(context.Background())
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("EnsureConnected() = true after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EnsureConnected() did not stop after close")
	}
}

func TestEnsureConnectedStopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	c := NewConnection("127.0.0.1", port, "", 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if c.EnsureConnected(ctx) {
		t.Error("EnsureConnected() = true with cancelled context and no listener")
	}
}

func TestConnectionCloseIdempotent(t *testing.T) {
	c := NewConnection("127.0.0.1", DefaultPort, "", 10*time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !c.Closed() {
		t.Error("connection not closed")
	}
}
