package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/satelink/internal/satel"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	client := satel.NewClient(satel.Config{Host: "127.0.0.1"})
	t.Cleanup(func() { client.Close() })

	s := New(client, Config{})
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(s.hub.Close)
	return s, ts
}

func dialEvents(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("failed to decode event %q: %v", data, err)
	}
	return ev
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code %d, want 200", resp.StatusCode)
	}

	var status struct {
		Connected   bool `json:"connected"`
		Subscribers int  `json:"subscribers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Connected {
		t.Error("reported connected without a panel")
	}
	if status.Subscribers != 0 {
		t.Errorf("reported %d subscribers, want 0", status.Subscribers)
	}
}

func TestEventBroadcast(t *testing.T) {
	s, ts := testServer(t)
	conn := dialEvents(t, ts)

	s.hub.Publish(zoneEvent(satel.ZoneStatus{1: false, 3: true}))

	ev := readEvent(t, conn)
	if ev.Type != EventZones {
		t.Fatalf("event type %q, want %q", ev.Type, EventZones)
	}
	if !ev.Zones[3] || ev.Zones[1] {
		t.Errorf("zone payload %v, want zone 3 violated only", ev.Zones)
	}
}

func TestSnapshotReplayOnConnect(t *testing.T) {
	s, ts := testServer(t)

	// Events published before anyone subscribes become the snapshot.
	s.hub.Publish(zoneEvent(satel.ZoneStatus{5: true}))
	s.hub.Publish(outputEvent(satel.OutputStatus{2: true}))

	conn := dialEvents(t, ts)

	got := map[string]Event{}
	for i := 0; i < 2; i++ {
		ev := readEvent(t, conn)
		got[ev.Type] = ev
	}

	if ev, ok := got[EventZones]; !ok || !ev.Zones[5] {
		t.Errorf("zone snapshot missing or wrong: %v", got)
	}
	if ev, ok := got[EventOutputs]; !ok || !ev.Outputs[2] {
		t.Errorf("output snapshot missing or wrong: %v", got)
	}
}

func TestSnapshotOverwrite(t *testing.T) {
	s, ts := testServer(t)

	s.hub.Publish(zoneEvent(satel.ZoneStatus{5: true}))
	s.hub.Publish(zoneEvent(satel.ZoneStatus{5: false}))

	conn := dialEvents(t, ts)

	ev := readEvent(t, conn)
	if ev.Type != EventZones {
		t.Fatalf("event type %q, want %q", ev.Type, EventZones)
	}
	if ev.Zones[5] {
		t.Error("snapshot should hold the latest zone event")
	}
}

func TestHubCloseDisconnectsSubscribers(t *testing.T) {
	s, ts := testServer(t)
	conn := dialEvents(t, ts)

	s.hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected close after hub shutdown")
	}

	if n := s.hub.Subscribers(); n != 0 {
		t.Errorf("%d subscribers after close, want 0", n)
	}
}
