package bridge

import (
	"time"

	"github.com/muurk/satelink/internal/satel"
)

// Event kinds published on the stream.
const (
	EventZones      = "zones"
	EventOutputs    = "outputs"
	EventPartitions = "partitions"
	EventConnection = "connection"
)

// Event is one JSON message on the WebSocket stream. Exactly one of the
// payload fields is set, selected by Type.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`

	Zones      map[int]bool     `json:"zones,omitempty"`
	Outputs    map[int]bool     `json:"outputs,omitempty"`
	Partitions map[string][]int `json:"partitions,omitempty"`
	Connected  *bool            `json:"connected,omitempty"`
}

func zoneEvent(status satel.ZoneStatus) Event {
	return Event{Type: EventZones, Time: time.Now(), Zones: status}
}

func outputEvent(status satel.OutputStatus) Event {
	return Event{Type: EventOutputs, Time: time.Now(), Outputs: status}
}

func partitionEvent(states map[satel.AlarmState][]int) Event {
	partitions := make(map[string][]int, len(states))
	for state, parts := range states {
		partitions[state.String()] = parts
	}
	return Event{Type: EventPartitions, Time: time.Now(), Partitions: partitions}
}

func connectionEvent(connected bool) Event {
	return Event{Type: EventConnection, Time: time.Now(), Connected: &connected}
}
