package satel

import "github.com/muurk/satelink/internal/protocol"

// AlarmState is one aggregate arming/alarm condition a partition can
// report. Each state corresponds to one of the panel's partition state
// reports.
type AlarmState int

const (
	StateArmedMode0 AlarmState = iota
	StateArmedMode1
	StateArmedMode2
	StateArmedMode3
	StateArmedSuppressed
	StateEntryTime
	StateExitCountdownOver10
	StateExitCountdownUnder10
	StateTriggered
	StateTriggeredFire
	StateDisarmed
)

var alarmStateNames = map[AlarmState]string{
	StateArmedMode0:           "armed (mode 0)",
	StateArmedMode1:           "armed (mode 1)",
	StateArmedMode2:           "armed (mode 2)",
	StateArmedMode3:           "armed (mode 3)",
	StateArmedSuppressed:      "armed (suppressed)",
	StateEntryTime:            "entry time",
	StateExitCountdownOver10:  "exit countdown (>10s)",
	StateExitCountdownUnder10: "exit countdown (<10s)",
	StateTriggered:            "alarm triggered",
	StateTriggeredFire:        "fire alarm triggered",
	StateDisarmed:             "disarmed",
}

func (s AlarmState) String() string {
	if name, ok := alarmStateNames[s]; ok {
		return name
	}
	return "unknown state"
}

// partitionReports maps each partition state report opcode to the state
// it describes. The reverse direction drives the monitoring request.
var partitionReports = map[protocol.ReadCommand]AlarmState{
	protocol.ReadArmedMode0:           StateArmedMode0,
	protocol.ReadArmedMode1:           StateArmedMode1,
	protocol.ReadArmedMode2:           StateArmedMode2,
	protocol.ReadArmedMode3:           StateArmedMode3,
	protocol.ReadArmedSuppressed:      StateArmedSuppressed,
	protocol.ReadEntryTime:            StateEntryTime,
	protocol.ReadExitCountdownOver10:  StateExitCountdownOver10,
	protocol.ReadExitCountdownUnder10: StateExitCountdownUnder10,
	protocol.ReadAlarm:                StateTriggered,
	protocol.ReadFireAlarm:            StateTriggeredFire,
}
