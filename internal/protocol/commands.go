package protocol

import "fmt"

// ReadCommand is a single-byte opcode in the panel-to-client namespace:
// telemetry pushed by the panel and command results.
type ReadCommand byte

// Read opcodes understood by the decoder.
const (
	ReadZonesViolated         ReadCommand = 0x00
	ReadArmedSuppressed       ReadCommand = 0x09
	ReadArmedMode0            ReadCommand = 0x0A
	ReadArmedMode2            ReadCommand = 0x0B
	ReadArmedMode3            ReadCommand = 0x0C
	ReadEntryTime             ReadCommand = 0x0E
	ReadExitCountdownOver10   ReadCommand = 0x0F
	ReadExitCountdownUnder10  ReadCommand = 0x10
	ReadAlarm                 ReadCommand = 0x13
	ReadFireAlarm             ReadCommand = 0x14
	ReadOutputsState          ReadCommand = 0x17
	ReadArmedMode1            ReadCommand = 0x2A
	ReadDeviceName            ReadCommand = 0xEE
	ReadResult                ReadCommand = 0xEF
)

var readCommandNames = map[ReadCommand]string{
	ReadZonesViolated:        "ZONES_VIOLATED",
	ReadArmedSuppressed:      "PARTITIONS_ARMED_SUPPRESSED",
	ReadArmedMode0:           "PARTITIONS_ARMED_MODE0",
	ReadArmedMode2:           "PARTITIONS_ARMED_MODE2",
	ReadArmedMode3:           "PARTITIONS_ARMED_MODE3",
	ReadEntryTime:            "PARTITIONS_ENTRY_TIME",
	ReadExitCountdownOver10:  "PARTITIONS_EXIT_COUNTDOWN_OVER_10",
	ReadExitCountdownUnder10: "PARTITIONS_EXIT_COUNTDOWN_UNDER_10",
	ReadAlarm:                "PARTITIONS_ALARM",
	ReadFireAlarm:            "PARTITIONS_FIRE_ALARM",
	ReadOutputsState:         "OUTPUTS_STATE",
	ReadArmedMode1:           "PARTITIONS_ARMED_MODE1",
	ReadDeviceName:           "READ_DEVICE_NAME",
	ReadResult:               "RESULT",
}

// Valid reports whether the opcode is a recognized read command.
func (c ReadCommand) Valid() bool {
	_, ok := readCommandNames[c]
	return ok
}

func (c ReadCommand) String() string {
	if name, ok := readCommandNames[c]; ok {
		return fmt.Sprintf("%s (0x%02X)", name, byte(c))
	}
	return fmt.Sprintf("UNKNOWN (0x%02X)", byte(c))
}

// WriteCommand is a single-byte opcode in the client-to-panel namespace.
type WriteCommand byte

// Write opcodes supported by the driver.
const (
	WriteStartMonitoring WriteCommand = 0x7F
	WriteArmMode0        WriteCommand = 0x80
	WriteArmMode1        WriteCommand = 0x81
	WriteArmMode2        WriteCommand = 0x82
	WriteArmMode3        WriteCommand = 0x83
	WriteDisarm          WriteCommand = 0x84
	WriteClearAlarm      WriteCommand = 0x85
	WriteOutputsOn       WriteCommand = 0x88
	WriteOutputsOff      WriteCommand = 0x89
	WriteReadDeviceName  WriteCommand = 0xEE
)

var writeCommandNames = map[WriteCommand]string{
	WriteStartMonitoring: "START_MONITORING",
	WriteArmMode0:        "PARTITIONS_ARM_MODE_0",
	WriteArmMode1:        "PARTITIONS_ARM_MODE_1",
	WriteArmMode2:        "PARTITIONS_ARM_MODE_2",
	WriteArmMode3:        "PARTITIONS_ARM_MODE_3",
	WriteDisarm:          "PARTITIONS_DISARM",
	WriteClearAlarm:      "PARTITIONS_CLEAR_ALARM",
	WriteOutputsOn:       "OUTPUTS_ON",
	WriteOutputsOff:      "OUTPUTS_OFF",
	WriteReadDeviceName:  "READ_DEVICE_NAME",
}

func (c WriteCommand) String() string {
	if name, ok := writeCommandNames[c]; ok {
		return fmt.Sprintf("%s (0x%02X)", name, byte(c))
	}
	return fmt.Sprintf("UNKNOWN (0x%02X)", byte(c))
}

// SelfEchoing reports whether the panel confirms this command by echoing
// its own opcode instead of sending a generic RESULT.
func (c WriteCommand) SelfEchoing() bool {
	return c == WriteReadDeviceName
}

// ExpectedResponse returns the read opcode that completes this command:
// the command's own opcode for self-echoing commands, RESULT otherwise.
func (c WriteCommand) ExpectedResponse() ReadCommand {
	if c.SelfEchoing() {
		return ReadCommand(c)
	}
	return ReadResult
}
