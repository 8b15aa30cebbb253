// internal/driver/optris/command.go
package optris

// Operation selects one CS Laser register access
type Operation int

const (
	OpSerialNumber Operation = iota
	OpTargetTemperature
	OpHeadTemperature
	OpCurrentTargetTemperature
	OpReadEmissivity
	OpWriteEmissivity
	OpReadLaser
	OpWriteLaser
)

// CS_LASER_COMMANDS contains the opcodes of the CS Laser binary protocol
var CS_LASER_COMMANDS = struct {
	// Read commands
	READ_SERIAL_NUMBER       byte
	READ_TARGET_TEMP         byte
	READ_HEAD_TEMP           byte
	READ_CURRENT_TARGET_TEMP byte
	READ_EMISSIVITY          byte
	READ_LASER               byte

	// Write commands, echoed by the device
	WRITE_EMISSIVITY byte // + 2 byte value (emissivity * 1000)
	WRITE_LASER      byte // + 0x00 off / 0x01 on
}{
	READ_SERIAL_NUMBER:       0x0E,
	READ_TARGET_TEMP:         0x01,
	READ_HEAD_TEMP:           0x02,
	READ_CURRENT_TARGET_TEMP: 0x03,
	READ_EMISSIVITY:          0x04,
	READ_LASER:               0x10,

	WRITE_EMISSIVITY: 0x84,
	WRITE_LASER:      0x90,
}

// frameLayout is the fixed shape of one exchange. The protocol has no
// delimiters or checksum, so the response length is the only framing.
type frameLayout struct {
	name        string
	opcode      byte
	payloadLen  int
	responseLen int
}

var layouts = map[Operation]frameLayout{
	OpSerialNumber:             {"serial_number", CS_LASER_COMMANDS.READ_SERIAL_NUMBER, 0, 3},
	OpTargetTemperature:        {"target_temperature", CS_LASER_COMMANDS.READ_TARGET_TEMP, 0, 2},
	OpHeadTemperature:          {"head_temperature", CS_LASER_COMMANDS.READ_HEAD_TEMP, 0, 2},
	OpCurrentTargetTemperature: {"current_target_temperature", CS_LASER_COMMANDS.READ_CURRENT_TARGET_TEMP, 0, 2},
	OpReadEmissivity:           {"read_emissivity", CS_LASER_COMMANDS.READ_EMISSIVITY, 0, 2},
	OpWriteEmissivity:          {"write_emissivity", CS_LASER_COMMANDS.WRITE_EMISSIVITY, 2, 2},
	OpReadLaser:                {"read_laser", CS_LASER_COMMANDS.READ_LASER, 0, 1},
	OpWriteLaser:               {"write_laser", CS_LASER_COMMANDS.WRITE_LASER, 1, 1},
}

func (op Operation) String() string {
	if l, ok := layouts[op]; ok {
		return l.name
	}
	return "unknown"
}

// Opcode returns the command byte sent for op
func (op Operation) Opcode() byte {
	return layouts[op].opcode
}

// ResponseLen returns the number of bytes the device answers op with
func (op Operation) ResponseLen() int {
	return layouts[op].responseLen
}
