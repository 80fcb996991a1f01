package tool

// Commands understood by the extruder controller.
const (
	CmdVersion             byte = 0
	CmdInit                byte = 1
	CmdGetTemp             byte = 2
	CmdSetTemp             byte = 3
	CmdGetMotor1PWM        byte = 17
	CmdGetPlatformTemp     byte = 30
	CmdSetPlatformTemp     byte = 31
	CmdGetSetpoint         byte = 32
	CmdGetPlatformSetpoint byte = 33
)

var commandNames = map[byte]string{
	CmdVersion:             "version",
	CmdInit:                "init",
	CmdGetTemp:             "get-temp",
	CmdSetTemp:             "set-temp",
	CmdGetMotor1PWM:        "get-motor1-pwm",
	CmdGetPlatformTemp:     "get-platform-temp",
	CmdSetPlatformTemp:     "set-platform-temp",
	CmdGetSetpoint:         "get-setpoint",
	CmdGetPlatformSetpoint: "get-platform-setpoint",
}

// CommandName returns a printable name of a tool command.
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return "unknown"
}
