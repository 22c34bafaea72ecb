// Package aag drives the AAG CloudWatcher cloud/rain sensor over RS232.
//
// Command reference: Rs232_Comms_v100.pdf, v110 and v120 from aagware.eu.
// Every command is one row in the command table: its wire encoding, the
// expected-response pattern and an optional extra delay before reading.
package aag

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CommandID identifies a row of the command table.
type CommandID string

const (
	CmdName              CommandID = "!A"
	CmdFirmware          CommandID = "!B"
	CmdValues            CommandID = "!C"
	CmdErrors            CommandID = "!D"
	CmdRainFrequency     CommandID = "!E"
	CmdSwitchStatus      CommandID = "!F"
	CmdSwitchOpen        CommandID = "!G"
	CmdSwitchClosed      CommandID = "!H"
	CmdSetPWM            CommandID = "P####!"
	CmdGetPWM            CommandID = "!Q"
	CmdSkyTemperature    CommandID = "!S"
	CmdAmbientTemp       CommandID = "!T"
	CmdResetBuffer       CommandID = "!z"
	CmdSerialNumber      CommandID = "!K"
	CmdAnemometerEnabled CommandID = "v!"
	CmdWindSpeed         CommandID = "V!"
	CmdConstants         CommandID = "M!"
)

// Command is one row of the command table.
type Command struct {
	ID          CommandID
	Description string
	Expect      *regexp.Regexp
	// Delay overrides DefaultQueryDelay when non-zero.
	Delay time.Duration
}

// Encode returns the wire form of the command. Only CmdSetPWM takes an
// argument: the 10-bit duty value.
func (c Command) Encode(arg int) string {
	if c.ID == CmdSetPWM {
		return fmt.Sprintf("P%04d!", arg)
	}
	return string(c.ID)
}

const (
	num  = `([\d.\-]+)`
	unum = `([\d.]+)`
)

func expect(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^` + pattern)
}

var commandTable = map[CommandID]Command{
	CmdName:              {CmdName, "Get internal name", expect(`!N\s+(\w+)!`), 0},
	CmdFirmware:          {CmdFirmware, "Get firmware version", expect(`!V\s+` + num + `!`), 0},
	CmdValues:            {CmdValues, "Get values", expect(`!6\s+` + num + `!4\s+` + num + `!5\s+` + num + `!`), 0},
	CmdErrors:            {CmdErrors, "Get internal errors", expect(`!E1\s+` + unum + `!E2\s+` + unum + `!E3\s+` + unum + `!E4\s+` + unum + `!`), 0},
	CmdRainFrequency:     {CmdRainFrequency, "Get rain frequency", expect(`!R\s+` + num + `!`), 350 * time.Millisecond},
	CmdSwitchStatus:      {CmdSwitchStatus, "Get switch status", expect(`!([XY])\s+` + num + `!`), 0},
	CmdSwitchOpen:        {CmdSwitchOpen, "Set switch open", expect(`!([XY])\s+` + num + `!`), 0},
	CmdSwitchClosed:      {CmdSwitchClosed, "Set switch closed", expect(`!([XY])\s+` + num + `!`), 0},
	CmdSetPWM:            {CmdSetPWM, "Set PWM value", expect(`!Q\s+` + num + `!`), 750 * time.Millisecond},
	CmdGetPWM:            {CmdGetPWM, "Get PWM value", expect(`!Q\s+` + num + `!`), 0},
	CmdSkyTemperature:    {CmdSkyTemperature, "Get sky IR temperature", expect(`!1\s+` + num + `!`), 0},
	CmdAmbientTemp:       {CmdAmbientTemp, "Get sensor temperature", expect(`!2\s+` + num + `!`), 0},
	CmdResetBuffer:       {CmdResetBuffer, "Reset RS232 buffer pointers", expect(`(!)`), 0},
	CmdSerialNumber:      {CmdSerialNumber, "Get serial number", expect(`!K(\d+)\s*\x00!`), 0},
	CmdAnemometerEnabled: {CmdAnemometerEnabled, "Query if anemometer enabled", expect(`!v\s+` + num + `!`), 0},
	CmdWindSpeed:         {CmdWindSpeed, "Get wind speed", expect(`!w\s+` + num + `!`), 0},
	CmdConstants:         {CmdConstants, "Get electrical constants", expect(`!M(.{12})`), 0},
}

// Lookup returns the table row for id.
func Lookup(id CommandID) (Command, bool) {
	c, ok := commandTable[id]
	return c, ok
}

var setPWMWire = regexp.MustCompile(`^P(\d{4})!$`)

// ParseWire resolves a raw wire string (as typed on the command line) to a
// table row and its argument.
func ParseWire(wire string) (Command, int, bool) {
	wire = strings.TrimSpace(wire)
	if m := setPWMWire.FindStringSubmatch(wire); m != nil {
		var arg int
		fmt.Sscanf(m[1], "%d", &arg)
		return commandTable[CmdSetPWM], arg, true
	}
	c, ok := commandTable[CommandID(wire)]
	return c, 0, ok
}
