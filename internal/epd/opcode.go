package epd

import "fmt"

// Opcode is a controller register / command number.
type Opcode byte

// Command set shared by the 2.9" C and D controllers.
const (
	panelSetting           Opcode = 0x00 // resolution select, scan direction, LUT source
	powerSetting           Opcode = 0x01 // VDS/VDG and VDH/VDL levels
	powerOff               Opcode = 0x02
	powerOn                Opcode = 0x04 // raises busy until the charge pump is up
	boosterSoftStart       Opcode = 0x06
	deepSleep              Opcode = 0x07 // needs deepSleepCheck as its data byte
	dataStartTransmission1 Opcode = 0x10 // black plane (C) / old frame (D)
	displayRefresh         Opcode = 0x12 // activate display; raises busy
	dataStartTransmission2 Opcode = 0x13 // red plane (C) / new frame (D)
	lutVCOM                Opcode = 0x20
	lutWW                  Opcode = 0x21
	lutBW                  Opcode = 0x22
	lutWB                  Opcode = 0x23
	lutBB                  Opcode = 0x24
	pllControl             Opcode = 0x30
	vcomDataInterval       Opcode = 0x50 // border output and data polarity
	resolutionSetting      Opcode = 0x61
	getStatus              Opcode = 0x71 // status query issued while polling busy
	vcmDCSetting           Opcode = 0x82
)

// deepSleepCheck must follow deepSleep or the controller ignores it.
const deepSleepCheck byte = 0xA5

var opcodeNames = map[Opcode]string{
	panelSetting:           "PSR",
	powerSetting:           "PWR",
	powerOff:               "POF",
	powerOn:                "PON",
	boosterSoftStart:       "BTST",
	deepSleep:              "DSLP",
	dataStartTransmission1: "DTM1",
	displayRefresh:         "DRF",
	dataStartTransmission2: "DTM2",
	lutVCOM:                "LUTC",
	lutWW:                  "LUTWW",
	lutBW:                  "LUTBW",
	lutWB:                  "LUTWB",
	lutBB:                  "LUTBB",
	pllControl:             "PLL",
	vcomDataInterval:       "CDI",
	resolutionSetting:      "TRES",
	getStatus:              "FLG",
	vcmDCSetting:           "VDCS",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return fmt.Sprintf("%s(0x%02X)", n, byte(o))
	}
	return fmt.Sprintf("0x%02X", byte(o))
}
