package epd

import (
	"fmt"
	"strings"
	"time"
)

// Step is one command of a fixed sequence, optionally followed by a busy
// wait.
type Step struct {
	Op       Opcode
	Data     []byte
	WaitIdle bool
}

// ResetTiming is the reset pulse: high, low, then high again with a settle
// time after each edge.
type ResetTiming struct {
	High   time.Duration
	Low    time.Duration
	Settle time.Duration
}

// Variant describes one panel model. Drivers copy what they need from it;
// the tables it references are never written.
type Variant struct {
	Name string

	// Physical (portrait) geometry.
	Width  int
	Height int
	// Planes is 2 for black+red panels, 1 for mono.
	Planes int

	Reset ResetTiming
	Init  []Step

	// Full is nil for variants running on the controller's built-in
	// waveforms.
	Full *WaveformSet
	// FullBank and PartialBank are sent before the tables of that bank.
	FullBank []Step

	PartialRefresh bool
	Partial        *WaveformSet
	PartialBank    []Step

	// OldFrame is set for controllers that take the previous frame on
	// DTM1 and the new black plane on DTM2.
	OldFrame bool

	// RefreshDelay is waited between DRF and the first busy poll.
	RefreshDelay time.Duration
	// BusySettle is waited after the busy line clears.
	BusySettle time.Duration

	Sleep      []Step
	SleepDelay time.Duration
}

// PlaneSize is the byte length of one physical plane.
func (v Variant) PlaneSize() int {
	return (v.Width + 7) / 8 * v.Height
}

// SupportsPartial reports whether the variant can refresh with the
// partial bank.
func (v Variant) SupportsPartial() bool {
	return v.PartialRefresh
}

func (v Variant) validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("epd: variant %s: invalid geometry %dx%d", v.Name, v.Width, v.Height)
	}
	if v.Planes != 1 && v.Planes != 2 {
		return fmt.Errorf("epd: variant %s: unsupported plane count %d", v.Name, v.Planes)
	}
	if v.OldFrame && v.Planes != 1 {
		return fmt.Errorf("epd: variant %s: old-frame transfer needs a mono panel", v.Name)
	}
	if v.Full != nil {
		if err := v.Full.Validate(); err != nil {
			return fmt.Errorf("epd: variant %s full bank: %w", v.Name, err)
		}
	}
	if v.PartialRefresh {
		if v.Full == nil || v.Partial == nil {
			return fmt.Errorf("%w: variant %s supports partial refresh without both banks", ErrInvalidWaveformTable, v.Name)
		}
		if err := v.Partial.Validate(); err != nil {
			return fmt.Errorf("epd: variant %s partial bank: %w", v.Name, err)
		}
	}
	return nil
}

// resolution encodes the TRES payload: width, then height high/low byte.
func resolution(w, h int) []byte {
	return []byte{byte(w), byte(h >> 8), byte(h)}
}

// Physical geometry of the 2.9" panels.
const (
	panelWidth  = 128
	panelHeight = 296
)

// EPD2in9C is the 2.9" black/white/red panel. It runs on the built-in
// waveforms and only refreshes fully.
func EPD2in9C() Variant {
	return Variant{
		Name:   "2in9c",
		Width:  panelWidth,
		Height: panelHeight,
		Planes: 2,
		Reset:  ResetTiming{High: 50 * time.Millisecond, Low: 2 * time.Millisecond, Settle: 50 * time.Millisecond},
		Init: []Step{
			{Op: boosterSoftStart, Data: []byte{0x17, 0x17, 0x17}},
			{Op: powerOn, WaitIdle: true},
			{Op: panelSetting, Data: []byte{0x8F}},
			{Op: vcomDataInterval, Data: []byte{0x77}},
			{Op: resolutionSetting, Data: resolution(panelWidth, panelHeight)},
		},
		Sleep: []Step{
			{Op: powerOff, WaitIdle: true},
			{Op: deepSleep, Data: []byte{deepSleepCheck}},
		},
		SleepDelay: 2 * time.Second,
	}
}

// EPD2in9D is the 2.9" black/white panel with host-loaded waveforms for
// full and partial refresh.
func EPD2in9D() Variant {
	return Variant{
		Name:   "2in9d",
		Width:  panelWidth,
		Height: panelHeight,
		Planes: 1,
		Reset:  ResetTiming{High: 200 * time.Millisecond, Low: 2 * time.Millisecond, Settle: 200 * time.Millisecond},
		Init: []Step{
			{Op: powerSetting, Data: []byte{0x03, 0x00, 0x2B, 0x2B, 0x03}},
			{Op: boosterSoftStart, Data: []byte{0x17, 0x17, 0x17}},
			{Op: powerOn, WaitIdle: true},
			{Op: panelSetting, Data: []byte{0xBF, 0x0E}},
			{Op: pllControl, Data: []byte{0x3A}},
			{Op: resolutionSetting, Data: resolution(panelWidth, panelHeight)},
			{Op: vcmDCSetting, Data: []byte{0x28}},
		},
		Full: &WaveformSet{
			VCOM: lut2in9dVCOM[:],
			WW:   lut2in9dWW[:],
			BW:   lut2in9dBW[:],
			WB:   lut2in9dWB[:],
			BB:   lut2in9dBB[:],
		},
		FullBank: []Step{
			{Op: vcomDataInterval, Data: []byte{0xB7}},
		},
		PartialRefresh: true,
		Partial: &WaveformSet{
			VCOM: lut2in9dVCOMPartial[:],
			WW:   lut2in9dWWPartial[:],
			BW:   lut2in9dBWPartial[:],
			WB:   lut2in9dWBPartial[:],
			BB:   lut2in9dBBPartial[:],
		},
		PartialBank: []Step{
			{Op: vcmDCSetting, Data: []byte{0x00}},
			{Op: vcomDataInterval, Data: []byte{0xB7}},
		},
		OldFrame:     true,
		RefreshDelay: 100 * time.Millisecond,
		BusySettle:   200 * time.Millisecond,
		Sleep: []Step{
			{Op: vcomDataInterval, Data: []byte{0xF7}},
			{Op: powerOff, WaitIdle: true},
			{Op: deepSleep, Data: []byte{deepSleepCheck}},
		},
		SleepDelay: 100 * time.Millisecond,
	}
}

// VariantByName returns the variant registered under name ("2in9c",
// "2in9d"; an "epd" prefix is accepted).
func VariantByName(name string) (Variant, error) {
	switch strings.TrimPrefix(strings.ToLower(name), "epd") {
	case "2in9c", "2in9_c":
		return EPD2in9C(), nil
	case "2in9d", "2in9_d":
		return EPD2in9D(), nil
	default:
		return Variant{}, fmt.Errorf("epd: unknown panel variant %q", name)
	}
}
