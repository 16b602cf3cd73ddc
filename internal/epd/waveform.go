package epd

import "fmt"

// Register sizes of the LUT tables. They are fixed by the controller and
// must be sent exactly.
const (
	VCOMTableLen = 44
	LUTTableLen  = 42
)

// WaveformSet is one bank of LUT tables.
type WaveformSet struct {
	VCOM []byte
	WW   []byte
	BW   []byte
	WB   []byte
	BB   []byte
}

type lutTable struct {
	op   Opcode
	name string
	data []byte
	size int
}

func (w *WaveformSet) tables() []lutTable {
	return []lutTable{
		{lutVCOM, "VCOM", w.VCOM, VCOMTableLen},
		{lutWW, "WW", w.WW, LUTTableLen},
		{lutBW, "BW", w.BW, LUTTableLen},
		{lutWB, "WB", w.WB, LUTTableLen},
		{lutBB, "BB", w.BB, LUTTableLen},
	}
}

// Validate checks every table length.
func (w *WaveformSet) Validate() error {
	for _, t := range w.tables() {
		if len(t.data) != t.size {
			return fmt.Errorf("%w: %s has %d bytes, want %d", ErrInvalidWaveformTable, t.name, len(t.data), t.size)
		}
	}
	return nil
}

func (w *WaveformSet) clone() *WaveformSet {
	if w == nil {
		return nil
	}
	cp := func(b []byte) []byte { return append([]byte(nil), b...) }
	return &WaveformSet{VCOM: cp(w.VCOM), WW: cp(w.WW), BW: cp(w.BW), WB: cp(w.WB), BB: cp(w.BB)}
}

// 2.9" D full refresh tables.
var (
	lut2in9dVCOM = [VCOMTableLen]byte{
		0x00, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x60, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x00, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x12, 0x12, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	lut2in9dWW = [LUTTableLen]byte{
		0x40, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x40, 0x14, 0x00, 0x00, 0x00, 0x01,
		0xA0, 0x12, 0x12, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	lut2in9dBW = [LUTTableLen]byte{
		0x40, 0x17, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x0F, 0x0F, 0x00, 0x00, 0x03,
		0x40, 0x0A, 0x01, 0x00, 0x00, 0x01,
		0xA0, 0x0E, 0x0E, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	// WB and BB are identical for the full bank.
	lut2in9dWB = [LUTTableLen]byte{
		0x80, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x80, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x50, 0x12, 0x12, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	lut2in9dBB = lut2in9dWB
)

// 2.9" D partial refresh tables.
var (
	lut2in9dVCOMPartial = [VCOMTableLen]byte{
		0x00, 0x19, 0x01, 0x00, 0x00, 0x01,
	}
	lut2in9dWWPartial = [LUTTableLen]byte{
		0x00, 0x19, 0x01, 0x00, 0x00, 0x01,
	}
	lut2in9dBWPartial = [LUTTableLen]byte{
		0x80, 0x19, 0x01, 0x00, 0x00, 0x01,
	}
	lut2in9dWBPartial = [LUTTableLen]byte{
		0x40, 0x19, 0x01, 0x00, 0x00, 0x01,
	}
	lut2in9dBBPartial = [LUTTableLen]byte{
		0x00, 0x19, 0x01, 0x00, 0x00, 0x01,
	}
)
