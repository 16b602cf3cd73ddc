// Package battery reads the charge of a PiSugar-style UPS board over I2C.
package battery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"spacepanel/internal/config"
	appLog "spacepanel/internal/log"
)

// PiSugar3 registers.
const (
	regVoltageHigh = 0x22
	regVoltageLow  = 0x23
	regPercent     = 0x2A
)

// Status represents current battery status for Web UI / API.
type Status struct {
	// Percent is the battery level in 0–100%.
	Percent int `json:"percent"`
	// VoltageMv is the battery voltage in millivolts, 0 if unknown.
	VoltageMv int `json:"voltage_mv"`
}

// Reader abstracts how we obtain battery information.
type Reader interface {
	Read(ctx context.Context) (Status, error)
}

// mockReader is used for development. It returns a pseudo-random
// percentage and no voltage.
type mockReader struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// i2cReader talks to the battery controller over I2C:
//   - 0x22 (high), 0x23 (low): battery voltage in millivolts
//   - 0x2A: battery percentage (0–100)
type i2cReader struct {
	busName string
	addr    uint16
}

// NewMockReader constructs a Reader that generates random percentages.
func NewMockReader() Reader {
	return &mockReader{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewI2CReader constructs an I2C-backed Reader. busName is the i2creg
// name ("" for the first bus, /dev/i2c-1 on a Raspberry Pi) and addr the
// 7-bit device address. The bus is opened on every Read.
func NewI2CReader(busName string, addr uint16) Reader {
	return &i2cReader{
		busName: busName,
		addr:    addr,
	}
}

func (m *mockReader) Read(_ context.Context) (Status, error) {
	m.mu.Lock()
	p := 20 + m.rnd.Intn(81) // 20..100 inclusive
	m.mu.Unlock()
	return Status{Percent: p}, nil
}

// Read implements Reader for the I2C-backed reader.
func (r *i2cReader) Read(ctx context.Context) (Status, error) {
	if runtime.GOOS != "linux" {
		return Status{}, errors.New("battery: i2c reader unavailable on this platform")
	}
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	if _, err := host.Init(); err != nil {
		return Status{}, fmt.Errorf("battery: periph host init failed: %w", err)
	}

	bus, err := i2creg.Open(r.busName)
	if err != nil {
		return Status{}, fmt.Errorf("battery: open i2c bus %q: %w", r.busName, err)
	}
	defer bus.Close()

	return readStatus(&i2c.Dev{Bus: bus, Addr: r.addr})
}

// register is the part of *i2c.Dev readStatus uses.
type register interface {
	Tx(w, r []byte) error
}

func readStatus(dev register) (Status, error) {
	readReg := func(reg byte) (byte, error) {
		buf := []byte{0}
		if err := dev.Tx([]byte{reg}, buf); err != nil {
			return 0, fmt.Errorf("battery: read register 0x%02X: %w", reg, err)
		}
		return buf[0], nil
	}

	high, err := readReg(regVoltageHigh)
	if err != nil {
		return Status{}, err
	}
	low, err := readReg(regVoltageLow)
	if err != nil {
		return Status{}, err
	}
	pct, err := readReg(regPercent)
	if err != nil {
		return Status{}, err
	}
	if pct > 100 {
		pct = 100
	}

	return Status{
		Percent:   int(pct),
		VoltageMv: int(uint16(high)<<8 | uint16(low)),
	}, nil
}

// FromConfig returns the Reader the program should use. A disabled
// battery, a non-Linux host or a controller that does not answer a probe
// read all yield the mock reader.
func FromConfig(cfg config.BatteryConfig) Reader {
	if !cfg.Enabled || runtime.GOOS != "linux" {
		return NewMockReader()
	}

	r := NewI2CReader(cfg.I2CBus, cfg.I2CAddr)
	if _, err := r.Read(context.Background()); err != nil {
		appLog.Warn("battery controller not reachable; using mock reader", "bus", cfg.I2CBus, "addr", fmt.Sprintf("0x%02X", cfg.I2CAddr), "err", err)
		return NewMockReader()
	}
	return r
}
