package epd

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PinNames are gpioreg names of the control lines, e.g. "GPIO17". CS may
// be empty when the SPI port's own chip select is wired to the panel.
type PinNames struct {
	Reset string
	DC    string
	CS    string
	Busy  string
}

// HardwareConfig selects the SPI port and pins for Open.
type HardwareConfig struct {
	// SPIPort is the spireg name; "" opens the first port (/dev/spidev0.0
	// on a Raspberry Pi).
	SPIPort string
	SPIFreq physic.Frequency
	Pins    PinNames
}

// DefaultPins is the Waveshare HAT wiring on a Raspberry Pi header.
var DefaultPins = PinNames{
	Reset: "GPIO17",
	DC:    "GPIO25",
	CS:    "",
	Busy:  "GPIO24",
}

const defaultSPIFreq = 4 * physic.MegaHertz

// Open initialises periph, connects the SPI port, configures the control
// lines and returns a driver that owns them. Close releases the port.
func Open(cfg HardwareConfig, v Variant, opts Options) (*Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph host init failed: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("epd: failed to open SPI port %q: %w", cfg.SPIPort, err)
	}
	freq := cfg.SPIFreq
	if freq <= 0 {
		freq = defaultSPIFreq
	}
	c, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: failed to connect SPI: %w", err)
	}

	pins, err := openPins(cfg.Pins)
	if err != nil {
		_ = port.Close()
		return nil, err
	}

	d, err := New(c, pins, v, opts)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	d.closer = port
	return d, nil
}

func openPins(n PinNames) (Pins, error) {
	out := func(name string, initial gpio.Level) (gpio.PinOut, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("epd: gpio %s not found", name)
		}
		if err := p.Out(initial); err != nil {
			return nil, fmt.Errorf("epd: gpio %s Out failed: %w", name, err)
		}
		return p, nil
	}

	var (
		pins Pins
		err  error
	)
	if pins.Reset, err = out(n.Reset, gpio.High); err != nil {
		return Pins{}, err
	}
	if pins.DC, err = out(n.DC, gpio.Low); err != nil {
		return Pins{}, err
	}
	if n.CS != "" {
		if pins.CS, err = out(n.CS, gpio.High); err != nil {
			return Pins{}, err
		}
	}

	busy := gpioreg.ByName(n.Busy)
	if busy == nil {
		return Pins{}, fmt.Errorf("epd: gpio %s not found", n.Busy)
	}
	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return Pins{}, fmt.Errorf("epd: gpio %s In failed: %w", n.Busy, err)
	}
	pins.Busy = busy
	return pins, nil
}
