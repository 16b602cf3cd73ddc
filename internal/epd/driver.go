// Package epd drives Waveshare 2.9" e-paper controllers over SPI with
// periph.io. One Driver handles every supported panel; the differences
// live in a Variant value.
package epd

import (
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"

	appLog "spacepanel/internal/log"
)

// Pins are the control lines. CS may be nil when the SPI port drives chip
// select itself.
type Pins struct {
	Reset gpio.PinOut
	DC    gpio.PinOut
	CS    gpio.PinOut
	Busy  gpio.PinIn
}

// Clock is the time source used for delays and the busy timeout.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Options tune a Driver. The zero value is usable.
type Options struct {
	// BusyTimeout bounds every busy wait. Defaults to DefaultBusyTimeout.
	BusyTimeout time.Duration
	// PollInterval is the pause between status queries. Defaults to 10ms.
	PollInterval time.Duration
	// MaxTxSize caps a single SPI transfer when the connection does not
	// report its own limit. Defaults to 4096.
	MaxTxSize int
	Clock     Clock
}

const (
	DefaultBusyTimeout  = 30 * time.Second
	defaultPollInterval = 10 * time.Millisecond
	defaultMaxTxSize    = 4096
)

// Driver owns the bus and control lines of one panel. It is not safe for
// concurrent use.
type Driver struct {
	c      conn.Conn
	pins   Pins
	v      Variant
	opts   Options
	closer io.Closer

	state State
	mode  RefreshMode
	// programmed is set once a waveform bank has been written for the
	// current init cycle.
	programmed bool
	// prev is the last frame pushed, used as the old frame for partial
	// refresh.
	prev []byte
}

// New validates the variant's waveform tables and returns an uninitialised
// driver. No bus traffic happens until Init.
func New(c conn.Conn, pins Pins, v Variant, opts Options) (*Driver, error) {
	if c == nil {
		return nil, fmt.Errorf("epd: nil connection")
	}
	if pins.Reset == nil || pins.DC == nil || pins.Busy == nil {
		return nil, fmt.Errorf("epd: reset, dc and busy pins are required")
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	v.Full = v.Full.clone()
	v.Partial = v.Partial.clone()

	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxTxSize <= 0 {
		opts.MaxTxSize = defaultMaxTxSize
	}
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 && l.MaxTxSize() < opts.MaxTxSize {
		opts.MaxTxSize = l.MaxTxSize()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Driver{c: c, pins: pins, v: v, opts: opts}, nil
}

func (d *Driver) State() State { return d.state }

// Mode is the refresh mode programmed by the last Init.
func (d *Driver) Mode() RefreshMode { return d.mode }

func (d *Driver) Variant() Variant { return d.v }

func (d *Driver) String() string { return "epd." + d.v.Name }

// Close powers the panel logic down and releases the SPI port when the
// driver opened it.
func (d *Driver) Close() error {
	_ = d.pins.Reset.Out(gpio.Low)
	d.state = Uninitialized
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

func (d *Driver) setState(s State) {
	if d.state != s {
		appLog.Debug("epd state", "panel", d.v.Name, "from", d.state, "to", s)
	}
	d.state = s
}

// Init resets the controller, sends the init sequence and, for variants
// with host-loaded waveforms, programs the bank for mode. It is valid from
// any state.
func (d *Driver) Init(mode RefreshMode) error {
	if mode == Partial && !d.v.SupportsPartial() {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedMode, mode, d.v.Name)
	}
	d.programmed = false
	d.prev = nil

	d.setState(Resetting)
	if err := d.reset(); err != nil {
		return err
	}

	d.setState(Initializing)
	if err := d.runSteps(d.v.Init); err != nil {
		return err
	}
	if d.v.Full != nil {
		if err := d.programWaveforms(mode); err != nil {
			return err
		}
	}
	d.mode = mode
	d.setState(Idle)
	return nil
}

func (d *Driver) reset() error {
	t := d.v.Reset
	if err := d.pinOut(d.pins.Reset, gpio.High, "reset"); err != nil {
		return err
	}
	d.opts.Clock.Sleep(t.High)
	if err := d.pinOut(d.pins.Reset, gpio.Low, "reset"); err != nil {
		return err
	}
	d.opts.Clock.Sleep(t.Low)
	if err := d.pinOut(d.pins.Reset, gpio.High, "reset"); err != nil {
		return err
	}
	d.opts.Clock.Sleep(t.Settle)
	return nil
}

// programWaveforms selects the register bank and writes the five tables
// verbatim.
func (d *Driver) programWaveforms(mode RefreshMode) error {
	if d.state != Initializing || d.programmed {
		return fmt.Errorf("%w: waveform programming in state %s", ErrInvalidState, d.state)
	}
	bank, set := d.v.FullBank, d.v.Full
	if mode == Partial {
		bank, set = d.v.PartialBank, d.v.Partial
	}
	if err := d.runSteps(bank); err != nil {
		return err
	}
	for _, t := range set.tables() {
		if err := d.command(t.op, t.data); err != nil {
			return err
		}
	}
	d.programmed = true
	appLog.Debug("epd waveforms programmed", "panel", d.v.Name, "mode", mode)
	return nil
}

// Display pushes one frame and refreshes. black (and red for two-plane
// panels) are physical planes of PlaneSize bytes. A nil red plane on a
// two-plane panel is sent blank.
func (d *Driver) Display(black, red []byte) error {
	if d.state != Idle {
		return fmt.Errorf("%w: display in state %s", ErrInvalidState, d.state)
	}
	size := d.v.PlaneSize()
	if len(black) != size {
		return fmt.Errorf("%w: black plane has %d bytes, want %d", ErrBufferSize, len(black), size)
	}
	if d.v.Planes == 2 {
		if red == nil {
			red = filled(size, 0xFF)
		} else if len(red) != size {
			return fmt.Errorf("%w: red plane has %d bytes, want %d", ErrBufferSize, len(red), size)
		}
	}
	return d.pushFrame(black, red)
}

// Clear pushes uniformly filled planes, 0xFF being blank. red is ignored
// on mono panels.
func (d *Driver) Clear(black, red byte) error {
	if d.state != Idle {
		return fmt.Errorf("%w: clear in state %s", ErrInvalidState, d.state)
	}
	size := d.v.PlaneSize()
	var redPlane []byte
	if d.v.Planes == 2 {
		redPlane = filled(size, red)
	}
	if d.v.OldFrame {
		// The old frame must be the inverse or the controller sees no
		// change to drive.
		d.prev = filled(size, ^black)
	}
	return d.pushFrame(filled(size, black), redPlane)
}

func (d *Driver) pushFrame(black, red []byte) error {
	if d.v.OldFrame {
		old := d.prev
		if old == nil || d.mode == Full {
			old = filled(len(black), 0x00)
		}
		if err := d.command(dataStartTransmission1, old); err != nil {
			return err
		}
		if err := d.command(dataStartTransmission2, black); err != nil {
			return err
		}
	} else {
		if err := d.command(dataStartTransmission1, black); err != nil {
			return err
		}
		if d.v.Planes == 2 {
			if err := d.command(dataStartTransmission2, red); err != nil {
				return err
			}
		}
	}

	d.setState(Refreshing)
	if err := d.command(displayRefresh, nil); err != nil {
		return err
	}
	d.opts.Clock.Sleep(d.v.RefreshDelay)
	if err := d.waitIdle(); err != nil {
		return err
	}
	d.prev = append(d.prev[:0], black...)
	d.setState(Idle)
	return nil
}

// Sleep puts the controller into deep sleep and drops the reset line. It
// is a no-op when the panel is not initialised or already asleep.
func (d *Driver) Sleep() error {
	switch d.state {
	case Uninitialized, Sleeping:
		return nil
	case Idle:
	default:
		return fmt.Errorf("%w: sleep in state %s", ErrInvalidState, d.state)
	}
	if err := d.runSteps(d.v.Sleep); err != nil {
		return err
	}
	d.opts.Clock.Sleep(d.v.SleepDelay)
	if err := d.pinOut(d.pins.Reset, gpio.Low, "reset"); err != nil {
		return err
	}
	d.prev = nil
	d.setState(Sleeping)
	return nil
}

func (d *Driver) runSteps(steps []Step) error {
	for _, s := range steps {
		if err := d.command(s.Op, s.Data); err != nil {
			return err
		}
		if s.WaitIdle {
			if err := d.waitIdle(); err != nil {
				return err
			}
		}
	}
	return nil
}

// waitIdle polls the busy line (low = busy) with a status query before
// every read, up to BusyTimeout.
func (d *Driver) waitIdle() error {
	clk := d.opts.Clock
	start := clk.Now()
	for {
		if err := d.command(getStatus, nil); err != nil {
			return err
		}
		if d.pins.Busy.Read() == gpio.High {
			break
		}
		elapsed := clk.Now().Sub(start)
		if elapsed >= d.opts.BusyTimeout {
			err := fmt.Errorf("%w: busy for %s in state %s", ErrHardwareTimeout, elapsed, d.state)
			d.fail()
			appLog.Error("epd busy wait timed out", err, "panel", d.v.Name, "timeout", d.opts.BusyTimeout)
			return err
		}
		clk.Sleep(d.opts.PollInterval)
	}
	appLog.Debug("epd busy released", "panel", d.v.Name, "elapsed", clk.Now().Sub(start))
	clk.Sleep(d.v.BusySettle)
	return nil
}

// command sends op followed by its data, if any.
func (d *Driver) command(op Opcode, data []byte) error {
	if err := d.pinOut(d.pins.DC, gpio.Low, "dc"); err != nil {
		return err
	}
	if err := d.transfer([]byte{byte(op)}); err != nil {
		return fmt.Errorf("epd: command %s: %w", op, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.pinOut(d.pins.DC, gpio.High, "dc"); err != nil {
		return err
	}
	if err := d.transfer(data); err != nil {
		return fmt.Errorf("epd: data for %s (%d bytes): %w", op, len(data), err)
	}
	return nil
}

// transfer writes b in MaxTxSize chunks inside one chip-select window.
func (d *Driver) transfer(b []byte) error {
	if d.pins.CS != nil {
		if err := d.pinOut(d.pins.CS, gpio.Low, "cs"); err != nil {
			return err
		}
	}
	for len(b) > 0 {
		n := min(len(b), d.opts.MaxTxSize)
		if err := d.c.Tx(b[:n], nil); err != nil {
			d.fail()
			return fmt.Errorf("%w: %w", ErrBusAccess, err)
		}
		b = b[n:]
	}
	if d.pins.CS != nil {
		return d.pinOut(d.pins.CS, gpio.High, "cs")
	}
	return nil
}

func (d *Driver) pinOut(p gpio.PinOut, l gpio.Level, name string) error {
	if err := p.Out(l); err != nil {
		d.fail()
		return fmt.Errorf("%w: %s pin: %w", ErrBusAccess, name, err)
	}
	return nil
}

// fail drops the driver back to Uninitialized; the caller must Init again.
func (d *Driver) fail() {
	d.programmed = false
	d.prev = nil
	d.setState(Uninitialized)
}

func filled(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}
