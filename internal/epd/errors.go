package epd

import "errors"

var (
	// ErrHardwareTimeout means the busy line did not clear within
	// Options.BusyTimeout. The controller state is unknown afterwards and
	// the driver has to be initialised again.
	ErrHardwareTimeout = errors.New("epd: hardware timeout")

	// ErrInvalidWaveformTable is returned by New when a waveform table has
	// the wrong length for its register.
	ErrInvalidWaveformTable = errors.New("epd: invalid waveform table")

	// ErrBusAccess wraps SPI and GPIO failures. The driver drops back to
	// Uninitialized.
	ErrBusAccess = errors.New("epd: bus access failed")

	ErrInvalidState    = errors.New("epd: operation not valid in current state")
	ErrBufferSize      = errors.New("epd: buffer size mismatch")
	ErrUnsupportedMode = errors.New("epd: refresh mode not supported by variant")
)
