// Package sensor provides raw capacitive readout sources for the touch
// pipeline: scripted replays for tests and hardware-free demos, an RC
// charge-time reader on a bare GPIO pin, and the MPR121 controller over I2C.
package sensor

// Reader yields one raw capacitance sample per call. Readers are polled from
// a single goroutine at a time and do not need to be safe for concurrent use.
type Reader interface {
	Read() (int, error)
}

// ReaderFunc adapts a plain function to the Reader interface.
type ReaderFunc func() (int, error)

// Read calls f.
func (f ReaderFunc) Read() (int, error) { return f() }
