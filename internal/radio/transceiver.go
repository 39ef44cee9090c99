// Package radio defines the abstract transceiver operations the polling
// engine needs from an nRF24L01-style Enhanced ShockBurst radio, and
// ships a scripted simulated implementation. No concrete SPI/GPIO driver
// is provided here; hardware bring-up is out of scope, but a real driver
// can implement Transceiver without any change to the engine.
package radio

import "errors"

// ErrRadioInit is returned when a Transceiver cannot be brought up into a
// usable state (power-on self test, register write failure, and the
// like). It is fatal: the engine aborts startup with a nonzero exit code.
var ErrRadioInit = errors.New("radio: initialization failed")

// Config is the register-level configuration the engine requires applied
// once at startup, matching the reference link's fixed parameters.
type Config struct {
	DynamicPayload bool
	AutoAck        bool
	RetryCount     int // 0..15
	RetryDelay     int // ×250µs steps
	DataRateKbps   int // 250, 1000, or 2000
	LowPALevel     bool
}

// DefaultConfig is the configuration every production poll cycle uses:
// dynamic payload, auto-ack, 15 retries at delay step 2 (2×250µs),
// 250kbps, low PA level.
func DefaultConfig() Config {
	return Config{
		DynamicPayload: true,
		AutoAck:        true,
		RetryCount:     15,
		RetryDelay:     2,
		DataRateKbps:   250,
		LowPALevel:     true,
	}
}

// Transceiver is the full set of radio operations the engine drives. An
// implementation over real hardware, and the bundled Simulated one, both
// satisfy it identically from the engine's point of view.
type Transceiver interface {
	// Configure applies cfg; called once before the first poll.
	Configure(cfg Config) error

	SetTXChannel(ch int) error
	SetRXChannel(ch int) error
	OpenWritePipe(pipe [5]byte) error
	OpenReadPipe(pipe [5]byte) error

	BeginReceive() error
	EndReceive() error

	// Send transmits b synchronously and reports whether the link-level
	// auto-ack was received.
	Send(b []byte) bool
	// TryReceive is a nonblocking drain of at most one buffered frame.
	TryReceive() ([]byte, bool)

	FlushRX() error
	FlushTX() error
	PowerDown() error
}
