// Package decode turns per-model, per-command telemetry fragments into
// named electrical measurements. Each decode function is a pure function
// of its payload bytes; any arithmetic that spans more than one fragment
// (split 32-bit energy totals, power/current back-computed voltage) is
// expressed as carry-forward values that Apply folds into a per-poll
// Scratch as fragments are merged in ascending command order.
package decode

import (
	"errors"
	"time"
)

// ErrUnknownCommand is returned when no decode function is registered for
// a (decoder, command) pair; the caller then still receives a Fragment with
// the raw payload recorded under the Unknown map. It is also returned,
// with an empty Fragment, when a known command's payload is shorter than
// its layout.
var ErrUnknownCommand = errors.New("decode: unknown command code for this model")

// StringMeasurement is one DC string's (one MPPT channel's) telemetry.
// Fields are nil when not reported or not back-computable. When a
// back-computation finds a zero current, power and current are clamped to
// zero (not nil) and the voltage stays nil.
type StringMeasurement struct {
	Voltage     *float64
	Current     *float64
	Power       *float64
	EnergyToday *float64
	EnergyTotal *float64
}

// ACMeasurement is the inverter's grid-side telemetry.
type ACMeasurement struct {
	Voltage     *float64
	Current     *float64
	Frequency   *float64
	Power       *float64
	Temperature *float64
	LoadPercent *float64
}

// Fragment is the pure decode of a single response frame's payload. Merged
// across a full poll cycle (in ascending command order, via Apply) it
// becomes a Record.
type Fragment struct {
	Strings map[int]StringMeasurement
	AC      ACMeasurement
	Unknown map[string]uint16

	// EnergyHi carries the high 16 bits (already shifted left 16) of a
	// string's lifetime energy counter, for a later fragment that only
	// has the low 32 bits to combine with.
	EnergyHi map[int]uint32
	// EnergyLoPending carries a string's raw low-32-bit lifetime energy
	// reading that must be added to whatever high word a prior fragment
	// (if any) contributed via EnergyHi.
	EnergyLoPending map[int]uint32
	// CurrentCarry records a string's already-scaled current reading so
	// a later fragment that only reports that string's power can
	// back-compute its voltage.
	CurrentCarry map[int]float64
	// PendingVoltageFromPower records a string's already-scaled power
	// reading that needs a current value carried from an earlier
	// fragment (via CurrentCarry) to back-compute voltage.
	PendingVoltageFromPower map[int]float64
}

// FragmentMeta records how one fragment of a poll cycle was received, for
// sinks that surface link-quality detail (the file appender logs it
// verbatim; the MQTT sink ignores it).
type FragmentMeta struct {
	Command    byte
	RXChannel  int
	Latency    time.Duration
	IsRefetch  bool
}

// Record is one completed poll cycle's worth of decoded telemetry.
type Record struct {
	InverterSerial string
	Timestamp      time.Time
	TXChannel      int
	Fragments      []FragmentMeta
	Strings        map[int]StringMeasurement
	AC             ACMeasurement
	Unknown        map[string]uint16
	Valid          bool
}

// Scratch is the per-inverter-per-cycle context that bridges fragments.
// It is created fresh for each poll and discarded once the cycle's
// Record is emitted — nothing here survives across poll cycles.
type Scratch struct {
	EnergyHi     map[int]uint32
	CurrentCarry map[int]float64
}

// NewScratch returns an empty Scratch ready for one poll cycle.
func NewScratch() *Scratch {
	return &Scratch{
		EnergyHi:     make(map[int]uint32),
		CurrentCarry: make(map[int]float64),
	}
}

func f64(v float64) *float64 { return &v }

// backComputeVoltage derives a channel's voltage from its reported power
// and current, per the protocol-wide convention: only applied when
// current is nonzero, otherwise both power and current are clamped to
// zero along with the (absent) voltage.
func backComputeVoltage(power, current float64) (voltage, clampedPower, clampedCurrent float64) {
	if current == 0 {
		return 0, 0, 0
	}
	return power / current, power, current
}
