// Package model maps an inverter serial number's family prefix to a
// Model Descriptor: its human name, the number of telemetry fragments a
// complete poll produces, and which decoder table to dispatch through.
package model

import (
	"errors"
	"fmt"
)

// DecoderID names a decoder table in package decode. It is defined here
// (rather than in decode) so the registry has no import dependency on the
// decoder implementations themselves.
type DecoderID string

const (
	// DecoderHMSingleString covers one-MPPT HM-series inverters (HM-300,
	// HM-600 family).
	DecoderHMSingleString DecoderID = "hm_single_string"
	// DecoderHMDualString covers the two-MPPT HM-1200.
	DecoderHMDualString DecoderID = "hm_dual_string"
	// DecoderMILegacy covers the older MI-series inverters.
	DecoderMILegacy DecoderID = "mi_legacy"
	// DecoderPassThrough is used for unrecognized model prefixes: it
	// records only raw bytes, never interpreting them.
	DecoderPassThrough DecoderID = "pass_through"
)

// ErrUnknownModel is returned by Lookup for a serial prefix not present
// in the static registry. The returned Descriptor is still usable (a
// single-fragment pass-through), so callers that want to keep polling an
// unrecognized inverter for raw-bytes debugging purposes may do so.
var ErrUnknownModel = errors.New("model: unknown inverter model prefix")

// Descriptor describes one inverter model family.
type Descriptor struct {
	Name      string
	Fragments int
	Decoder   DecoderID
}

var registry = map[string]Descriptor{
	"1121": {Name: "HM-300", Fragments: 2, Decoder: DecoderHMSingleString},
	"1141": {Name: "HM-600", Fragments: 2, Decoder: DecoderHMSingleString},
	"1161": {Name: "HM-1200", Fragments: 4, Decoder: DecoderHMDualString},
	"1020": {Name: "MI-250", Fragments: 2, Decoder: DecoderMILegacy},
	"1021": {Name: "MI-300", Fragments: 2, Decoder: DecoderMILegacy},
	"1040": {Name: "MI-500", Fragments: 2, Decoder: DecoderMILegacy},
	"1060": {Name: "MI-1000", Fragments: 2, Decoder: DecoderMILegacy},
	"1061": {Name: "MI-1200", Fragments: 4, Decoder: DecoderMILegacy},
}

// Lookup returns the Model Descriptor for serial's 4-digit family prefix.
// Unknown prefixes yield a single-fragment pass-through descriptor along
// with ErrUnknownModel, so callers can decide whether to skip the
// inverter for the cycle (per the error handling design) or keep it
// around for raw debugging.
func Lookup(serial string) (Descriptor, error) {
	if len(serial) < 4 {
		return Descriptor{}, fmt.Errorf("%w: serial %q too short", ErrUnknownModel, serial)
	}
	prefix := serial[:4]
	if d, ok := registry[prefix]; ok {
		return d, nil
	}
	return Descriptor{Name: "unknown", Fragments: 1, Decoder: DecoderPassThrough},
		fmt.Errorf("%w: prefix %q", ErrUnknownModel, prefix)
}
