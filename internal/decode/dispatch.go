package decode

import "github.com/vbragin/hoymiles-dtu/internal/model"

// Decode dispatches payload to the decoder family named by id, then to the
// exact layout for (modelName, cmd) within that family. Unrecognized
// commands within an otherwise-known family still return a usable
// Fragment (the payload recorded as raw debug words) alongside
// ErrUnknownCommand, matching the registry's own never-refuse-data
// posture.
func Decode(modelName string, id model.DecoderID, cmd byte, payload []byte) (Fragment, error) {
	switch id {
	case model.DecoderHMSingleString:
		return hmSingleString(modelName, cmd, payload)
	case model.DecoderHMDualString:
		return hmDualString(cmd, payload)
	case model.DecoderMILegacy:
		return miLegacy(modelName, cmd, payload)
	default:
		return passThrough(cmd, payload), nil
	}
}

// Apply merges one fragment's decode into rec, threading any cross-fragment
// carry state through scratch. Fragments must be applied in ascending
// command order within a poll cycle for the energy-split and
// back-computed-voltage carries to resolve correctly.
func Apply(scratch *Scratch, rec *Record, frag Fragment) {
	if rec.Strings == nil {
		rec.Strings = make(map[int]StringMeasurement)
	}
	if rec.Unknown == nil {
		rec.Unknown = make(map[string]uint16)
	}

	for idx, sm := range frag.Strings {
		merged := rec.Strings[idx]
		mergeStringMeasurement(&merged, sm)
		rec.Strings[idx] = merged
	}
	mergeACMeasurement(&rec.AC, frag.AC)
	for k, v := range frag.Unknown {
		rec.Unknown[k] = v
	}

	for idx, hi := range frag.EnergyHi {
		scratch.EnergyHi[idx] = hi
	}
	for idx, cur := range frag.CurrentCarry {
		scratch.CurrentCarry[idx] = cur
	}

	for idx, lo := range frag.EnergyLoPending {
		total := float64(scratch.EnergyHi[idx]) + float64(lo)
		merged := rec.Strings[idx]
		merged.EnergyTotal = f64(total)
		rec.Strings[idx] = merged
	}

	for idx, power := range frag.PendingVoltageFromPower {
		current := scratch.CurrentCarry[idx]
		v, p, i := backComputeVoltage(power, current)
		merged := rec.Strings[idx]
		if current == 0 {
			merged.Power = f64(p)
			merged.Current = f64(i)
		} else {
			merged.Voltage = f64(v)
			merged.Power = f64(p)
		}
		rec.Strings[idx] = merged
	}
}

func mergeStringMeasurement(dst *StringMeasurement, src StringMeasurement) {
	if src.Voltage != nil {
		dst.Voltage = src.Voltage
	}
	if src.Current != nil {
		dst.Current = src.Current
	}
	if src.Power != nil {
		dst.Power = src.Power
	}
	if src.EnergyToday != nil {
		dst.EnergyToday = src.EnergyToday
	}
	if src.EnergyTotal != nil {
		dst.EnergyTotal = src.EnergyTotal
	}
}

func mergeACMeasurement(dst *ACMeasurement, src ACMeasurement) {
	if src.Voltage != nil {
		dst.Voltage = src.Voltage
	}
	if src.Current != nil {
		dst.Current = src.Current
	}
	if src.Frequency != nil {
		dst.Frequency = src.Frequency
	}
	if src.Power != nil {
		dst.Power = src.Power
	}
	if src.Temperature != nil {
		dst.Temperature = src.Temperature
	}
	if src.LoadPercent != nil {
		dst.LoadPercent = src.LoadPercent
	}
}
