package decode

import "encoding/binary"

// miLegacy decodes the older MI-series inverters. No attested capture of
// this wire format was available in the source this decoder was built
// from; its layout is modeled directly on the closest attested family
// (HM-300's single-string shape, repeated per string) rather than derived
// from a real trace. Treat its output with correspondingly lower
// confidence than the HM decoders.
func miLegacy(modelName string, cmd byte, payload []byte) (Fragment, error) {
	u16 := binary.BigEndian.Uint16
	u32 := binary.BigEndian.Uint32

	switch cmd {
	case 1:
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		u1 := u16(payload[2:4])
		i1 := u16(payload[4:6])
		p1 := u16(payload[6:8])
		ptotal := u32(payload[8:12])
		pday := u16(payload[12:14])
		u := u16(payload[14:16])
		return Fragment{
			Strings: map[int]StringMeasurement{
				1: {
					Voltage:     f64(float64(u1) * 0.1),
					Current:     f64(float64(i1) * 0.01),
					Power:       f64(float64(p1) * 0.1),
					EnergyToday: f64(float64(pday)),
					EnergyTotal: f64(float64(ptotal)),
				},
			},
			AC: ACMeasurement{Voltage: f64(float64(u) * 0.1)},
		}, nil

	case 2:
		// Only the four-fragment member (MI-1200, prefix 1061) sends this
		// command; two-string members go straight from 1 to 0x82.
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		u2 := u16(payload[2:4])
		i2 := u16(payload[4:6])
		p2 := u16(payload[6:8])
		ptotal2 := u32(payload[8:12])
		pday2 := u16(payload[12:14])
		return Fragment{
			Strings: map[int]StringMeasurement{
				2: {
					Voltage:     f64(float64(u2) * 0.1),
					Current:     f64(float64(i2) * 0.01),
					Power:       f64(float64(p2) * 0.1),
					EnergyToday: f64(float64(pday2)),
					EnergyTotal: f64(float64(ptotal2)),
				},
			},
		}, nil

	case 3:
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		u3 := u16(payload[0:2])
		i3 := u16(payload[2:4])
		p3 := u16(payload[4:6])
		u4 := u16(payload[6:8])
		i4 := u16(payload[8:10])
		p4 := u16(payload[10:12])
		pday3 := u16(payload[12:14])
		pday4 := u16(payload[14:16])
		return Fragment{
			Strings: map[int]StringMeasurement{
				3: {
					Voltage:     f64(float64(u3) * 0.1),
					Current:     f64(float64(i3) * 0.01),
					Power:       f64(float64(p3) * 0.1),
					EnergyToday: f64(float64(pday3)),
				},
				4: {
					Voltage:     f64(float64(u4) * 0.1),
					Current:     f64(float64(i4) * 0.01),
					Power:       f64(float64(p4) * 0.1),
					EnergyToday: f64(float64(pday4)),
				},
			},
		}, nil

	case 0x82:
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		freq := u16(payload[0:2])
		p := u16(payload[2:4])
		i := u16(payload[6:8])
		t := u16(payload[10:12])
		return Fragment{AC: ACMeasurement{
			Frequency:   f64(float64(freq) * 0.01),
			Power:       f64(float64(p) * 0.1),
			Current:     f64(float64(i) * 0.01),
			Temperature: f64(float64(t) * 0.1),
		}}, nil

	default:
		return Fragment{Unknown: rawWords(cmd, payload)}, ErrUnknownCommand
	}
}
