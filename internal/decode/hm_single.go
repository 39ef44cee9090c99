package decode

import "encoding/binary"

// hmSingleString decodes HM-300 and HM-600 family fragments. Both models
// share a decoder table slot in the registry but differ in wire layout at
// several command codes, so the exact shape is chosen by model name.
func hmSingleString(modelName string, cmd byte, payload []byte) (Fragment, error) {
	switch modelName {
	case "HM-300":
		return hm300(cmd, payload)
	case "HM-600":
		return hm600(cmd, payload)
	default:
		return passThrough(cmd, payload), ErrUnknownCommand
	}
}

func hm300(cmd byte, payload []byte) (Fragment, error) {
	switch cmd {
	case 1:
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		u16 := binary.BigEndian.Uint16
		u32 := binary.BigEndian.Uint32
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
	case 0x82:
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		u16 := binary.BigEndian.Uint16
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
	case 2, 3, 4, 5, 6, 7, 0x81:
		return Fragment{Unknown: rawWords(cmd, payload)}, nil
	default:
		return Fragment{Unknown: rawWords(cmd, payload)}, ErrUnknownCommand
	}
}

func hm600(cmd byte, payload []byte) (Fragment, error) {
	switch cmd {
	case 1:
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		u16 := binary.BigEndian.Uint16
		u1 := u16(payload[2:4])
		i1 := u16(payload[4:6])
		p1 := u16(payload[6:8])
		u2 := u16(payload[8:10])
		i2 := u16(payload[10:12])
		p2 := u16(payload[12:14])
		uk8 := u16(payload[14:16])
		return Fragment{
			Strings: map[int]StringMeasurement{
				1: {Voltage: f64(float64(u1) * 0.1), Current: f64(float64(i1) * 0.01), Power: f64(float64(p1) * 0.1)},
				2: {Voltage: f64(float64(u2) * 0.1), Current: f64(float64(i2) * 0.01), Power: f64(float64(p2) * 0.1)},
			},
			AC:       ACMeasurement{Power: f64(float64(p1+p2) * 0.1)},
			EnergyHi: map[int]uint32{1: uint32(uk8) << 16},
		}, nil
	case 2:
		if len(payload) < 16 {
			return Fragment{}, ErrUnknownCommand
		}
		u16 := binary.BigEndian.Uint16
		u32 := binary.BigEndian.Uint32
		ptotal1 := u32(payload[0:4])
		ptotal2 := u16(payload[4:6])
		pday1 := u16(payload[6:8])
		pday2 := u16(payload[8:10])
		u := u16(payload[10:12])
		freq := u16(payload[12:14])
		p := u16(payload[14:16])

		uVolt := float64(u) * 0.1
		pPower := float64(p) * 0.1
		ac := ACMeasurement{
			Voltage:   f64(uVolt),
			Frequency: f64(float64(freq) * 0.01),
			Power:     f64(pPower),
		}
		if uVolt != 0 {
			ac.Current = f64(pPower / uVolt)
		}

		return Fragment{
			Strings: map[int]StringMeasurement{
				1: {EnergyToday: f64(float64(pday1))},
				2: {EnergyToday: f64(float64(pday2)), EnergyTotal: f64(float64(ptotal2))},
			},
			AC:              ac,
			EnergyLoPending: map[int]uint32{1: ptotal1},
		}, nil
	case 3, 4, 5, 6, 7, 0x84:
		return Fragment{Unknown: rawWords(cmd, payload)}, nil
	case 0x81:
		return Fragment{}, nil
	case 0x83:
		if len(payload) < 12 {
			return Fragment{}, ErrUnknownCommand
		}
		u16 := binary.BigEndian.Uint16
		i := u16(payload[2:4])
		t := u16(payload[6:8])
		return Fragment{AC: ACMeasurement{
			Current:     f64(float64(i) * 0.01),
			Temperature: f64(float64(t) * 0.1),
		}}, nil
	default:
		return Fragment{Unknown: rawWords(cmd, payload)}, ErrUnknownCommand
	}
}
