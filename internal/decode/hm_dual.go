package decode

import "encoding/binary"

// hmDualString decodes the HM-1200 (two-MPPT, four-string) fragment set.
// Strings 1, 3 and 4 report their lifetime energy total whole, as a single
// 32-bit word (string 1 in cmd 1, strings 3 and 4 in cmd 3). String 2's
// total is split like HM-600's: cmd 1's last word is its high part, carried
// forward and added (shifted left 16) to the 32-bit low part in cmd 2.
// The other cross-fragment dependency is string 4's voltage: its
// current is reported in cmd 2 and its power in cmd 3, with no direct
// voltage register at all, so the current is carried forward and the
// voltage is back-computed once the power arrives.
func hmDualString(cmd byte, payload []byte) (Fragment, error) {
	u16 := binary.BigEndian.Uint16
	u32 := binary.BigEndian.Uint32

	switch cmd {
	case 1:
		if len(payload) < 18 {
			return Fragment{}, ErrUnknownCommand
		}
		uk1 := u16(payload[0:2])
		u1 := u16(payload[2:4])
		i1 := u16(payload[4:6])
		i2 := u16(payload[6:8])
		p1 := u16(payload[8:10])
		p2 := u16(payload[10:12])
		ptotal1 := u32(payload[12:16])
		uk8 := u16(payload[16:18])

		return Fragment{
			Strings: map[int]StringMeasurement{
				1: {
					Voltage:     f64(float64(u1) * 0.1),
					Current:     f64(float64(i1) * 0.01),
					Power:       f64(float64(p1) * 0.1),
					EnergyTotal: f64(float64(ptotal1)),
				},
				2: {
					Current: f64(float64(i2) * 0.01),
					Power:   f64(float64(p2) * 0.1),
				},
			},
			Unknown: map[string]uint16{
				wordKey(cmd, 0): uk1,
				wordKey(cmd, 8): uk8,
			},
			EnergyHi: map[int]uint32{2: uint32(uk8) << 16},
		}, nil

	case 2:
		if len(payload) < 18 {
			return Fragment{}, ErrUnknownCommand
		}
		ptotal2 := u32(payload[0:4])
		pday1 := u16(payload[4:6])
		pday2 := u16(payload[6:8])
		u2 := u16(payload[8:10])
		i3 := u16(payload[10:12])
		i4 := u16(payload[12:14])
		p3 := u16(payload[14:16])
		uk8 := u16(payload[16:18])

		i3Scaled := float64(i3) * 0.01
		p3Scaled := float64(p3) * 0.1
		v3, p3Out, i3Out := backComputeVoltage(p3Scaled, i3Scaled)
		s3 := StringMeasurement{Power: f64(p3Out), Current: f64(i3Out)}
		if i3Scaled != 0 {
			s3.Voltage = f64(v3)
		}

		return Fragment{
			Strings: map[int]StringMeasurement{
				1: {EnergyToday: f64(float64(pday1))},
				2: {
					Voltage:     f64(float64(u2) * 0.1),
					EnergyToday: f64(float64(pday2)),
					EnergyTotal: f64(float64(ptotal2)),
				},
				3: s3,
			},
			CurrentCarry:    map[int]float64{4: float64(i4) * 0.01},
			EnergyLoPending: map[int]uint32{2: ptotal2},
			Unknown: map[string]uint16{
				wordKey(cmd, 8): uk8,
			},
		}, nil

	case 3:
		if len(payload) < 18 {
			return Fragment{}, ErrUnknownCommand
		}
		p4 := u16(payload[0:2])
		ptotal3 := u32(payload[2:6])
		ptotal4 := u32(payload[6:10])
		pday3 := u16(payload[10:12])
		pday4 := u16(payload[12:14])
		uAC := u16(payload[14:16])
		uk7 := u16(payload[16:18])

		return Fragment{
			Strings: map[int]StringMeasurement{
				3: {EnergyToday: f64(float64(pday3)), EnergyTotal: f64(float64(ptotal3))},
				4: {EnergyToday: f64(float64(pday4)), EnergyTotal: f64(float64(ptotal4))},
			},
			AC:                      ACMeasurement{Voltage: f64(float64(uAC) * 0.1)},
			PendingVoltageFromPower: map[int]float64{4: float64(p4) * 0.1},
			Unknown: map[string]uint16{
				wordKey(cmd, 7): uk7,
			},
		}, nil

	case 0x84:
		if len(payload) < 12 {
			return Fragment{}, ErrUnknownCommand
		}
		freq := u16(payload[0:2])
		p := u16(payload[2:4])
		uk3 := u16(payload[4:6])
		i := u16(payload[6:8])
		loadPct := u16(payload[8:10])
		t := u16(payload[10:12])

		pScaled := float64(p) * 0.1
		iScaled := float64(i) * 0.01
		v, pOut, iOut := backComputeVoltage(pScaled, iScaled)

		ac := ACMeasurement{
			Frequency:   f64(float64(freq) * 0.01),
			Power:       f64(pOut),
			Current:     f64(iOut),
			Temperature: f64(float64(t) * 0.1),
			LoadPercent: f64(float64(loadPct) * 0.1),
		}
		if iScaled != 0 {
			ac.Voltage = f64(v)
		}
		return Fragment{
			AC:      ac,
			Unknown: map[string]uint16{wordKey(cmd, 2): uk3},
		}, nil

	default:
		return Fragment{Unknown: rawWords(cmd, payload)}, ErrUnknownCommand
	}
}
