// Package addr converts Hoymiles-style ASCII serial numbers into the
// binary address forms the radio link and the wire protocol use.
package addr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidSerial is returned when a serial number is too short, or its
// last 8 characters are not valid hexadecimal digits.
var ErrInvalidSerial = errors.New("addr: invalid serial number")

// InverterAddr is the 32-bit BCD-derived address the inverters use to
// address each other in message headers, MSB first.
type InverterAddr [4]byte

// PipeAddr is the 5-byte radio pipe address, suitable for passing to a
// transceiver's openWritingPipe/openReadingPipe as-is (already in the
// byte order the radio library expects).
type PipeAddr [5]byte

// SerialToInverterAddr takes the last 8 characters of serial, interprets
// them as a hex-encoded BCD value, and packs them big-endian.
func SerialToInverterAddr(serial string) (InverterAddr, error) {
	var out InverterAddr
	if len(serial) < 8 {
		return out, fmt.Errorf("%w: %q shorter than 8 characters", ErrInvalidSerial, serial)
	}
	tail := serial[len(serial)-8:]

	bcd, err := strconv.ParseUint(tail, 16, 32)
	if err != nil {
		return out, fmt.Errorf("%w: %q: %v", ErrInvalidSerial, serial, err)
	}
	binary.BigEndian.PutUint32(out[:], uint32(bcd))
	return out, nil
}

// SerialToPipeAddr derives the 5-byte ESB pipe address: the inverter
// address reversed, with a trailing 0x01, reversed again. The trailing
// byte distinguishes this endpoint among the inverter's internal pipes.
func SerialToPipeAddr(serial string) (PipeAddr, error) {
	var out PipeAddr
	hm, err := SerialToInverterAddr(serial)
	if err != nil {
		return out, err
	}

	// reverse(hm) + 0x01
	var tmp [5]byte
	tmp[0] = hm[3]
	tmp[1] = hm[2]
	tmp[2] = hm[1]
	tmp[3] = hm[0]
	tmp[4] = 0x01

	// reverse again
	for i := range tmp {
		out[i] = tmp[len(tmp)-1-i]
	}
	return out, nil
}
