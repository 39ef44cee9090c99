// Package frame builds outbound poll/re-fetch request frames and
// validates inbound telemetry response frames for the Hoymiles ESB wire
// protocol.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/vbragin/hoymiles-dtu/internal/addr"
)

const (
	// RequestMarker is byte 0 of every outbound request frame.
	RequestMarker byte = 0x15
	// ResponseMarker is byte 0 of every inbound telemetry frame.
	ResponseMarker byte = 0x95

	pollMessageType byte = 0x80
	pollSubtype     byte = 0x0b

	// refetchBit marks a command byte as addressing a specific missing
	// fragment index rather than a normal poll.
	refetchBit byte = 0x80
)

// ErrMalformedFrame is returned by Decode when the buffer is too short to
// contain a valid response header and trailing checksum.
var ErrMalformedFrame = errors.New("frame: malformed response frame")

// ErrCRCMismatch is not returned by Decode (a CRC failure does not prevent
// parsing); callers wrap it when logging a Response with CRCValid == false.
var ErrCRCMismatch = errors.New("frame: outer CRC-8 mismatch")

// EncodePollRequest builds a standard 0x80 poll request addressed from
// srcSerial (the DTU) to dstSerial, stamped with ts.
func EncodePollRequest(dstSerial, srcSerial string, ts time.Time) ([]byte, error) {
	dst, err := addr.SerialToInverterAddr(dstSerial)
	if err != nil {
		return nil, fmt.Errorf("frame: encode poll: %w", err)
	}
	src, err := addr.SerialToInverterAddr(srcSerial)
	if err != nil {
		return nil, fmt.Errorf("frame: encode poll: %w", err)
	}

	buf := make([]byte, 0, 27)
	buf = append(buf, RequestMarker)
	buf = append(buf, dst[:]...)
	buf = append(buf, src[:]...)
	buf = append(buf, pollMessageType)

	// encapsulated payload: subtype, pad byte, big-endian unix timestamp,
	// then a fixed pad trailer.
	payload := make([]byte, 0, 14)
	payload = append(payload, pollSubtype, 0x00)
	var tsBuf [4]byte
	binary.BigEndian.PutUint32(tsBuf[:], uint32(ts.Unix()))
	payload = append(payload, tsBuf[:]...)
	payload = append(payload, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00)

	crcM := modbusCRC16(payload)
	buf = append(buf, payload...)
	var crcMBuf [2]byte
	binary.BigEndian.PutUint16(crcMBuf[:], crcM)
	buf = append(buf, crcMBuf[:]...)

	buf = append(buf, crc8(buf))
	return buf, nil
}

// EncodeRefetchRequest builds a short request for a single missing
// fragment index (1-based). Only the outer CRC-8 is appended.
func EncodeRefetchRequest(dstSerial, srcSerial string, fragmentIndex int) ([]byte, error) {
	dst, err := addr.SerialToInverterAddr(dstSerial)
	if err != nil {
		return nil, fmt.Errorf("frame: encode refetch: %w", err)
	}
	src, err := addr.SerialToInverterAddr(srcSerial)
	if err != nil {
		return nil, fmt.Errorf("frame: encode refetch: %w", err)
	}

	buf := make([]byte, 0, 10)
	buf = append(buf, RequestMarker)
	buf = append(buf, dst[:]...)
	buf = append(buf, src[:]...)
	buf = append(buf, refetchBit|byte(fragmentIndex))
	buf = append(buf, crc8(buf))
	return buf, nil
}

// Response is a validated (or at least parsed) inbound telemetry frame.
type Response struct {
	Marker   byte
	Src      addr.InverterAddr
	Dst      addr.InverterAddr
	Command  byte
	Payload  []byte // bytes [10:len-1], model-specific measurement words
	CRCValid bool
}

// IsRefetchReply reports whether Command addresses a specific fragment
// index rather than being a normal sequential fragment.
func (r Response) IsRefetchReply() bool { return r.Command&refetchBit != 0 }

// FragmentIndex returns the 1-based fragment index this response carries,
// whether it arrived as a normal sequential fragment or a re-fetch reply.
func (r Response) FragmentIndex() int { return int(r.Command &^ refetchBit) }

// Decode validates and parses a raw inbound buffer. A CRC-8 mismatch does
// not prevent parsing: the response is returned with CRCValid = false so
// the engine can still inspect it, but strict sinks must not see the
// resulting record.
func Decode(buf []byte) (Response, error) {
	var r Response
	if len(buf) < 11 {
		return r, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(buf))
	}

	want := buf[len(buf)-1]
	got := crc8(buf[:len(buf)-1])
	r.CRCValid = want == got

	r.Marker = buf[0]
	copy(r.Src[:], buf[1:5])
	copy(r.Dst[:], buf[5:9])
	r.Command = buf[9]
	r.Payload = buf[10 : len(buf)-1]
	return r, nil
}
