package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestEncodePollRequestReferenceBytes checks the frame length, the fixed
// header and payload bytes, and the big-endian timestamp for the
// parameters documented in the spec (src=dst=72220200, a fixed timestamp),
// and that the trailing CRC-8 matches the preceding 26 bytes.
func TestEncodePollRequestReferenceBytes(t *testing.T) {
	ts := time.Unix(0x623C8ECF, 0).UTC()
	buf, err := EncodePollRequest("72220200", "72220200", ts)
	require.NoError(t, err)

	require.Len(t, buf, 27)
	assert.Equal(t, RequestMarker, buf[0])
	assert.Equal(t, byte(0x80), buf[9], "message type")
	assert.Equal(t, byte(0x0b), buf[10], "subtype")
	assert.Equal(t, byte(0x00), buf[11])
	assert.Equal(t, []byte{0x62, 0x3c, 0x8e, 0xcf}, buf[12:16], "big-endian timestamp")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00}, buf[16:24])

	// The outer CRC-8 must validate when fed back through Decode-style
	// checking, and recomputing it over the first 26 bytes must reproduce
	// the trailing byte exactly.
	assert.Equal(t, crc8(buf[:26]), buf[26])
}

func TestEncodeRefetchRequestIsShortAndCRCValid(t *testing.T) {
	buf, err := EncodeRefetchRequest("72220200", "72220200", 2)
	require.NoError(t, err)
	require.Len(t, buf, 11)
	assert.Equal(t, byte(0x82), buf[9], "0x80 | fragment index")
	assert.Equal(t, crc8(buf[:10]), buf[10])
}

func TestDecodeMalformedFrame(t *testing.T) {
	_, err := Decode(make([]byte, 5))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeDetectsCRCMismatch(t *testing.T) {
	buf, err := EncodeRefetchRequest("72220200", "72220200", 1)
	require.NoError(t, err)
	// Corrupt the frame after computing it so marker/addr fields still
	// parse but the trailing CRC no longer matches.
	broken := append([]byte(nil), buf...)
	broken[len(broken)-1] ^= 0xff

	resp, err := Decode(broken)
	require.NoError(t, err)
	assert.False(t, resp.CRCValid)
}

func TestDecodeRoundTripsResponseFields(t *testing.T) {
	// Build something shaped like a response frame directly, since
	// EncodePollRequest only builds requests: marker 0x95, src/dst/command,
	// a payload, and a trailing CRC-8.
	body := []byte{ResponseMarker, 0x1a, 0x7c, 0xf1, 0xeb, 0x00, 0x00, 0x00, 0x01, 0x01, 0xAA, 0xBB}
	full := append(body, crc8(body))

	resp, err := Decode(full)
	require.NoError(t, err)
	assert.True(t, resp.CRCValid)
	assert.Equal(t, byte(0x01), resp.Command)
	assert.Equal(t, 1, resp.FragmentIndex())
	assert.False(t, resp.IsRefetchReply())
	assert.Equal(t, []byte{0xAA, 0xBB}, resp.Payload)
}

// TestEncodePollRequestTimestampRoundTrips checks the embedded timestamp
// for arbitrary valid unix times, rather than only the one pinned example.
func TestEncodePollRequestTimestampRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unix := rapid.Int64Range(0, 0x7fffffff).Draw(t, "unix")
		buf, err := EncodePollRequest("72220200", "99978563412", time.Unix(unix, 0).UTC())
		require.NoError(t, err)
		require.Len(t, buf, 27)
		assert.Equal(t, crc8(buf[:26]), buf[26])

		var got uint32
		for _, b := range buf[12:16] {
			got = got<<8 | uint32(b)
		}
		assert.Equal(t, uint32(unix), got)
	})
}
