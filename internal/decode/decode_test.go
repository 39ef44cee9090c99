package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbragin/hoymiles-dtu/internal/model"
	"pgregory.net/rapid"
)

func putU16(b []byte, off int, v uint16) { binary.BigEndian.PutUint16(b[off:off+2], v) }
func putU32(b []byte, off int, v uint32) { binary.BigEndian.PutUint32(b[off:off+4], v) }

func TestHM300Cmd1ScalesFields(t *testing.T) {
	p := make([]byte, 16)
	putU16(p, 2, 2300)       // u1 -> 230.0V
	putU16(p, 4, 150)        // i1 -> 1.50A
	putU16(p, 6, 3000)       // p1 -> 300.0W
	putU32(p, 8, 123456)     // ptotal
	putU16(p, 12, 1500)      // pday
	putU16(p, 14, 2305)      // u -> 230.5V AC

	frag, err := Decode("HM-300", model.DecoderHMSingleString, 1, p)
	require.NoError(t, err)

	s1 := frag.Strings[1]
	require.NotNil(t, s1.Voltage)
	assert.InDelta(t, 230.0, *s1.Voltage, 0.0001)
	assert.InDelta(t, 1.5, *s1.Current, 0.0001)
	assert.InDelta(t, 300.0, *s1.Power, 0.0001)
	assert.InDelta(t, 1500, *s1.EnergyToday, 0.0001)
	assert.InDelta(t, 123456, *s1.EnergyTotal, 0.0001)
	require.NotNil(t, frag.AC.Voltage)
	assert.InDelta(t, 230.5, *frag.AC.Voltage, 0.0001)
}

func TestHM600EnergyTotalSplitsAcrossFragments(t *testing.T) {
	cmd1 := make([]byte, 16)
	putU16(cmd1, 14, 1) // uk8 = 1 -> high word 0x10000

	cmd2 := make([]byte, 16)
	putU32(cmd2, 0, 42) // ptotal1 low 32 bits

	f1, err := Decode("HM-600", model.DecoderHMSingleString, 1, cmd1)
	require.NoError(t, err)
	f2, err := Decode("HM-600", model.DecoderHMSingleString, 2, cmd2)
	require.NoError(t, err)

	scratch := NewScratch()
	rec := &Record{}
	Apply(scratch, rec, f1)
	Apply(scratch, rec, f2)

	require.NotNil(t, rec.Strings[1].EnergyTotal)
	assert.Equal(t, float64(1)*65536+42, *rec.Strings[1].EnergyTotal)
}

func TestHM600AcCurrentOmittedWhenVoltageZero(t *testing.T) {
	cmd2 := make([]byte, 16)
	// u (AC voltage) left at 0; p (AC power) nonzero.
	putU16(cmd2, 14, 500)

	frag, err := Decode("HM-600", model.DecoderHMSingleString, 2, cmd2)
	require.NoError(t, err)
	assert.Nil(t, frag.AC.Current, "current must be omitted, not zero-clamped, when voltage is zero")
	require.NotNil(t, frag.AC.Power)
}

func TestHM1200Cmd1DecodesString1AndString2(t *testing.T) {
	// '>HHHHHHLH': uk1[0:2], u1[2:4], i1[4:6], i2[6:8], p1[8:10],
	// p2[10:12], ptotal1[12:16], uk8[16:18].
	p := make([]byte, 18)
	putU16(p, 2, 3700)    // u1 -> 370.0V
	putU16(p, 4, 210)     // i1 -> 2.10A
	putU16(p, 6, 105)     // i2 -> 1.05A
	putU16(p, 8, 4500)    // p1 -> 450.0W
	putU16(p, 10, 2200)   // p2 -> 220.0W
	putU32(p, 12, 987654) // ptotal1

	frag, err := Decode("HM-1200", model.DecoderHMDualString, 1, p)
	require.NoError(t, err)

	s1 := frag.Strings[1]
	require.NotNil(t, s1.Voltage)
	assert.InDelta(t, 370.0, *s1.Voltage, 0.0001)
	assert.InDelta(t, 2.1, *s1.Current, 0.0001)
	assert.InDelta(t, 450.0, *s1.Power, 0.0001)
	require.NotNil(t, s1.EnergyTotal)
	assert.InDelta(t, 987654, *s1.EnergyTotal, 0.0001)

	s2 := frag.Strings[2]
	require.NotNil(t, s2.Current)
	require.NotNil(t, s2.Power)
	assert.InDelta(t, 1.05, *s2.Current, 0.0001)
	assert.InDelta(t, 220.0, *s2.Power, 0.0001)
	assert.Nil(t, s2.Voltage, "string 2 voltage arrives directly in cmd 2, not cmd 1")
}

func TestHM1200Cmd2DecodesString2VoltageAndTotal(t *testing.T) {
	// '>LHHHHHHH': ptotal2[0:4], pday1[4:6], pday2[6:8], u2[8:10],
	// i3[10:12], i4[12:14], p3[14:16], uk8[16:18].
	p := make([]byte, 18)
	putU32(p, 0, 55555) // ptotal2
	putU16(p, 4, 1200)  // pday1
	putU16(p, 6, 900)   // pday2
	putU16(p, 8, 2280)  // u2 -> 228.0V

	frag, err := Decode("HM-1200", model.DecoderHMDualString, 2, p)
	require.NoError(t, err)

	s1 := frag.Strings[1]
	require.NotNil(t, s1.EnergyToday)
	assert.InDelta(t, 1200, *s1.EnergyToday, 0.0001)

	s2 := frag.Strings[2]
	require.NotNil(t, s2.Voltage)
	require.NotNil(t, s2.EnergyToday)
	require.NotNil(t, s2.EnergyTotal)
	assert.InDelta(t, 228.0, *s2.Voltage, 0.0001)
	assert.InDelta(t, 900, *s2.EnergyToday, 0.0001)
	assert.InDelta(t, 55555, *s2.EnergyTotal, 0.0001)
}

func TestHM1200String4VoltageBackComputedAcrossFragments(t *testing.T) {
	cmd2 := make([]byte, 18)
	putU16(cmd2, 12, 200) // i4 -> 2.00A

	cmd3 := make([]byte, 18)
	putU16(cmd3, 0, 1000) // p4 -> 100.0W

	f2, err := Decode("HM-1200", model.DecoderHMDualString, 2, cmd2)
	require.NoError(t, err)
	f3, err := Decode("HM-1200", model.DecoderHMDualString, 3, cmd3)
	require.NoError(t, err)

	scratch := NewScratch()
	rec := &Record{}
	Apply(scratch, rec, f2)
	Apply(scratch, rec, f3)

	require.NotNil(t, rec.Strings[4].Voltage)
	assert.InDelta(t, 50.0, *rec.Strings[4].Voltage, 0.0001) // 100W / 2A
}

func TestHM1200String4ClampedWhenCurrentZero(t *testing.T) {
	cmd2 := make([]byte, 18) // i4 stays 0
	cmd3 := make([]byte, 18)
	putU16(cmd3, 0, 1000) // p4 -> 100.0W, but no current was ever carried

	f2, err := Decode("HM-1200", model.DecoderHMDualString, 2, cmd2)
	require.NoError(t, err)
	f3, err := Decode("HM-1200", model.DecoderHMDualString, 3, cmd3)
	require.NoError(t, err)

	scratch := NewScratch()
	rec := &Record{}
	Apply(scratch, rec, f2)
	Apply(scratch, rec, f3)

	assert.Nil(t, rec.Strings[4].Voltage)
	require.NotNil(t, rec.Strings[4].Power)
	assert.Equal(t, 0.0, *rec.Strings[4].Power)
	require.NotNil(t, rec.Strings[4].Current)
	assert.Equal(t, 0.0, *rec.Strings[4].Current)
}

func TestHM1200DayEnergyKeysAreDistinctPerString(t *testing.T) {
	// '>HLLHHHH': p4[0:2], ptotal3[2:6], ptotal4[6:10], pday3[10:12],
	// pday4[12:14], uAC[14:16], uk7[16:18].
	cmd3 := make([]byte, 18)
	putU16(cmd3, 10, 11)   // pday3
	putU16(cmd3, 12, 22)   // pday4
	putU16(cmd3, 14, 2300) // uAC -> 230.0V

	frag, err := Decode("HM-1200", model.DecoderHMDualString, 3, cmd3)
	require.NoError(t, err)

	require.NotNil(t, frag.Strings[3].EnergyToday)
	require.NotNil(t, frag.Strings[4].EnergyToday)
	assert.InDelta(t, 11, *frag.Strings[3].EnergyToday, 0.0001)
	assert.InDelta(t, 22, *frag.Strings[4].EnergyToday, 0.0001)
	require.NotNil(t, frag.AC.Voltage)
	assert.InDelta(t, 230.0, *frag.AC.Voltage, 0.0001)
}

func TestPassThroughRecordsRawWordsAndNeverErrors(t *testing.T) {
	p := make([]byte, 8)
	putU16(p, 0, 0xBEEF)
	frag, err := Decode("unknown", model.DecoderPassThrough, 5, p)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), frag.Unknown["cmd05/w0"])
}

func TestUnknownCommandStillReturnsUsableFragment(t *testing.T) {
	p := make([]byte, 16)
	frag, err := Decode("HM-300", model.DecoderHMSingleString, 0xFF, p)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.NotNil(t, frag.Unknown)
}

// TestBackComputeVoltageProperty checks the clamp-or-divide invariant
// holds for arbitrary scaled power/current pairs.
func TestBackComputeVoltageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		power := rapid.Float64Range(-10000, 10000).Draw(t, "power")
		current := rapid.Float64Range(-50, 50).Draw(t, "current")

		v, p, i := backComputeVoltage(power, current)
		if current == 0 {
			assert.Equal(t, 0.0, v)
			assert.Equal(t, 0.0, p)
			assert.Equal(t, 0.0, i)
		} else {
			assert.InDelta(t, power/current, v, 1e-9)
			assert.Equal(t, power, p)
			assert.Equal(t, current, i)
		}
	})
}
