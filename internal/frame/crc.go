package frame

import "github.com/snksoft/crc"

// The wire protocol layers two independently-parameterized CRCs on top of
// each other. Rather than hand-roll two bit-twiddling loops we describe
// both as instances of the same generic, table-driven CRC engine.
var (
	// modbusParams is the classic MODBUS RTU CRC16: poly 0x8005 reflected,
	// init 0xFFFF, reflected output, no final xor.
	modbusParams = crc.MODBUS

	// crc8Params is the CRC-8 used for the outer frame checksum: polynomial
	// 0x101 (i.e. x^8 + 1 in the usual "with implicit leading bit" notation,
	// Polynomial field 0x01 once that implicit bit is dropped for an 8-bit
	// register), initial value 0, no reflection, no final xor.
	crc8Params = &crc.Parameters{
		Width:      8,
		Polynomial: 0x01,
		Init:       0x00,
		ReflectIn:  false,
		ReflectOut: false,
		FinalXor:   0x00,
	}
)

// modbusCRC16 computes the inner payload checksum.
func modbusCRC16(data []byte) uint16 {
	return uint16(crc.CalculateCRC(modbusParams, data))
}

// crc8 computes the outer frame checksum.
func crc8(data []byte) byte {
	return byte(crc.CalculateCRC(crc8Params, data))
}
