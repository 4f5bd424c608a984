package protocol

import (
	"github.com/sigurn/crc16"
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// ImageCRC returns the CRC-16/MODBUS of a decoded flash image. It is only a
// fingerprint for operators comparing two dumps.
func ImageCRC(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// RecordChecksum computes the Intel HEX checksum of the raw record bytes
// (byte count, address, type and data): two's complement of their sum.
func RecordChecksum(raw []byte) byte {
	var sum byte
	for _, b := range raw {
		sum += b
	}
	return -sum
}
