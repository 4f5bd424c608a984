package protocol

import (
	"bytes"
	"time"
)

// Baud rates used by the host scripts.
const (
	BootloaderBaudRate = 115200
	ProbeBaudRate      = 115200
	DumpBaudRate       = 921600
)

// SettleDelay separates every step of the reset/boot strap sequence and
// every probe burst from its reply.
const SettleDelay = 100 * time.Millisecond

// ProbeFill is the byte value of every probe burst. The firmware treats a
// frame starting with it as a receive-timeout test and replies with the
// frame length.
const ProbeFill byte = 0xAA

// Wire tokens
var (
	BaudDetect  = []byte{0x55, 0x55}
	ACK         = []byte{0x00, 0xCC}
	DumpCommand = []byte("dump_flash")
	HexEOF      = []byte(":00000001FF\n")
)

// ProbeSizes straddles the 16-byte UART FIFO and the receive-timeout
// threshold of the firmware.
var ProbeSizes = []int{11, 15, 20, 24, 26, 32, 36}

// IsEOFRecord reports whether line is exactly the Intel HEX end-of-file
// record, newline included. No field of the record is parsed.
func IsEOFRecord(line []byte) bool {
	return bytes.Equal(line, HexEOF)
}

// IsACK reports whether reply is the bootloader acknowledgement.
func IsACK(reply []byte) bool {
	return bytes.Equal(reply, ACK)
}

// BuildProbe returns a burst of n ProbeFill bytes.
func BuildProbe(n int) []byte {
	if n < 0 {
		n = 0
	}
	return bytes.Repeat([]byte{ProbeFill}, n)
}
