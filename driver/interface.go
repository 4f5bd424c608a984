package driver

import "io"

// Port defines the serial port capability the drivers need: a duplex byte
// stream whose reads return (0, nil) when the configured timeout expires,
// plus the two modem control lines wired to the device's RESET and BOOT pins.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}
