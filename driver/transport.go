package driver

import (
	"bytes"
	"fmt"
	"time"

	"uartbl/logger"
)

const readChunk = 256

// Transport adds the reads the protocol drivers use on top of a Port.
// Bytes received past a line terminator stay pending for the next read.
// ReadLine and ReadExact give up once timeout has passed since the call
// started, even if the port keeps delivering bytes.
//
// A Transport is owned by one driver at a time and is not safe for
// concurrent use.
type Transport struct {
	port    Port
	timeout time.Duration
	now     func() time.Time
	pending []byte
	buf     []byte
}

// NewTransport wraps an opened port. timeout is the read timeout the port
// was opened with; zero or less leaves reads bounded only by the port. The
// caller keeps ownership of the port and closes it when the driver is done.
func NewTransport(port Port, timeout time.Duration) *Transport {
	return &Transport{
		port:    port,
		timeout: timeout,
		now:     time.Now,
		buf:     make([]byte, readChunk),
	}
}

// Port returns the underlying port.
func (t *Transport) Port() Port {
	return t.port
}

// Write sends p in full.
func (t *Transport) Write(p []byte) error {
	logger.Protocol("TX", "write", p)
	n, err := t.port.Write(p)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(p))
	}
	return nil
}

// Flush discards bytes already received, both in the port and pending here.
func (t *Transport) Flush() error {
	if len(t.pending) > 0 {
		logger.Protocol("RX", "discard", t.pending)
	}
	t.pending = nil
	return t.port.ResetInputBuffer()
}

// ReadLine returns the bytes up to and including the next '\n'. If the
// port or the transport timeout expires first, whatever arrived is
// returned, possibly nothing.
func (t *Transport) ReadLine() ([]byte, error) {
	expired := t.deadline()
	for {
		if i := bytes.IndexByte(t.pending, '\n'); i >= 0 {
			return t.take(i + 1), nil
		}
		if expired() {
			logger.Debug("Line read timed out with %d bytes pending", len(t.pending))
			return t.take(len(t.pending)), nil
		}
		got, err := t.fill()
		if err != nil {
			return t.take(len(t.pending)), err
		}
		if !got {
			return t.take(len(t.pending)), nil
		}
	}
}

// ReadExact returns n bytes, or fewer if a timeout expires first.
func (t *Transport) ReadExact(n int) ([]byte, error) {
	expired := t.deadline()
	for len(t.pending) < n {
		if expired() {
			return t.take(len(t.pending)), nil
		}
		got, err := t.fill()
		if err != nil {
			return t.take(len(t.pending)), err
		}
		if !got {
			return t.take(len(t.pending)), nil
		}
	}
	return t.take(n), nil
}

// ReadRecord performs a single read and returns everything received,
// without looking for a terminator. Pending bytes are returned first
// without touching the port.
func (t *Transport) ReadRecord() ([]byte, error) {
	if len(t.pending) == 0 {
		if _, err := t.fill(); err != nil {
			return t.take(len(t.pending)), err
		}
	}
	return t.take(len(t.pending)), nil
}

// SetReset drives the RESET pin, wired to DTR.
func (t *Transport) SetReset(value bool) error {
	logger.Debug("RESET=%v", value)
	if err := t.port.SetDTR(value); err != nil {
		return fmt.Errorf("set RESET (DTR): %w", err)
	}
	return nil
}

// SetBoot drives the BOOT strap pin, wired to RTS.
func (t *Transport) SetBoot(value bool) error {
	logger.Debug("BOOT=%v", value)
	if err := t.port.SetRTS(value); err != nil {
		return fmt.Errorf("set BOOT (RTS): %w", err)
	}
	return nil
}

// deadline starts the timeout of one read call
func (t *Transport) deadline() func() bool {
	if t.timeout <= 0 {
		return func() bool { return false }
	}
	end := t.now().Add(t.timeout)
	return func() bool { return !t.now().Before(end) }
}

// fill performs one port read and reports whether it returned data.
func (t *Transport) fill() (bool, error) {
	n, err := t.port.Read(t.buf)
	if n > 0 {
		logger.Protocol("RX", "read", t.buf[:n])
		t.pending = append(t.pending, t.buf[:n]...)
	}
	if err != nil {
		return n > 0, fmt.Errorf("read: %w", err)
	}
	return n > 0, nil
}

func (t *Transport) take(n int) []byte {
	if n == 0 {
		return nil
	}
	out := append([]byte(nil), t.pending[:n]...)
	t.pending = t.pending[n:]
	if len(t.pending) == 0 {
		t.pending = nil
	}
	return out
}
