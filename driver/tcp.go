package driver

import (
	"errors"
	"fmt"
	"net"
	"time"

	"uartbl/logger"
)

// TCPScheme prefixes port names served by the device simulator.
const TCPScheme = "tcp://"

// TCPPort wraps a TCP connection as a Port interface
// Used for the device simulator or serial-over-TCP bridges
type TCPPort struct {
	conn    net.Conn
	address string
	timeout time.Duration

	dtr bool
	rts bool
}

// Ensure TCPPort implements Port interface
var _ Port = (*TCPPort)(nil)

// OpenTCP opens a TCP connection to a simulated device
func OpenTCP(address string, timeout time.Duration) (Port, error) {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	logger.Info("Connected to %s (TCP), timeout %s", address, timeout)
	return &TCPPort{conn: conn, address: address, timeout: timeout, dtr: true, rts: true}, nil
}

func (t *TCPPort) Read(p []byte) (n int, err error) {
	// Set read deadline to prevent blocking forever
	t.conn.SetReadDeadline(time.Now().Add(t.timeout))
	n, err = t.conn.Read(p)

	// Convert timeout to nil error, as a serial port does
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return n, nil
	}
	return n, err
}

func (t *TCPPort) Write(p []byte) (n int, err error) {
	return t.conn.Write(p)
}

func (t *TCPPort) Close() error {
	return t.conn.Close()
}

func (t *TCPPort) ResetInputBuffer() error {
	// Drain any pending data
	buf := make([]byte, 1024)
	for {
		t.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		n, _ := t.conn.Read(buf)
		if n == 0 {
			break
		}
	}
	return nil
}

// SetDTR records the line state; a plain TCP stream carries no modem lines.
func (t *TCPPort) SetDTR(dtr bool) error {
	t.dtr = dtr
	logger.Debug("%s DTR=%v (not forwarded over TCP)", t.address, dtr)
	return nil
}

// SetRTS records the line state; a plain TCP stream carries no modem lines.
func (t *TCPPort) SetRTS(rts bool) error {
	t.rts = rts
	logger.Debug("%s RTS=%v (not forwarded over TCP)", t.address, rts)
	return nil
}

func (t *TCPPort) String() string {
	return TCPScheme + t.address
}
