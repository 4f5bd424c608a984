package driver

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"uartbl/logger"
)

// ============================================================================
// Serial Port (physical UART)
// ============================================================================

// SerialPort wraps go.bug.st/serial for the device UART
type SerialPort struct {
	serial.Port
	portName string
}

func (p *SerialPort) String() string {
	return p.portName
}

var _ Port = (*SerialPort)(nil)

// openSerialPort opens a physical serial port with a read timeout
func openSerialPort(portName string, baudRate int, timeout time.Duration) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	// A read returns whatever arrived once the timeout expires
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	// RESET and BOOT start released; EnterBootloader only drives the edges
	if err := port.SetDTR(true); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set DTR: %w", err)
	}
	if err := port.SetRTS(true); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set RTS: %w", err)
	}

	logger.Info("Serial port %s opened at %d bps (8N1), timeout %s", portName, baudRate, timeout)
	return &SerialPort{Port: port, portName: portName}, nil
}

// ============================================================================
// Unified Open Function
// ============================================================================

// OpenSerial opens a port - either physical serial or TCP based on the address format
// TCP addresses should be in format: "tcp://host:port" (device simulator)
// Serial ports: "COM3", "/dev/ttyUSB0", etc.
func OpenSerial(portName string, baudRate int, timeout time.Duration) (Port, error) {
	if strings.HasPrefix(portName, TCPScheme) {
		addr := strings.TrimPrefix(portName, TCPScheme)
		return OpenTCP(addr, timeout)
	}
	return openSerialPort(portName, baudRate, timeout)
}
