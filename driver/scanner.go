package driver

import (
	"runtime"
	"strings"

	"go.bug.st/serial"

	"uartbl/logger"
)

// Scanner lists the ports a device may be attached to
type Scanner struct {
	list func() ([]string, error)
	goos string
}

func NewScanner() *Scanner {
	return &Scanner{
		list: serial.GetPortsList,
		goos: runtime.GOOS,
	}
}

// Discover finds all candidate ports. extra entries (e.g. the simulator's
// tcp:// address) are always kept.
func (s *Scanner) Discover(extra ...string) ([]string, error) {
	logger.Info("Scanning for serial ports...")

	ports, err := s.list()
	if err != nil {
		logger.Error("Failed to list serial ports: %v", err)
		return nil, err
	}
	ports = append(ports, extra...)

	filtered := filterPorts(ports, s.goos)
	logger.Debug("Found %d candidate ports: %v", len(filtered), filtered)
	return filtered, nil
}

// filterPorts filters ports based on OS conventions
func filterPorts(ports []string, goos string) []string {
	var filtered []string
	seen := make(map[string]bool)

	for _, port := range ports {
		if seen[port] {
			continue
		}
		seen[port] = true

		// Always include TCP endpoints
		if strings.HasPrefix(port, TCPScheme) {
			filtered = append(filtered, port)
			continue
		}

		// Windows: COM ports
		if goos == "windows" {
			if strings.HasPrefix(strings.ToUpper(port), "COM") {
				filtered = append(filtered, port)
			}
			continue
		}

		// macOS/Linux: filter by name
		lower := strings.ToLower(port)
		if strings.Contains(lower, "bluetooth") {
			continue
		}

		if strings.Contains(lower, "ttyusb") ||
			strings.Contains(lower, "ttyacm") ||
			strings.Contains(lower, "usbserial") ||
			strings.Contains(lower, "usbmodem") ||
			strings.Contains(lower, "cu.") ||
			strings.Contains(lower, "ttys") {
			filtered = append(filtered, port)
		}
	}

	return filtered
}
