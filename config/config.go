package config

import (
	"errors"
	"os"
	"runtime"
	"time"
)

// Environment overrides
const (
	EnvSerialPort = "UARTBL_SERIAL_PORT"
	EnvLogDir     = "UARTBL_LOG_DIR"
)

// DefaultTimeout bounds every blocking read.
const DefaultTimeout = 1 * time.Second

// ErrMissingPort is returned when neither an argument nor the environment
// names a serial port.
var ErrMissingPort = errors.New("missing argument: serial port")

type Config struct {
	Port     string // Serial port name (e.g. COM3, /dev/ttyUSB0, tcp://localhost:9999)
	BaudRate int
	Timeout  time.Duration
	LogDir   string
	Verbose  bool
	WSAddr   string
}

// Load returns the defaults for a driver running at baudRate, with
// environment overrides applied.
func Load(baudRate int) *Config {
	cfg := &Config{
		BaudRate: baudRate,
		Timeout:  DefaultTimeout,
		WSAddr:   ":8989",
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		cfg.LogDir = envDir
	}

	return cfg
}

// ResolvePort takes the port from the first positional argument, falling
// back to the environment.
func (c *Config) ResolvePort(args []string) error {
	if len(args) > 0 && args[0] != "" {
		c.Port = args[0]
		return nil
	}
	if envPort := os.Getenv(EnvSerialPort); envPort != "" {
		c.Port = envPort
		return nil
	}
	return ErrMissingPort
}

// ExamplePort is the usual device path on this OS, for help texts.
func ExamplePort() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyUSB0"
}
