package driver

import (
	"errors"
	"fmt"
	"io"
	"time"

	"uartbl/logger"
	"uartbl/protocol"
)

// Opener opens the session's port at the given baud rate.
type Opener func(baudRate int) (Port, error)

// SerialManager runs one driver at a time against a named port, opening the
// port at the driver's baud rate and closing it afterwards.
type SerialManager struct {
	PortName string
	Timeout  time.Duration
	State    *StateMachine

	open Opener
	opts []Option
}

// NewSerialManager manages portName. timeout must match the read timeout
// open configures on the port.
func NewSerialManager(portName string, timeout time.Duration, open Opener, opts ...Option) *SerialManager {
	return &SerialManager{
		PortName: portName,
		Timeout:  timeout,
		State:    NewStateMachine(portName),
		open:     open,
		opts:     opts,
	}
}

// EnterBootloader runs the bootloader entry sequence.
func (sm *SerialManager) EnterBootloader() error {
	return sm.run("bootloader", protocol.BootloaderBaudRate, StateEntering, func(t *Transport) error {
		return EnterBootloader(t, sm.opts...)
	})
}

// DumpFlash dumps the external flash to sink. onLine, if set, sees each
// record after it was written to sink.
func (sm *SerialManager) DumpFlash(sink io.Writer, onLine func([]byte)) (DumpStats, error) {
	var stats DumpStats
	hook := func(line []byte) {
		sm.State.AddRecord()
		if onLine != nil {
			onLine(line)
		}
	}

	err := sm.run("dump", protocol.DumpBaudRate, StateDumping, func(t *Transport) error {
		var err error
		stats, err = DumpFlash(t, sink, append(sm.opts, WithLineHook(hook))...)
		return err
	})
	return stats, err
}

// Probe runs the UART receive-timeout probe over sizes.
func (sm *SerialManager) Probe(sizes []int, aggregate bool, onResult func(ProbeResult)) (ProbeReport, error) {
	var report ProbeReport
	err := sm.run("probe", protocol.ProbeBaudRate, StateProbing, func(t *Transport) error {
		var err error
		report, err = ProbeTimeouts(t, sizes,
			append(sm.opts, WithAggregate(aggregate), WithProbeHook(onResult))...)
		return err
	})
	return report, err
}

func (sm *SerialManager) run(operation string, baudRate int, state OperationState, fn func(*Transport) error) error {
	if err := sm.State.Begin(operation, state); err != nil {
		return err
	}

	port, err := sm.open(baudRate)
	if err != nil {
		err = fmt.Errorf("open %s: %w", sm.PortName, err)
		sm.State.TransitionToError(err.Error())
		return err
	}
	defer port.Close()
	logger.Debug("%s: %v open at %d bps", operation, port, baudRate)

	err = fn(NewTransport(port, sm.Timeout))
	switch {
	case err == nil:
		sm.State.TransitionTo(StateSuccess)
	case errors.Is(err, ErrReceiveTimeout):
		sm.State.TransitionToTimeout()
	default:
		sm.State.TransitionToError(err.Error())
	}

	if err != nil {
		logger.Error("%s on %s: %v", operation, sm.PortName, err)
	}
	return err
}
