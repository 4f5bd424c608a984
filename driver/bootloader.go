package driver

import (
	"fmt"

	"uartbl/logger"
	"uartbl/protocol"
)

// EnterBootloader triggers the ROM bootloader backdoor and checks that it
// answers the baud detection token:
//  1. RESET low (BOOT is high since the port was opened)
//  2. BOOT low, then RESET high: the strap pin is sampled on reset release
//  3. BOOT high
//  4. send 55 55 and expect 00 CC
//
// Each step is followed by protocol.SettleDelay. The control lines are left
// as last set. A reply other than the acknowledgement is returned as a
// *HandshakeMismatchError.
func EnterBootloader(t *Transport, opts ...Option) error {
	cfg := newConfig(opts)

	logger.Info("Triggering bootloader backdoor")

	// RESET LOW / BOOT HIGH
	if err := t.SetReset(false); err != nil {
		return err
	}
	cfg.Sleep(protocol.SettleDelay)

	// RESET HIGH / BOOT LOW
	if err := t.SetBoot(false); err != nil {
		return err
	}
	if err := t.SetReset(true); err != nil {
		return err
	}
	cfg.Sleep(protocol.SettleDelay)

	// RESET HIGH / BOOT HIGH
	if err := t.SetBoot(true); err != nil {
		return err
	}
	cfg.Sleep(protocol.SettleDelay)

	if err := t.Write(protocol.BaudDetect); err != nil {
		return fmt.Errorf("send baud detection: %w", err)
	}

	reply, err := t.ReadExact(len(protocol.ACK))
	if err != nil {
		return fmt.Errorf("read ACK: %w", err)
	}
	if !protocol.IsACK(reply) {
		logger.Error("Bootloader replied %x instead of ACK", reply)
		return &HandshakeMismatchError{Expected: protocol.ACK, Actual: reply}
	}

	logger.Info("ACK received")
	return nil
}
