package driver

import (
	"fmt"
	"io"

	"uartbl/logger"
	"uartbl/protocol"
)

// DumpStats summarises a flash dump.
type DumpStats struct {
	Records int `json:"records"`
	Bytes   int `json:"bytes"`
}

// DumpFlash asks the firmware for its external flash and forwards every
// record to sink unmodified, in order, until the Intel HEX end-of-file
// record has been forwarded. A read that returns nothing at all ends the
// dump with ErrReceiveTimeout; a partial line without terminator is
// forwarded like any other record.
func DumpFlash(t *Transport, sink io.Writer, opts ...Option) (DumpStats, error) {
	cfg := newConfig(opts)
	var stats DumpStats

	// Stray bytes from an earlier session
	if err := t.Flush(); err != nil {
		return stats, fmt.Errorf("flush input: %w", err)
	}

	if err := t.Write(protocol.DumpCommand); err != nil {
		return stats, fmt.Errorf("send dump command: %w", err)
	}
	logger.Info("Dump command sent")

	for {
		line, err := t.ReadLine()
		if err != nil {
			err = fmt.Errorf("read record %d: %w", stats.Records+1, err)
			// keep what arrived before the port failed
			if len(line) > 0 {
				if _, werr := sink.Write(line); werr == nil {
					stats.Records++
					stats.Bytes += len(line)
				}
			}
			return stats, err
		}
		if len(line) == 0 {
			logger.Error("Timeout after %d records", stats.Records)
			return stats, ErrReceiveTimeout
		}

		if _, err := sink.Write(line); err != nil {
			return stats, fmt.Errorf("forward record %d: %w", stats.Records+1, err)
		}
		stats.Records++
		stats.Bytes += len(line)

		if cfg.LineHook != nil {
			cfg.LineHook(line)
		}

		if protocol.IsEOFRecord(line) {
			logger.Info("Dump complete: %d records, %d bytes", stats.Records, stats.Bytes)
			return stats, nil
		}
	}
}
