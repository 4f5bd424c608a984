package driver

import (
	"bytes"
	"time"

	"uartbl/protocol"
)

const testTimeout = time.Second

// simClock advances only when a driver sleeps
type simClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newSimClock() *simClock {
	return &simClock{now: time.Unix(0, 0)}
}

func (c *simClock) Now() time.Time { return c.now }

func (c *simClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *simClock) elapsed(t time.Time) time.Duration {
	return t.Sub(time.Unix(0, 0))
}

// echoDevice replies to probe bursts with their length plus offset[size]
func echoDevice(offset map[int]int) func(p []byte) [][]byte {
	return func(p []byte) [][]byte {
		if len(p) == 0 || p[0] != protocol.ProbeFill {
			return nil
		}
		return [][]byte{{byte(len(p) + offset[len(p)])}}
	}
}

// dumpDevice replies to the dump command with chunks
func dumpDevice(chunks ...string) func(p []byte) [][]byte {
	return func(p []byte) [][]byte {
		if !bytes.Equal(p, protocol.DumpCommand) {
			return nil
		}
		out := make([][]byte, len(chunks))
		for i, c := range chunks {
			out[i] = []byte(c)
		}
		return out
	}
}

// ackDevice answers the baud detection token with reply
func ackDevice(reply []byte) func(p []byte) [][]byte {
	return func(p []byte) [][]byte {
		if !bytes.Equal(p, protocol.BaudDetect) {
			return nil
		}
		return [][]byte{reply}
	}
}
