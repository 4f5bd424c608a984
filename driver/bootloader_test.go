package driver

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartbl/protocol"
)

func TestEnterBootloaderSequence(t *testing.T) {
	clock := newSimClock()
	port := NewMockPort()
	port.Now = clock.Now

	var tokenAt time.Time
	ack := ackDevice(protocol.ACK)
	port.Respond = func(p []byte) [][]byte {
		tokenAt = clock.Now()
		return ack(p)
	}

	err := EnterBootloader(NewTransport(port, testTimeout), WithSleep(clock.Sleep))
	require.NoError(t, err)

	want := []struct {
		line  string
		value bool
		at    time.Duration
	}{
		{"DTR", false, 0},                      // RESET low
		{"RTS", false, 100 * time.Millisecond}, // BOOT low
		{"DTR", true, 100 * time.Millisecond},  // RESET high
		{"RTS", true, 200 * time.Millisecond},  // BOOT high
	}

	events := port.Events()
	require.Len(t, events, len(want))
	for i, w := range want {
		assert.Equal(t, w.line, events[i].Line, "event %d", i)
		assert.Equal(t, w.value, events[i].Value, "event %d", i)
		assert.Equal(t, w.at, clock.elapsed(events[i].At), "event %d", i)
	}

	assert.Equal(t, []time.Duration{protocol.SettleDelay, protocol.SettleDelay, protocol.SettleDelay}, clock.sleeps)
	assert.Equal(t, 300*time.Millisecond, clock.elapsed(tokenAt), "token sent after the last settle delay")
	assert.Equal(t, [][]byte{{0x55, 0x55}}, port.Writes())
	assert.False(t, port.IsClosed(), "driver must not close the port")
}

func TestEnterBootloaderMismatch(t *testing.T) {
	replies := [][]byte{
		{0x00, 0x99},
		{0xCC, 0x00},
		{0xFF, 0xFF},
		{0x00},
		{0xCC},
		nil,
	}

	for _, reply := range replies {
		t.Run(hexBytes(reply), func(t *testing.T) {
			port := NewMockPort()
			port.Respond = ackDevice(reply)

			err := EnterBootloader(NewTransport(port, testTimeout), WithSleep(func(time.Duration) {}))
			require.Error(t, err)

			var mismatch *HandshakeMismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, []byte(reply), mismatch.Actual)
			assert.Equal(t, protocol.ACK, mismatch.Expected)
			assert.Contains(t, err.Error(), hexBytes(reply))
		})
	}
}

func TestEnterBootloaderNoRetry(t *testing.T) {
	port := NewMockPort()

	err := EnterBootloader(NewTransport(port, testTimeout), WithSleep(func(time.Duration) {}))
	require.Error(t, err)
	assert.Len(t, port.Writes(), 1, "token is sent once")
	assert.Len(t, port.Events(), 4, "pin sequence runs once")
}
