package driver

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartbl/protocol"
)

const (
	record1 = ":10000000536564207574207065727370696369617469F2\n"
	record2 = ":10001000732075756E6465206F6D6E69732069737465D6\n"
)

func TestDumpFlashForwardsUntilEOF(t *testing.T) {
	port := NewMockPort()
	port.Respond = dumpDevice(
		record1[:20],
		record1[20:]+record2[:5],
		record2[5:]+":00000001FF\n:10002000AFTER\n",
	)

	var sink bytes.Buffer
	var hooked []string
	stats, err := DumpFlash(NewTransport(port, testTimeout), &sink, WithLineHook(func(line []byte) {
		hooked = append(hooked, string(line))
	}))
	require.NoError(t, err)

	assert.Equal(t, record1+record2+":00000001FF\n", sink.String())
	assert.Equal(t, []string{record1, record2, ":00000001FF\n"}, hooked)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, sink.Len(), stats.Bytes)
}

func TestDumpFlashFlushesThenSendsCommand(t *testing.T) {
	port := NewMockPort()
	port.Queue([]byte("garbage from last session\n"))
	port.Respond = dumpDevice(":00000001FF\n")

	var sink bytes.Buffer
	_, err := DumpFlash(NewTransport(port, testTimeout), &sink)
	require.NoError(t, err)

	assert.Equal(t, 1, port.Flushes())
	assert.Equal(t, [][]byte{[]byte("dump_flash")}, port.Writes())
	assert.Equal(t, ":00000001FF\n", sink.String())
}

func TestDumpFlashTimeout(t *testing.T) {
	tests := []struct {
		name     string
		chunks   []string
		wantSink string
	}{
		{name: "no reply", chunks: nil, wantSink: ""},
		{name: "stalls after a record", chunks: []string{record1}, wantSink: record1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := NewMockPort()
			port.Respond = dumpDevice(tt.chunks...)

			var sink bytes.Buffer
			_, err := DumpFlash(NewTransport(port, testTimeout), &sink)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrReceiveTimeout))
			assert.Equal(t, tt.wantSink, sink.String())
		})
	}
}

func TestDumpFlashPartialLineIsForwarded(t *testing.T) {
	port := NewMockPort()
	port.Respond = func(p []byte) [][]byte {
		return [][]byte{
			[]byte(record1[:10]),
			nil, // line goes quiet mid-record
			[]byte(record1[10:]),
			[]byte(":00000001FF\n"),
		}
	}

	var sink bytes.Buffer
	var lines []string
	stats, err := DumpFlash(NewTransport(port, testTimeout), &sink, WithLineHook(func(line []byte) {
		lines = append(lines, string(line))
	}))
	require.NoError(t, err)

	assert.Equal(t, record1+":00000001FF\n", sink.String())
	assert.Equal(t, []string{record1[:10], record1[10:], ":00000001FF\n"}, lines)
	assert.Equal(t, 3, stats.Records)
}

func TestDumpFlashEOFNeedsExactMatch(t *testing.T) {
	port := NewMockPort()
	port.Respond = dumpDevice(":00000001FF\r\n", ":00000001ff\n", ":00000001FF\n")

	var sink bytes.Buffer
	stats, err := DumpFlash(NewTransport(port, testTimeout), &sink)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.True(t, protocol.IsEOFRecord(bytes.SplitAfter(sink.Bytes(), []byte("\n"))[2]))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestDumpFlashSinkError(t *testing.T) {
	port := NewMockPort()
	port.Respond = dumpDevice(record1, ":00000001FF\n")

	_, err := DumpFlash(NewTransport(port, testTimeout), failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, errors.Is(err, ErrReceiveTimeout))
}

// brokenPort hands out its data together with a read error
type brokenPort struct {
	*MockPort
	data []byte
}

func (p *brokenPort) Read(b []byte) (int, error) {
	n := copy(b, p.data)
	p.data = p.data[n:]
	return n, io.ErrUnexpectedEOF
}

func TestDumpFlashKeepsBytesBeforeReadError(t *testing.T) {
	port := &brokenPort{MockPort: NewMockPort(), data: []byte(":1000000053")}

	var sink bytes.Buffer
	stats, err := DumpFlash(NewTransport(port, testTimeout), &sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, ErrReceiveTimeout))
	assert.Contains(t, err.Error(), "read record 1")

	assert.Equal(t, ":1000000053", sink.String())
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 11, stats.Bytes)
}

func TestDumpFlashKeepsLinesBeforeReadError(t *testing.T) {
	port := &brokenPort{MockPort: NewMockPort(), data: []byte(record1 + ":10001000")}

	var sink bytes.Buffer
	stats, err := DumpFlash(NewTransport(port, testTimeout), &sink)
	require.Error(t, err)

	assert.Equal(t, record1+":10001000", sink.String())
	assert.Equal(t, len(record1)+9, stats.Bytes)
}
