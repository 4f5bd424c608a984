package driver

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// LineEvent is one control line change seen by a MockPort.
type LineEvent struct {
	Line  string // "DTR" or "RTS"
	Value bool
	At    time.Time
}

// MockPort simulates the device end of a port. Each Read returns the next
// queued chunk (or part of it); an empty queue, or an empty chunk, behaves
// like a read timeout.
type MockPort struct {
	mu      sync.Mutex
	chunks  [][]byte
	written *bytes.Buffer
	writes  [][]byte
	events  []LineEvent
	flushes int
	closed  bool

	// Respond simulates the device: it sees every write and returns the
	// chunks sent back.
	Respond func(p []byte) [][]byte

	// Now timestamps control line changes.
	Now func() time.Time
}

var _ Port = (*MockPort)(nil)

func NewMockPort() *MockPort {
	return &MockPort{
		written: new(bytes.Buffer),
		Now:     time.Now,
	}
}

// Queue appends chunks the device will send.
func (m *MockPort) Queue(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks = append(m.chunks, append([]byte(nil), c...))
	}
}

func (m *MockPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.EOF
	}
	if len(m.chunks) == 0 {
		return 0, nil
	}

	c := m.chunks[0]
	n = copy(p, c)
	if n < len(c) {
		m.chunks[0] = c[n:]
	} else {
		m.chunks = m.chunks[1:]
	}
	return n, nil
}

func (m *MockPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	m.written.Write(p)
	m.writes = append(m.writes, append([]byte(nil), p...))
	respond := m.Respond
	m.mu.Unlock()

	if respond != nil {
		m.Queue(respond(p)...)
	}
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.flushes++
	return nil
}

func (m *MockPort) SetDTR(dtr bool) error {
	m.recordLine("DTR", dtr)
	return nil
}

func (m *MockPort) SetRTS(rts bool) error {
	m.recordLine("RTS", rts)
	return nil
}

func (m *MockPort) recordLine(line string, value bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, LineEvent{Line: line, Value: value, At: m.Now()})
}

// Written returns every byte written so far.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}

// Writes returns the individual writes in order.
func (m *MockPort) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.writes...)
}

// Events returns the control line changes in order.
func (m *MockPort) Events() []LineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LineEvent(nil), m.events...)
}

// Flushes returns how many times the input buffer was reset.
func (m *MockPort) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

// IsClosed reports whether Close was called.
func (m *MockPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
