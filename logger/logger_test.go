package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Init(dir))

	Info("dumped %d records", 3)
	Debug("RESET=%v", false)
	Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Logger initialized")
	assert.Contains(t, string(data), "dumped 3 records")
	assert.Contains(t, string(data), "RESET=false")
}

func TestProtocolTruncates(t *testing.T) {
	var buf bytes.Buffer
	SetVerbose(&buf)
	defer Close()

	Protocol("TX", "write", []byte{0x55, 0x55})
	Protocol("RX", "read", bytes.Repeat([]byte{0xAA}, 150))

	out := buf.String()
	assert.Contains(t, out, "data=5555")
	assert.Contains(t, out, "data_len=150")
	assert.Contains(t, out, "first_100="+strings.Repeat("aa", 100)+"...")
}

func TestProtocolSkippedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer Close()

	Protocol("TX", "write", []byte{0x55, 0x55})
	assert.Zero(t, buf.Len())
}

func TestRotateRemovesOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "uartbl.log.1")
	require.NoError(t, os.WriteFile(old, nil, 0644))
	require.NoError(t, os.Truncate(old, MaxLogDirSize+1))

	require.NoError(t, Init(dir))
	defer Close()
	checkAndRotate()

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, LogFileName))
	assert.NoError(t, err)
}

func TestRotateTruncatesCurrentLog(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, LogFileName)

	require.NoError(t, Init(dir))
	defer Close()
	require.NoError(t, os.Truncate(current, MaxLogDirSize+1))
	checkAndRotate()

	size, err := getDirSize(dir)
	require.NoError(t, err)
	assert.Less(t, size, int64(MaxLogDirSize))
}
