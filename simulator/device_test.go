package simulator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartbl/protocol"
)

func TestDeviceProbeEcho(t *testing.T) {
	d := NewDevice()

	for _, n := range protocol.ProbeSizes {
		var out bytes.Buffer
		require.NoError(t, d.HandleFrame(protocol.BuildProbe(n), &out))
		assert.Equal(t, []byte{byte(n)}, out.Bytes())
	}
}

func TestDeviceRxLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		size  int
		want  byte
	}{
		{name: "within buffer", limit: RxBufferSize, size: 100, want: 100},
		{name: "firmware buffer", limit: RxBufferSize, size: 200, want: RxBufferSize},
		{name: "small buffer", limit: 16, size: 20, want: 16},
		{name: "unset", limit: 0, size: 130, want: RxBufferSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDevice()
			d.RxLimit = tt.limit

			var out bytes.Buffer
			require.NoError(t, d.HandleFrame(protocol.BuildProbe(tt.size), &out))
			assert.Equal(t, []byte{tt.want}, out.Bytes())
		})
	}
}

func TestDeviceBootloaderReply(t *testing.T) {
	d := NewDevice()

	var out bytes.Buffer
	require.NoError(t, d.HandleFrame(protocol.BaudDetect, &out))
	assert.Equal(t, protocol.ACK, out.Bytes())

	d.BootloaderReply = []byte{0x00, 0x99}
	out.Reset()
	require.NoError(t, d.HandleFrame(protocol.BaudDetect, &out))
	assert.Equal(t, []byte{0x00, 0x99}, out.Bytes())
}

func TestDeviceDump(t *testing.T) {
	d := NewDevice()

	var out bytes.Buffer
	require.NoError(t, d.HandleFrame(protocol.DumpCommand, &out))

	lines := strings.SplitAfter(out.String(), "\n")
	lines = lines[:len(lines)-1]
	require.NotEmpty(t, lines)
	assert.Equal(t, string(protocol.HexEOF), lines[len(lines)-1])
	for _, l := range lines {
		assert.NoError(t, protocol.ValidateRecord([]byte(l)), l)
	}

	img, err := protocol.DecodeImage(&out, protocol.FillByte)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), img.Base)
	assert.Equal(t, d.Flash[:len(img.Data)], img.Data)
	assert.True(t, bytes.HasPrefix(img.Data, []byte("Sed ut perspiciatis")))
	assert.Equal(t, []byte("littlefs"), img.Data[FlashSize/2:FlashSize/2+8])
}

func TestDeviceIgnoresFrames(t *testing.T) {
	tests := map[string]*Device{
		"unknown": NewDevice(),
		"silent":  {Silent: true, BootloaderReply: protocol.ACK},
	}

	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, d.HandleFrame([]byte("reboot"), &out))
			require.NoError(t, d.HandleFrame(nil, &out))
			if d.Silent {
				require.NoError(t, d.HandleFrame(protocol.BaudDetect, &out))
				require.NoError(t, d.HandleFrame(protocol.BuildProbe(11), &out))
			}
			assert.Zero(t, out.Len())
		})
	}
}

func TestDeviceDumpCommandPrefix(t *testing.T) {
	tests := []struct {
		frame string
		dumps bool
	}{
		{"dump_flash", true},
		{"dump", true},
		{"d", true},
		{"dump_flash!", false},
		{"dump_fast", false},
		{"flash", false},
	}

	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, NewDevice().HandleFrame([]byte(tt.frame), &out))
			assert.Equal(t, tt.dumps, strings.HasSuffix(out.String(), string(protocol.HexEOF)))
		})
	}
}
