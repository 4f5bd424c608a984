package simulator

import (
	"bytes"
	"io"

	"uartbl/logger"
	"uartbl/protocol"
)

const (
	// RxBufferSize caps a received frame, as the firmware RX buffer does
	RxBufferSize = 128
	// FlashSize is the dumped external flash region
	FlashSize = 256 * 1024
)

const sampleText = "Sed ut perspiciatis unde omnis iste natus error sit voluptatem \n" +
	"accusantium doloremque laudantium, totam rem aperiam, eaque ipsa quae ab\n" +
	"illo inventore veritatis et quasi architecto beatae vitae dicta sunt\n" +
	"explicabo. Nemo enim ipsam voluptatem quia voluptas sit aspernatur aut\n"

// Device emulates the firmware command loop and the ROM bootloader's
// reply to the baud detection token.
type Device struct {
	// Flash is dumped on "dump_flash"
	Flash []byte
	// BootloaderReply answers the baud detection token
	BootloaderReply []byte
	// Silent drops every frame without reply
	Silent bool
	// RxLimit truncates received frames; RxBufferSize unless a smaller
	// buffer is being simulated
	RxLimit int
}

// NewDevice returns a device with an erased flash holding a text file at
// the start and a superblock marker at 128 KiB.
func NewDevice() *Device {
	flash := bytes.Repeat([]byte{protocol.FillByte}, FlashSize)
	copy(flash, sampleText)
	copy(flash[FlashSize/2:], "littlefs")

	return &Device{
		Flash:           flash,
		BootloaderReply: append([]byte(nil), protocol.ACK...),
		RxLimit:         RxBufferSize,
	}
}

// HandleFrame reacts to one received frame, writing any reply to w.
func (d *Device) HandleFrame(frame []byte, w io.Writer) error {
	if len(frame) == 0 {
		return nil
	}
	limit := d.RxLimit
	if limit <= 0 || limit > RxBufferSize {
		limit = RxBufferSize
	}
	if len(frame) > limit {
		frame = frame[:limit]
	}

	logger.Protocol("RX", "frame", frame)

	if d.Silent {
		logger.Debug("[SIM] Silent, dropping %d byte frame", len(frame))
		return nil
	}

	switch {
	case bytes.Equal(frame, protocol.BaudDetect):
		logger.Info("[SIM] Baud detection received, replying %x", d.BootloaderReply)
		_, err := w.Write(d.BootloaderReply)
		return err

	case frame[0] == protocol.ProbeFill:
		// reply with received len
		logger.Info("[SIM] Probe frame of %d bytes", len(frame))
		_, err := w.Write([]byte{byte(len(frame))})
		return err

	// the firmware compares only the received length, so a truncated
	// command still starts a dump
	case bytes.HasPrefix(protocol.DumpCommand, frame):
		logger.Info("[SIM] Dumping %d bytes of flash", len(d.Flash))
		return protocol.EncodeFlash(w, 0, d.Flash)

	default:
		logger.Debug("[SIM] Ignoring unknown frame %q", frame)
		return nil
	}
}
