package protocol

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// Flash layout of the dump as produced by the firmware.
const (
	FlashReadBlock = 256
	HexChunk       = 16
	FillByte       = 0xFF
)

// Image is a decoded flash dump.
type Image struct {
	Base     uint32
	Data     []byte
	Segments int
}

// CRC returns the fingerprint of the image contents.
func (img *Image) CRC() uint16 {
	return ImageCRC(img.Data)
}

// ValidateRecord checks framing and checksum of one Intel HEX record.
// Trailing CR/LF is ignored.
func ValidateRecord(line []byte) error {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 || line[0] != ':' {
		return fmt.Errorf("record does not start with ':'")
	}
	raw, err := hex.DecodeString(string(line[1:]))
	if err != nil {
		return fmt.Errorf("record is not hex: %w", err)
	}
	if len(raw) < 5 {
		return fmt.Errorf("record too short: %d bytes", len(raw))
	}
	if int(raw[0])+5 != len(raw) {
		return fmt.Errorf("record length mismatch: count=%d, got %d data bytes", raw[0], len(raw)-5)
	}
	want := RecordChecksum(raw[:len(raw)-1])
	if got := raw[len(raw)-1]; got != want {
		return fmt.Errorf("record checksum mismatch: expected 0x%02X, got 0x%02X", want, got)
	}
	return nil
}

// DecodeImage parses a captured dump into a contiguous binary image. Gaps
// between data segments are filled with fill.
func DecodeImage(r io.Reader, fill byte) (*Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := ValidateRecord(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("parse intel hex: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return &Image{}, nil
	}

	start := segments[0].Address
	end := segments[0].Address + uint32(len(segments[0].Data))
	for _, s := range segments[1:] {
		if s.Address < start {
			start = s.Address
		}
		if e := s.Address + uint32(len(s.Data)); e > end {
			end = e
		}
	}

	return &Image{
		Base:     start,
		Data:     mem.ToBinary(start, end-start, fill),
		Segments: len(segments),
	}, nil
}

// EncodeFlash writes flash as an Intel HEX stream the way the firmware
// dumps it: 16-byte data records, chunks that are entirely FillByte are
// skipped, terminated by the end-of-file record.
func EncodeFlash(w io.Writer, base uint32, flash []byte) error {
	mem := gohex.NewMemory()

	for addr := 0; addr < len(flash); addr += HexChunk {
		end := addr + HexChunk
		if end > len(flash) {
			end = len(flash)
		}
		chunk := flash[addr:end]
		if isFill(chunk) {
			continue
		}
		if err := mem.AddBinary(base+uint32(addr), append([]byte(nil), chunk...)); err != nil {
			return fmt.Errorf("add chunk at 0x%08X: %w", base+uint32(addr), err)
		}
	}

	var buf bytes.Buffer
	if err := mem.DumpIntelHex(&buf, HexChunk); err != nil {
		return err
	}

	// firmware framing: uppercase digits, LF line endings
	out := bytes.ToUpper(bytes.ReplaceAll(buf.Bytes(), []byte("\r\n"), []byte("\n")))
	_, err := w.Write(out)
	return err
}

func isFill(chunk []byte) bool {
	for _, b := range chunk {
		if b != FillByte {
			return false
		}
	}
	return true
}
