package driver

import (
	"errors"
	"fmt"
)

// ErrReceiveTimeout indicates a read returned no data at all before the
// port timeout expired.
var ErrReceiveTimeout = errors.New("receive timeout")

// HandshakeMismatchError indicates the bootloader answered the baud
// detection token with something other than the acknowledgement.
type HandshakeMismatchError struct {
	Expected []byte
	Actual   []byte
}

func (e *HandshakeMismatchError) Error() string {
	return fmt.Sprintf("received %s instead of ACK %s", hexBytes(e.Actual), hexBytes(e.Expected))
}

// ProbeMismatchError indicates the device echoed a length other than the
// burst size. Got is -1 when nothing was received.
type ProbeMismatchError struct {
	Size int
	Got  int
	Err  error
}

func (e *ProbeMismatchError) Error() string {
	if e.Got < 0 {
		return fmt.Sprintf("read mismatch (size=%d): nothing received", e.Size)
	}
	return fmt.Sprintf("read mismatch (size=%d != %d)", e.Size, e.Got)
}

func (e *ProbeMismatchError) Unwrap() error {
	return e.Err
}

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return "nothing"
	}
	return fmt.Sprintf("% X", b)
}
