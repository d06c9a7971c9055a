package transport

import (
	"errors"
	"fmt"
	"io"
)

// ShutdownMode selects which half of a stream to shut down.
type ShutdownMode int

const (
	ShutdownRead ShutdownMode = iota
	ShutdownWrite
	ShutdownBoth
)

func (m ShutdownMode) String() string {
	switch m {
	case ShutdownRead:
		return "read"
	case ShutdownWrite:
		return "write"
	case ShutdownBoth:
		return "both"
	default:
		return fmt.Sprintf("ShutdownMode(%d)", int(m))
	}
}

var ErrInvalidShutdownMode = errors.New("transport: invalid shutdown mode")

// Shutdowner is safe to call while another goroutine is blocked in Read or
// Write on the same stream; the blocked call returns promptly. Repeated calls
// are no-ops.
type Shutdowner interface {
	Shutdown(how ShutdownMode) error
}

// Reader is the read half consumed by a reader pump.
type Reader interface {
	io.Reader
	Shutdowner
}

// Writer is the write half driven by a writer pump.
type Writer interface {
	io.Writer
	Flush() error
	Shutdowner
}

// ReadWriter is a full-duplex stream usable as both halves.
type ReadWriter interface {
	io.Reader
	io.Writer
	Flush() error
	Shutdowner
}

func validMode(how ShutdownMode) error {
	switch how {
	case ShutdownRead, ShutdownWrite, ShutdownBoth:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidShutdownMode, int(how))
	}
}
