package netstring

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

const (
	// DigitLimit bounds the decimal length prefix.
	DigitLimit = 64

	lengthDelim  byte = ':'
	trailerDelim byte = ','
)

var (
	ErrConnectionClosed = errors.New("netstring: connection closed")
	ErrInvalidFrame     = errors.New("netstring: invalid frame")
)

// Limits constrains frame decode memory use.
type Limits struct {
	MaxDigits       int
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxDigits:       DigitLimit,
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// WithDefaults fills zero-valued digit bounds. MaxPayloadBytes of zero stays
// unbounded; large payloads are then buffered as they arrive.
func (l Limits) WithDefaults() Limits {
	if l.MaxDigits <= 0 {
		l.MaxDigits = DigitLimit
	}
	return l
}

// Encode returns the wire form "<len>:<text>," where len counts bytes.
func Encode(text string) []byte {
	buf := make([]byte, 0, len(text)+24)
	buf = strconv.AppendInt(buf, int64(len(text)), 10)
	buf = append(buf, lengthDelim)
	buf = append(buf, text...)
	return append(buf, trailerDelim)
}

// Write emits one encoded frame with a single Write call.
func Write(w io.Writer, text string) error {
	if _, err := w.Write(Encode(text)); err != nil {
		return err
	}
	return nil
}

// Read decodes one frame from r.
//
// EOF inside the length prefix reports ErrConnectionClosed. A frame whose
// payload or trailer is cut short reports ErrInvalidFrame.
func Read(r io.Reader, limits Limits) (string, error) {
	limits = limits.WithDefaults()
	n, err := readLength(r, limits)
	if err != nil {
		return "", err
	}

	payload, err := readPayload(r, n)
	if err != nil {
		if isEOF(err) {
			return "", fmt.Errorf("%w: payload shorter than declared length %d", ErrInvalidFrame, n)
		}
		return "", err
	}

	trailer, err := readByte(r)
	if err != nil {
		if isEOF(err) {
			return "", fmt.Errorf("%w: missing %q delimiter", ErrInvalidFrame, trailerDelim)
		}
		return "", err
	}
	if trailer != trailerDelim {
		return "", fmt.Errorf("%w: expected %q delimiter, got %q", ErrInvalidFrame, trailerDelim, trailer)
	}

	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w: payload is not valid utf-8", ErrInvalidFrame)
	}
	return string(payload), nil
}

// Reader decodes consecutive frames from one source.
type Reader struct {
	src    io.Reader
	limits Limits
}

func NewReader(r io.Reader, limits Limits) *Reader {
	return &Reader{src: r, limits: limits.WithDefaults()}
}

func (r *Reader) Read() (string, error) {
	return Read(r.src, r.limits)
}

func readLength(r io.Reader, limits Limits) (uint64, error) {
	digits := make([]byte, 0, limits.MaxDigits)
	for {
		b, err := readByte(r)
		if err != nil {
			if isEOF(err) {
				return 0, ErrConnectionClosed
			}
			return 0, err
		}
		if b == lengthDelim {
			break
		}
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: unexpected byte %q in length prefix", ErrInvalidFrame, b)
		}
		if len(digits) == limits.MaxDigits {
			return 0, fmt.Errorf("%w: length prefix exceeds %d digits", ErrInvalidFrame, limits.MaxDigits)
		}
		digits = append(digits, b)
	}
	if len(digits) == 0 {
		return 0, fmt.Errorf("%w: empty length prefix", ErrInvalidFrame)
	}

	n, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if limits.MaxPayloadBytes > 0 && n > limits.MaxPayloadBytes {
		return 0, fmt.Errorf("%w: declared length %d exceeds limit %d", ErrInvalidFrame, n, limits.MaxPayloadBytes)
	}
	if n > uint64(maxInt) {
		return 0, fmt.Errorf("%w: declared length %d overflows int", ErrInvalidFrame, n)
	}
	return n, nil
}

const maxInt = int(^uint(0) >> 1)

// payloadChunk caps the allocation made before any payload byte arrives.
// Longer payloads grow with the bytes actually received.
const payloadChunk = 64 * 1024

func readPayload(r io.Reader, n uint64) ([]byte, error) {
	if n <= payloadChunk {
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
	var buf bytes.Buffer
	buf.Grow(payloadChunk)
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
