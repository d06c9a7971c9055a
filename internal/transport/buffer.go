package transport

import (
	"bytes"
	"io"
	"sync"
)

// Buffer is a goroutine-safe in-memory writer. Clones of the pointer share
// the same bytes, so tests can inspect what a writer pump produced.
type Buffer struct {
	mu      sync.RWMutex
	buf     bytes.Buffer
	flushes int
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushes++
	return nil
}

func (b *Buffer) Shutdown(how ShutdownMode) error {
	return validMode(how)
}

// Bytes returns a copy of everything written so far.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Flushes reports how many times Flush was called.
func (b *Buffer) Flushes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.flushes
}

type nopShutdownReader struct {
	io.Reader
}

func (nopShutdownReader) Shutdown(how ShutdownMode) error {
	return validMode(how)
}

// NopShutdownReader wraps a fixed source whose reads never block.
func NopShutdownReader(r io.Reader) Reader {
	return nopShutdownReader{Reader: r}
}

type discard struct{}

func (discard) Write(p []byte) (int, error)     { return len(p), nil }
func (discard) Flush() error                    { return nil }
func (discard) Shutdown(how ShutdownMode) error { return validMode(how) }

// Discard is a Writer that drops everything.
var Discard Writer = discard{}
