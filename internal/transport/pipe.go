package transport

import (
	"errors"
	"io"
	"sync"
)

// PipeEnd is one side of an in-memory full-duplex stream. Writes block until
// the peer reads them.
type PipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu        sync.Mutex
	readShut  bool
	writeShut bool
}

// NewPipe returns two connected ends.
func NewPipe() (*PipeEnd, *PipeEnd) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &PipeEnd{r: ar, w: aw}, &PipeEnd{r: br, w: bw}
}

func (p *PipeEnd) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if errors.Is(err, io.ErrClosedPipe) && p.isReadShut() {
		return n, io.EOF
	}
	return n, err
}

func (p *PipeEnd) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

func (p *PipeEnd) Flush() error {
	return nil
}

// Shutdown of the read half unblocks a pending Read with io.EOF. Shutdown of
// the write half delivers io.EOF to the peer.
func (p *PipeEnd) Shutdown(how ShutdownMode) error {
	if err := validMode(how); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if (how == ShutdownRead || how == ShutdownBoth) && !p.readShut {
		p.readShut = true
		errs = append(errs, p.r.Close())
	}
	if (how == ShutdownWrite || how == ShutdownBoth) && !p.writeShut {
		p.writeShut = true
		errs = append(errs, p.w.Close())
	}
	return errors.Join(errs...)
}

func (p *PipeEnd) Close() error {
	return p.Shutdown(ShutdownBoth)
}

func (p *PipeEnd) isReadShut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readShut
}
