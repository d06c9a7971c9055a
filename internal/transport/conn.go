package transport

import (
	"bufio"
	"errors"
	"net"
	"sync"
)

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Conn adapts a net.Conn. Reads and writes are buffered; Flush pushes the
// write buffer to the socket.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer

	mu        sync.Mutex
	readShut  bool
	writeShut bool
}

func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

func (c *Conn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// ReadByte lets the frame decoder consume the length prefix without a syscall per digit.
func (c *Conn) ReadByte() (byte, error) {
	return c.r.ReadByte()
}

func (c *Conn) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *Conn) Flush() error {
	return c.w.Flush()
}

// Shutdown half-closes TCP and Unix stream sockets. Connections without
// half-close support are closed outright for any mode.
func (c *Conn) Shutdown(how ShutdownMode) error {
	if err := validMode(how); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	hc, ok := c.conn.(halfCloser)
	if !ok {
		if c.readShut && c.writeShut {
			return nil
		}
		c.readShut, c.writeShut = true, true
		return ignoreClosed(c.conn.Close())
	}

	var errs []error
	if (how == ShutdownRead || how == ShutdownBoth) && !c.readShut {
		c.readShut = true
		errs = append(errs, ignoreClosed(hc.CloseRead()))
	}
	if (how == ShutdownWrite || how == ShutdownBoth) && !c.writeShut {
		c.writeShut = true
		errs = append(errs, ignoreClosed(hc.CloseWrite()))
	}
	return errors.Join(errs...)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
