package channel

import (
	"sync"
	"sync/atomic"

	"github.com/danmuck/netstring/internal/logging"
	"github.com/danmuck/netstring/internal/observability"
	"github.com/danmuck/netstring/internal/transport"
	"github.com/rs/zerolog"
)

// core is the state shared by every handle of one channel and its pumps.
type core struct {
	cfg    Config
	log    zerolog.Logger
	reader transport.Reader
	writer transport.Writer
	inbox  *Inbox

	ops chan op
	// sendMu orders enqueues so sent matches queue positions.
	sendMu sync.Mutex
	sent   uint64
	// taken counts operations the writer pump has received.
	taken atomic.Uint64

	// stop is written only by the writer pump, false -> true.
	stop     atomic.Bool
	halt     chan struct{}
	haltOnce sync.Once

	refs      atomic.Int64
	closing   chan struct{}
	closeOnce sync.Once

	// failure is written before done is closed and read only after.
	failure    error
	done       chan struct{}
	readerDone chan struct{}
}

// Channel is a handle to a running channel. Handles are safe for concurrent
// use; Clone hands out additional handles that keep the channel open.
type Channel struct {
	core     *core
	released atomic.Bool
}

// New starts the reader and writer pumps and returns without waiting for them.
// r and w may be the same full-duplex transport.
func New(r transport.Reader, w transport.Writer, inbox *Inbox, cfg Config) *Channel {
	cfg = cfg.WithDefaults()
	logCtx := logging.Component("channel").With().Str("channel", cfg.Name)
	if cfg.Conn != "" {
		logCtx = logCtx.Str("conn", cfg.Conn)
	}
	c := &core{
		cfg:        cfg,
		log:        logCtx.Logger(),
		reader:     r,
		writer:     w,
		inbox:      inbox,
		ops:        make(chan op, cfg.OutboundCapacity),
		halt:       make(chan struct{}),
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	c.refs.Store(1)
	observability.ChannelOpened(cfg.Name)

	go c.runReader()
	go c.runWriter()
	return &Channel{core: c}
}

// Open runs a channel over one full-duplex stream.
func Open(rw transport.ReadWriter, inbox *Inbox, cfg Config) *Channel {
	return New(rw, rw, inbox, cfg)
}

// Send queues text for the writer pump. It blocks only while the outbound
// queue is full.
func (ch *Channel) Send(text string) error {
	if ch.released.Load() {
		return &ClosedError{Text: text, HasText: true}
	}
	return ch.core.enqueue(op{kind: opMessage, text: text})
}

// Flush returns once every message queued before it has been written and the
// transport flushed.
func (ch *Channel) Flush() error {
	if ch.released.Load() {
		return &ClosedError{}
	}
	ack := newAck()
	if err := ch.core.enqueue(op{kind: opFlush, ack: ack}); err != nil {
		return err
	}
	return ch.core.await(ack)
}

// SendLast writes text as the final message and consumes the handle. On
// success the transport has been flushed and the writer pump has exited.
// Pending responses must be drained first; later inbound frames are dropped.
func (ch *Channel) SendLast(text string) error {
	if !ch.released.CompareAndSwap(false, true) {
		return &ClosedError{Text: text, HasText: true}
	}
	defer ch.core.release()
	ack := newAck()
	if err := ch.core.enqueue(op{kind: opLast, text: text, ack: ack}); err != nil {
		return err
	}
	if err := ch.core.await(ack); err != nil {
		return err
	}
	<-ch.core.done
	return nil
}

// Clone returns another handle to the same channel. Cloning a released
// handle yields a released handle.
func (ch *Channel) Clone() *Channel {
	if ch.released.Load() {
		out := &Channel{core: ch.core}
		out.released.Store(true)
		return out
	}
	ch.core.refs.Add(1)
	return &Channel{core: ch.core}
}

// Close releases the handle. Releasing the last handle closes the outbound
// queue; operations already queued are still written.
func (ch *Channel) Close() error {
	if !ch.released.CompareAndSwap(false, true) {
		return ErrChannelClosed
	}
	ch.core.release()
	return nil
}

// Done is closed when the writer pump has exited.
func (ch *Channel) Done() <-chan struct{} {
	return ch.core.done
}

// Wait blocks until both pumps have exited.
func (ch *Channel) Wait() {
	<-ch.core.done
	<-ch.core.readerDone
}

// Err returns the write failure that stopped the writer pump, or nil.
func (ch *Channel) Err() error {
	select {
	case <-ch.core.done:
		return ch.core.failure
	default:
		return nil
	}
}

func (c *core) release() {
	if c.refs.Add(-1) == 0 {
		c.closeOnce.Do(func() {
			close(c.closing)
		})
	}
}

// enqueue reports success only for operations the writer pump can still
// receive. An operation that lands in the buffer after the pump exited is
// reported as closed.
func (c *core) enqueue(o op) error {
	select {
	case <-c.closing:
		return c.closedError(o)
	default:
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	select {
	case c.ops <- o:
	case <-c.done:
		return c.closedError(o)
	}
	c.sent++
	select {
	case <-c.done:
		if c.taken.Load() < c.sent {
			return c.closedError(o)
		}
	default:
	}
	return nil
}

func (c *core) await(ack chan struct{}) error {
	select {
	case <-ack:
		return nil
	case <-c.done:
		// The terminal ack is signalled just before done closes.
		select {
		case <-ack:
			return nil
		default:
		}
		return c.closedError(op{kind: opFlush})
	}
}

func (c *core) closedError(o op) error {
	err := &ClosedError{}
	if o.kind != opFlush {
		err.Text = o.text
		err.HasText = true
	}
	select {
	case <-c.done:
		err.Cause = c.failure
	default:
	}
	return err
}

func (c *core) requestStop() {
	c.stop.Store(true)
	c.haltOnce.Do(func() {
		close(c.halt)
	})
}

func (c *core) shutdownReader() {
	if err := c.reader.Shutdown(transport.ShutdownRead); err != nil {
		c.log.Debug().Err(err).Msg("reader transport shutdown")
	}
}
