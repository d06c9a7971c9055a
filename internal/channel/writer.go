package channel

import (
	"fmt"

	"github.com/danmuck/netstring/internal/observability"
	"github.com/danmuck/netstring/internal/protocol/netstring"
)

// runWriter is the only consumer of the outbound queue.
func (c *core) runWriter() {
	defer func() {
		observability.ChannelClosed(c.cfg.Name)
		close(c.done)
		c.log.Trace().Msg("writer loop ended")
	}()

	for {
		select {
		case o := <-c.ops:
			c.taken.Add(1)
			if !c.apply(o) {
				return
			}
		case <-c.closing:
			c.log.Trace().Msg("outbound queue closed")
			c.drain()
			c.shutdownReader()
			return
		}
	}
}

// drain applies operations that were queued before the last handle was released.
func (c *core) drain() {
	for {
		select {
		case o := <-c.ops:
			c.taken.Add(1)
			if !c.apply(o) {
				return
			}
		default:
			return
		}
	}
}

// apply runs one operation and reports whether the writer keeps running.
func (c *core) apply(o op) bool {
	switch o.kind {
	case opMessage:
		c.log.Trace().Int("bytes", len(o.text)).Msg("writing message")
		if err := c.write(o.text); err != nil {
			c.fail(err)
			return false
		}
		return true

	case opFlush:
		if err := c.writer.Flush(); err != nil {
			c.fail(fmt.Errorf("flush: %w", err))
			return false
		}
		observability.RecordFlush(c.cfg.Name)
		c.log.Trace().Msg("flushed")
		signal(o.ack)
		return true

	case opLast:
		c.requestStop()
		c.log.Trace().Int("bytes", len(o.text)).Msg("writing last message")
		if err := c.write(o.text); err != nil {
			c.fail(err)
			return false
		}
		if err := c.writer.Flush(); err != nil {
			c.fail(fmt.Errorf("flush on last message: %w", err))
			return false
		}
		observability.RecordFlush(c.cfg.Name)
		c.shutdownReader()
		signal(o.ack)
		return false

	default:
		c.log.Error().Stringer("op", o.kind).Msg("unknown outbound operation")
		return true
	}
}

func (c *core) write(text string) error {
	frame := netstring.Encode(text)
	if _, err := c.writer.Write(frame); err != nil {
		return fmt.Errorf("write netstring: %w", err)
	}
	observability.RecordFrameWritten(c.cfg.Name, len(frame))
	return nil
}

// fail records a fatal transport error. The reader is shut down as well since
// nothing can answer what it would deliver.
func (c *core) fail(err error) {
	c.failure = fmt.Errorf("%w: %w", ErrWriteFailure, err)
	c.log.Error().Err(err).Msg("writer stopped")
	observability.RecordWriteFailure(c.cfg.Name)
	c.requestStop()
	c.shutdownReader()
}
