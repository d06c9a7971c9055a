package channel

import (
	"errors"
	"net"

	"github.com/danmuck/netstring/internal/observability"
	"github.com/danmuck/netstring/internal/protocol/netstring"
)

// runReader is the only consumer of the read half and the only producer of the inbox.
func (c *core) runReader() {
	defer func() {
		c.inbox.close()
		close(c.readerDone)
		c.log.Trace().Msg("reader loop ended")
	}()

	src := netstring.NewReader(c.reader, c.cfg.Limits)
	for !c.stop.Load() {
		c.log.Trace().Msg("waiting for frame")
		msg, err := src.Read()
		if err != nil {
			c.readStopped(err)
			return
		}
		observability.RecordFrameRead(c.cfg.Name)

		if c.cfg.Mapper != nil {
			mapped, ok := c.cfg.Mapper(msg)
			if !ok {
				observability.RecordFrameSkipped(c.cfg.Name)
				continue
			}
			msg = mapped
		}
		if c.stop.Load() {
			c.log.Debug().Msg("dropping frame received after terminal send")
			observability.RecordReadStop(c.cfg.Name, observability.ReadStopInterrupted)
			return
		}

		if err := c.inbox.deliver(msg, c.halt); err != nil {
			if errors.Is(err, ErrInboxDiscarded) {
				c.log.Debug().Msg("received message but nobody is listening")
				observability.RecordReadStop(c.cfg.Name, observability.ReadStopInboxDiscarded)
				c.shutdownReader()
				return
			}
			observability.RecordReadStop(c.cfg.Name, observability.ReadStopInterrupted)
			return
		}
	}
	observability.RecordReadStop(c.cfg.Name, observability.ReadStopInterrupted)
}

func (c *core) readStopped(err error) {
	switch {
	case errors.Is(err, netstring.ErrConnectionClosed):
		c.log.Debug().Msg("connection closed, closing reader")
		observability.RecordReadStop(c.cfg.Name, observability.ReadStopConnectionClosed)
	case c.stop.Load(), errors.Is(err, net.ErrClosed):
		c.log.Debug().Err(err).Msg("read interrupted by shutdown")
		observability.RecordReadStop(c.cfg.Name, observability.ReadStopInterrupted)
	case errors.Is(err, netstring.ErrInvalidFrame):
		c.log.Error().Err(err).Msg("invalid netstring, closing reader")
		observability.RecordReadStop(c.cfg.Name, observability.ReadStopInvalidFrame)
	default:
		c.log.Error().Err(err).Msg("error reading netstring")
		observability.RecordReadStop(c.cfg.Name, observability.ReadStopIO)
	}
}
