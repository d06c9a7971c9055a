package channel

import (
	"strings"

	"github.com/danmuck/netstring/internal/protocol/netstring"
)

const (
	DefaultName             = "channel"
	DefaultOutboundCapacity = 16
	DefaultInboxCapacity    = 16
)

// Mapper transforms one decoded inbound message. Returning false skips it.
type Mapper func(msg string) (string, bool)

// Config defines channel queueing and decode behavior.
type Config struct {
	// Name labels logs and metrics. Keep it stable across connections.
	Name string
	// Conn tags log lines only, such as a per-connection id.
	Conn string
	// OutboundCapacity bounds pending outbound operations. Zero makes every
	// operation rendezvous with the writer pump.
	OutboundCapacity int
	Limits           netstring.Limits
	Mapper           Mapper
}

func DefaultConfig() Config {
	return Config{
		Name:             DefaultName,
		OutboundCapacity: DefaultOutboundCapacity,
		Limits:           netstring.DefaultLimits(),
	}
}

// WithDefaults fills missing fields. A negative capacity is treated as zero.
func (c Config) WithDefaults() Config {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.OutboundCapacity < 0 {
		c.OutboundCapacity = 0
	}
	if c.Limits == (netstring.Limits{}) {
		c.Limits = netstring.DefaultLimits()
	}
	c.Limits = c.Limits.WithDefaults()
	return c
}
