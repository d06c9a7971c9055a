package config

import (
	"github.com/danmuck/netstring/internal/channel"
	"github.com/danmuck/netstring/internal/protocol/netstring"
)

// ChannelOptions maps the file table onto runtime channel settings.
func (c ChannelConfig) ChannelOptions(name string) channel.Config {
	cfg := channel.DefaultConfig()
	cfg.Name = name
	cfg.OutboundCapacity = c.OutboundCapacity
	cfg.Limits = netstring.Limits{
		MaxDigits:       c.MaxDigits,
		MaxPayloadBytes: c.MaxPayloadBytes,
	}
	return cfg.WithDefaults()
}
