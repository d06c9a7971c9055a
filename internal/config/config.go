package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	NetworkTCP  = "tcp"
	NetworkUnix = "unix"

	ModeEcho  = "echo"
	ModeUpper = "upper"
	ModePrint = "print"
)

// ChannelConfig is the [channel] table shared by serve and send configs.
type ChannelConfig struct {
	OutboundCapacity int    `toml:"outbound_capacity" yaml:"outbound_capacity"`
	InboxCapacity    int    `toml:"inbox_capacity" yaml:"inbox_capacity"`
	MaxDigits        int    `toml:"max_digits" yaml:"max_digits"`
	MaxPayloadBytes  uint64 `toml:"max_payload_bytes" yaml:"max_payload_bytes"`
}

type ServeConfig struct {
	Name        string        `toml:"name" yaml:"name"`
	Network     string        `toml:"network" yaml:"network"`
	Addr        string        `toml:"addr" yaml:"addr"`
	Mode        string        `toml:"mode" yaml:"mode"`
	MetricsAddr string        `toml:"metrics_addr" yaml:"metrics_addr"`
	Channel     ChannelConfig `toml:"channel" yaml:"channel"`
}

type SendConfig struct {
	Name    string        `toml:"name" yaml:"name"`
	Network string        `toml:"network" yaml:"network"`
	Addr    string        `toml:"addr" yaml:"addr"`
	Timeout string        `toml:"timeout" yaml:"timeout"`
	Last    string        `toml:"last" yaml:"last"`
	Channel ChannelConfig `toml:"channel" yaml:"channel"`
}

func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		OutboundCapacity: 16,
		InboxCapacity:    16,
		MaxDigits:        64,
		MaxPayloadBytes:  8 * 1024 * 1024,
	}
}

func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Name:    "netstring-serve",
		Network: NetworkTCP,
		Addr:    "127.0.0.1:7400",
		Mode:    ModeEcho,
		Channel: DefaultChannelConfig(),
	}
}

func DefaultSendConfig() SendConfig {
	return SendConfig{
		Name:    "netstring-send",
		Network: NetworkTCP,
		Addr:    "127.0.0.1:7400",
		Timeout: "5s",
		Channel: DefaultChannelConfig(),
	}
}

func LoadServeConfig(path string) (ServeConfig, error) {
	cfg := DefaultServeConfig()
	if err := loadFile(path, &cfg); err != nil {
		return ServeConfig{}, err
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.MetricsAddr = strings.TrimSpace(cfg.MetricsAddr)
	if err := ValidateServeConfig(cfg); err != nil {
		return ServeConfig{}, err
	}
	return cfg, nil
}

func LoadSendConfig(path string) (SendConfig, error) {
	cfg := DefaultSendConfig()
	if err := loadFile(path, &cfg); err != nil {
		return SendConfig{}, err
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Timeout = strings.TrimSpace(cfg.Timeout)
	if err := ValidateSendConfig(cfg); err != nil {
		return SendConfig{}, err
	}
	return cfg, nil
}

// loadFile decodes over the defaults already in out; keys absent from the
// file keep their default value.
func loadFile(path string, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return loadToml(path, out)
	case ".yaml", ".yml":
		return loadYAML(path, out)
	default:
		return fmt.Errorf("config load failed (%s): unsupported extension", path)
	}
}

func loadToml(path string, out any) error {
	meta, err := toml.DecodeFile(path, out)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func loadYAML(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServeConfig(cfg ServeConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("serve config missing name")
	}
	if err := validateEndpoint(cfg.Network, cfg.Addr); err != nil {
		return fmt.Errorf("serve config: %w", err)
	}
	switch cfg.Mode {
	case ModeEcho, ModeUpper, ModePrint:
	default:
		return fmt.Errorf("serve config unknown mode %q", cfg.Mode)
	}
	if err := ValidateChannelConfig(cfg.Channel); err != nil {
		return fmt.Errorf("serve config channel invalid: %w", err)
	}
	return nil
}

func ValidateSendConfig(cfg SendConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("send config missing name")
	}
	if err := validateEndpoint(cfg.Network, cfg.Addr); err != nil {
		return fmt.Errorf("send config: %w", err)
	}
	if _, err := cfg.TimeoutDuration(); err != nil {
		return fmt.Errorf("send config: %w", err)
	}
	if err := ValidateChannelConfig(cfg.Channel); err != nil {
		return fmt.Errorf("send config channel invalid: %w", err)
	}
	return nil
}

func ValidateChannelConfig(cfg ChannelConfig) error {
	if cfg.OutboundCapacity < 0 {
		return fmt.Errorf("outbound_capacity must not be negative")
	}
	if cfg.InboxCapacity < 0 {
		return fmt.Errorf("inbox_capacity must not be negative")
	}
	if cfg.MaxDigits < 1 || cfg.MaxDigits > 64 {
		return fmt.Errorf("max_digits must be within 1..64")
	}
	return nil
}

// TimeoutDuration parses Timeout; empty means no timeout.
func (c SendConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative")
	}
	return d, nil
}

func validateEndpoint(network, addr string) error {
	switch network {
	case NetworkTCP, NetworkUnix:
	default:
		return fmt.Errorf("unsupported network %q", network)
	}
	if addr == "" {
		return fmt.Errorf("missing addr")
	}
	return nil
}
