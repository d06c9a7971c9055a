package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/netstring/internal/testutil/testlog"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadServeConfigTomlKeepsDefaults(t *testing.T) {
	testlog.Start(t)

	path := writeFile(t, "serve.toml", `
addr = "127.0.0.1:9000"
mode = "UPPER"

[channel]
outbound_capacity = 4
`)
	cfg, err := LoadServeConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.Mode != ModeUpper {
		t.Fatalf("unexpected serve config: %+v", cfg)
	}
	if cfg.Channel.OutboundCapacity != 4 {
		t.Fatalf("unexpected outbound capacity: got=%d", cfg.Channel.OutboundCapacity)
	}
	def := DefaultServeConfig()
	if cfg.Network != def.Network || cfg.Name != def.Name || cfg.Channel.MaxDigits != def.Channel.MaxDigits {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadServeConfigRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)

	path := writeFile(t, "serve.toml", "addr = \"127.0.0.1:9000\"\nbogus = true\n")
	_, err := LoadServeConfig(path)
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unknown key error, got=%v", err)
	}
}

func TestLoadSendConfigYAML(t *testing.T) {
	testlog.Start(t)

	path := writeFile(t, "send.yaml", `
network: unix
addr: /tmp/netstring.sock
timeout: 250ms
last: bye
channel:
  inbox_capacity: 2
`)
	cfg, err := LoadSendConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network != NetworkUnix || cfg.Last != "bye" || cfg.Channel.InboxCapacity != 2 {
		t.Fatalf("unexpected send config: %+v", cfg)
	}
	d, err := cfg.TimeoutDuration()
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("unexpected timeout: got=%v err=%v", d, err)
	}
	if cfg.Channel.OutboundCapacity != DefaultChannelConfig().OutboundCapacity {
		t.Fatalf("outbound capacity default lost: got=%d", cfg.Channel.OutboundCapacity)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"mode.toml":     "mode = \"shout\"\n",
		"network.toml":  "network = \"udp\"\n",
		"digits.toml":   "[channel]\nmax_digits = 65\n",
		"capacity.yaml": "channel:\n  outbound_capacity: -1\n",
		"unknown.yml":   "listen: 1\n",
		"serve.json":    "{}",
	}
	for name, body := range cases {
		if _, err := LoadServeConfig(writeFile(t, name, body)); err == nil {
			t.Fatalf("expected %s to fail", name)
		}
	}
	if _, err := LoadSendConfig(writeFile(t, "send.toml", "timeout = \"soon\"\n")); err == nil {
		t.Fatal("expected bad timeout to fail")
	}
}

func TestTemplatesRoundTripThroughLoaders(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	for _, kind := range []string{KindServe, KindSend} {
		for _, format := range []string{FormatTOML, FormatYAML} {
			path := filepath.Join(dir, kind+"."+format)
			if err := WriteTemplate(path, kind, format, false); err != nil {
				t.Fatalf("write %s template: %v", path, err)
			}
			if err := Validate(path, kind); err != nil {
				t.Fatalf("template %s does not validate: %v", path, err)
			}
			if err := WriteTemplate(path, kind, format, false); err == nil {
				t.Fatalf("expected %s overwrite refusal", path)
			}
		}
	}
	if _, err := Template("relay", FormatTOML); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if _, err := Template(KindServe, "ini"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestChannelOptions(t *testing.T) {
	testlog.Start(t)

	cc := DefaultChannelConfig()
	cc.OutboundCapacity = 0
	cc.MaxPayloadBytes = 32
	opts := cc.ChannelOptions("edge")
	if opts.Name != "edge" || opts.OutboundCapacity != 0 {
		t.Fatalf("unexpected channel options: %+v", opts)
	}
	if opts.Limits.MaxPayloadBytes != 32 || opts.Limits.MaxDigits != 64 {
		t.Fatalf("unexpected limits: %+v", opts.Limits)
	}
}
