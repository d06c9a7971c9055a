package config

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	KindServe = "serve"
	KindSend  = "send"

	FormatTOML = "toml"
	FormatYAML = "yaml"
)

func defaultsFor(kind string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindServe:
		return DefaultServeConfig(), nil
	case KindSend:
		return DefaultSendConfig(), nil
	default:
		return nil, fmt.Errorf("unknown config kind: %s", kind)
	}
}

// Template renders the default config of kind in format.
func Template(kind, format string) ([]byte, error) {
	cfg, err := defaultsFor(kind)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatTOML, "":
		return toml.Marshal(cfg)
	case FormatYAML, "yml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path, kind, format string, overwrite bool) error {
	template, err := Template(kind, format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, template, 0o600)
}

// Validate loads path as kind and reports the first problem.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindServe:
		_, err := LoadServeConfig(path)
		return err
	case KindSend:
		_, err := LoadSendConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}
