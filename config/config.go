// Package config loads and saves the persisted micctl settings.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"micctl/audio"
	"micctl/common"
	"micctl/gate"
)

const (
	DirName  = "micctl"
	FileName = "config.json"

	DefaultAccelerator = "Ctrl+Shift+V"
	DefaultWebAddr     = "127.0.0.1:8787"
)

// Config is the persisted application configuration.
type Config struct {
	Route           audio.Route `json:"route" yaml:"route"`
	Hotkey          Hotkey      `json:"hotkey" yaml:"hotkey"`
	LaunchOnStartup bool        `json:"launch_on_startup" yaml:"launch_on_startup"`
	MinimizeToTray  bool        `json:"minimize_to_tray" yaml:"minimize_to_tray"`
	Web             Web         `json:"web" yaml:"web"`
}

type Hotkey struct {
	Accelerator string    `json:"accelerator" yaml:"accelerator"`
	Mode        gate.Mode `json:"mode" yaml:"mode"`
}

// Web configures the local control panel.
type Web struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Hotkey: Hotkey{
			Accelerator: DefaultAccelerator,
			Mode:        gate.ModePTT,
		},
		MinimizeToTray: true,
		Web:            Web{Addr: DefaultWebAddr},
	}
}

// DefaultPath is $UserConfigDir/micctl/config.json.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", common.Wrap(common.KindConfig, err, "cannot locate config directory")
	}
	return filepath.Join(base, DirName, FileName), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads path, returning defaults if it does not exist. Fields absent
// from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, common.Wrap(common.KindConfig, err, "failed to read config file")
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, common.Wrap(common.KindConfig, err, "failed to parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.Wrap(common.KindConfig, err, "failed to create config directory")
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return common.Wrap(common.KindConfig, err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return common.Wrap(common.KindConfig, err, "failed to write config file")
	}
	return nil
}

// Validate checks enum fields. An empty route is allowed; it is only
// required when the engine starts.
func (c *Config) Validate() error {
	if _, err := gate.ParseMode(string(c.Hotkey.Mode)); err != nil {
		return common.Wrap(common.KindConfig, err, "invalid hotkey mode")
	}
	if strings.TrimSpace(c.Hotkey.Accelerator) == "" {
		return common.Errorf(common.KindConfig, "hotkey accelerator is empty")
	}
	if c.Web.Addr == "" {
		c.Web.Addr = DefaultWebAddr
	}
	return nil
}
