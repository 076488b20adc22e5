// Package bootcfg decodes the static boot-menu / device-binding table
// a board ships as YAML: which PHFS devices to register, which memory
// map regions to carve out, and which kernel/initrd aliases to boot by
// default. Grounded on internal/config/config.go's LoadConfig shape
// (read file, yaml.Unmarshal, applyDefaults, validate).
package bootcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phoenix-rtos/plo-sub001/phfs"
)

// DeviceBinding is one phfs.RegDev call (§4.3 regDev), as it appears
// in the YAML document.
type DeviceBinding struct {
	Alias    string `yaml:"alias"`
	Major    int    `yaml:"major"`
	Minor    int    `yaml:"minor"`
	Protocol string `yaml:"protocol,omitempty"`
}

// FileEntry is one phfs.RegFile call (§4.3 regFile).
type FileEntry struct {
	Alias string `yaml:"alias"`
	Addr  uint64 `yaml:"addr"`
	Size  uint64 `yaml:"size"`
}

// MapEntry is one syspage.Builder.AddMap call (§4.4 addMap).
type MapEntry struct {
	Name  string `yaml:"name"`
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
	Attr  string `yaml:"attr"`
}

// Config is the top-level boot-menu/device-binding document: board
// name, the device bindings and named files PHFS should expose, the
// memory map regions syspage should carve out, and the default boot
// entry's command line.
type Config struct {
	Board   string          `yaml:"board"`
	Devices []DeviceBinding `yaml:"devices"`
	Files   []FileEntry     `yaml:"files,omitempty"`
	Maps    []MapEntry      `yaml:"maps"`
	Default string          `yaml:"default,omitempty"`
	Timeout uint32          `yaml:"timeout_ms,omitempty"`
}

// Load reads, parses, and validates the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootcfg: cannot read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes data (the raw YAML document) into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("bootcfg: parse: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("bootcfg: validate: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3000
	}
	for i := range cfg.Devices {
		if cfg.Devices[i].Protocol == "" {
			cfg.Devices[i].Protocol = "raw"
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Board == "" {
		return fmt.Errorf("board name is required")
	}
	if len(cfg.Devices) == 0 {
		return fmt.Errorf("at least one device binding is required")
	}
	seen := make(map[string]bool, len(cfg.Devices))
	for _, d := range cfg.Devices {
		if d.Alias == "" {
			return fmt.Errorf("device binding missing alias")
		}
		if seen[d.Alias] {
			return fmt.Errorf("duplicate device alias %q", d.Alias)
		}
		seen[d.Alias] = true
		if _, err := phfs.ParseProtocol(d.Protocol); err != nil {
			return fmt.Errorf("device %q: invalid protocol %q", d.Alias, d.Protocol)
		}
	}
	for _, m := range cfg.Maps {
		if m.Name == "" {
			return fmt.Errorf("map entry missing name")
		}
		if m.End <= m.Start {
			return fmt.Errorf("map %q: end %#x must be greater than start %#x", m.Name, m.End, m.Start)
		}
	}
	return nil
}

// Apply registers every device binding, file entry, and memory map in
// cfg against fs and addMap, in document order. It stops at the first
// failure, mirroring the original's fail-fast boot-menu application.
func Apply(cfg *Config, fs *phfs.FS, addMap func(name string, start, end uint64, attr string) error) error {
	for _, d := range cfg.Devices {
		proto, err := phfs.ParseProtocol(d.Protocol)
		if err != nil {
			return err
		}
		if err := fs.RegDev(d.Alias, d.Major, d.Minor, proto); err != nil {
			return fmt.Errorf("bootcfg: regDev(%q): %w", d.Alias, err)
		}
	}
	for _, f := range cfg.Files {
		if err := fs.RegFile(f.Alias, f.Addr, f.Size); err != nil {
			return fmt.Errorf("bootcfg: regFile(%q): %w", f.Alias, err)
		}
	}
	for _, m := range cfg.Maps {
		if err := addMap(m.Name, m.Start, m.End, m.Attr); err != nil {
			return fmt.Errorf("bootcfg: addMap(%q): %w", m.Name, err)
		}
	}
	return nil
}
