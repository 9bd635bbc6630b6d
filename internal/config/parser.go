package config

import (
	"fmt"
	"strings"

	"github.com/rbright/lrpmprobe/internal/ipc"
	"gopkg.in/ini.v1"
)

const (
	sectionProbe = "probe"
	sectionLog   = "log"
)

var knownKeys = map[string]map[string]struct{}{
	sectionProbe: {
		"network":     {},
		"address":     {},
		"socket":      {},
		"command":     {},
		"iterations":  {},
		"buffer_size": {},
		"timeout":     {},
	},
	sectionLog: {
		"level": {},
	},
}

// Parse maps INI configuration content on top of base.
//
// Only syntax and type errors fail here. Unknown sections and keys are
// reported as warnings; range checks are left to Validate so CLI overrides
// can still replace a bad file value.
func Parse(content string, base Config) (Config, []Warning, error) {
	file, err := ini.LoadSources(ini.LoadOptions{}, []byte(content))
	if err != nil {
		return Config{}, nil, fmt.Errorf("parse ini: %w", err)
	}

	cfg := base
	warnings := unknownKeyWarnings(file)

	if err := applyProbe(file.Section(sectionProbe), &cfg.Probe); err != nil {
		return Config{}, nil, err
	}
	if logSection := file.Section(sectionLog); logSection.HasKey("level") {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(logSection.Key("level").String()))
	}
	return cfg, warnings, nil
}

func applyProbe(section *ini.Section, probe *ProbeConfig) error {
	if section.HasKey("socket") {
		probe.Network = ipc.NetworkUnix
		probe.Address = strings.TrimSpace(section.Key("socket").String())
	}
	if section.HasKey("network") {
		probe.Network = strings.ToLower(strings.TrimSpace(section.Key("network").String()))
	}
	if section.HasKey("address") {
		probe.Address = strings.TrimSpace(section.Key("address").String())
	}
	if section.HasKey("command") {
		probe.Command = section.Key("command").String()
	}
	if section.HasKey("iterations") {
		n, err := section.Key("iterations").Int()
		if err != nil {
			return fmt.Errorf("probe.iterations: %w", err)
		}
		probe.Iterations = n
	}
	if section.HasKey("buffer_size") {
		n, err := section.Key("buffer_size").Int()
		if err != nil {
			return fmt.Errorf("probe.buffer_size: %w", err)
		}
		probe.BufferSize = n
	}
	if section.HasKey("timeout") {
		d, err := section.Key("timeout").Duration()
		if err != nil {
			return fmt.Errorf("probe.timeout: %w", err)
		}
		probe.Timeout = d
	}
	return nil
}

func unknownKeyWarnings(file *ini.File) []Warning {
	warnings := make([]Warning, 0)
	for _, section := range file.Sections() {
		name := section.Name()
		keys, known := knownKeys[name]
		if !known {
			if name == ini.DefaultSection && len(section.Keys()) == 0 {
				continue
			}
			warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown section [%s] ignored", name)})
			continue
		}
		for _, key := range section.Keys() {
			if _, ok := keys[key.Name()]; !ok {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown key %s.%s ignored", name, key.Name())})
			}
		}
	}
	return warnings
}
