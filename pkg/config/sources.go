// Package config loads the layered, read-only configuration consulted by the
// placeholder resolver and the orchestrator: an environment file of
// KEY=VALUE lines, a per-project constants table, and a role-resolution
// table mapping role names to URL templates.
//
// Sources is an explicit immutable value threaded by reference at run start;
// there is no process-wide mutable configuration state.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Role maps a role name to a URL template.
type Role struct {
	URL                 string `yaml:"url"`
	EnsureTrailingSlash bool   `yaml:"ensure-trailing-slash"`
}

// Sources is the layered configuration for one run.
type Sources struct {
	// Env holds KEY=VALUE bindings from the environment file.
	Env map[string]string
	// Constants holds the per-project source constants.
	Constants map[string]string
	// Roles holds the role-resolution table.
	Roles map[string]Role
}

// Empty returns a Sources with no bindings.
func Empty() *Sources {
	return &Sources{
		Env:       map[string]string{},
		Constants: map[string]string{},
		Roles:     map[string]Role{},
	}
}

// Load reads the given source files. Any path may be empty to skip that
// layer; a named file that cannot be read or parsed is an error.
func Load(envFile, constantsFile, rolesFile string) (*Sources, error) {
	s := Empty()

	if envFile != "" {
		f, err := ini.Load(envFile)
		if err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
		for _, key := range f.Section("").Keys() {
			s.Env[key.Name()] = key.Value()
		}
	}

	if constantsFile != "" {
		data, err := os.ReadFile(constantsFile)
		if err != nil {
			return nil, fmt.Errorf("loading constants file %s: %w", constantsFile, err)
		}
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing constants file %s: %w", constantsFile, err)
		}
		flatten("", raw, s.Constants)
	}

	if rolesFile != "" {
		data, err := os.ReadFile(rolesFile)
		if err != nil {
			return nil, fmt.Errorf("loading roles file %s: %w", rolesFile, err)
		}
		if err := yaml.Unmarshal(data, &s.Roles); err != nil {
			return nil, fmt.Errorf("parsing roles file %s: %w", rolesFile, err)
		}
	}

	return s, nil
}

// flatten turns nested TOML tables into dotted flat keys, since the
// constants table is consumed as a flat string map.
func flatten(prefix string, raw map[string]any, out map[string]string) {
	for k, v := range raw {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprintf("%v", val)
		}
	}
}
