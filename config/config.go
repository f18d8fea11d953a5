// Package config loads the tool configuration: classifier seed toggles,
// resolver extensions, and the policy override documents layered over
// generated output. Configuration lives in .modfence.yaml at the workspace
// root; a missing file selects the defaults.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	"github.com/modfence/modfence/inspector"
	"github.com/modfence/modfence/resolver"
)

// Filename is the configuration file consulted at the workspace root.
const Filename = ".modfence.yaml"

// Resolver configures specifier resolution.
type Resolver struct {
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
}

// Policy configures document generation: whether the workspace's own
// package keeps a resource entry, and which override documents merge after
// the generated one, in declared order.
type Policy struct {
	IncludeRoot bool     `yaml:"includeRoot" json:"includeRoot"`
	Overrides   []string `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// Config is the tool configuration.
type Config struct {
	Globals  *inspector.Config `yaml:"globals" json:"globals"`
	Resolver Resolver          `yaml:"resolver" json:"resolver"`
	Policy   Policy            `yaml:"policy" json:"policy"`
}

// Default returns the configuration used when no file overrides it: every
// classifier seed group enabled, the standard global-object aliases, and
// the default resolver extension chain.
func Default() *Config {
	return &Config{
		Globals: inspector.DefaultConfig(),
		Resolver: Resolver{
			Extensions: append([]string(nil), resolver.DefaultExtensions...),
		},
	}
}

// Load reads the configuration from the workspace root. Values present in
// the file override their defaults field by field; absent keys keep them,
// so a file setting one toggle does not disturb the rest.
func Load(ctx context.Context, fs afs.Service, root string) (*Config, error) {
	config := Default()
	location := url.Join(root, Filename)
	if ok, _ := fs.Exists(ctx, location); !ok {
		return config, nil
	}
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %v: %w", location, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", location, err)
	}
	return config, nil
}

// OverrideLocations resolves the configured policy overrides against the
// workspace root. Entries carrying a scheme or absolute path stay as
// declared.
func (c *Config) OverrideLocations(root string) []string {
	var locations []string
	for _, override := range c.Policy.Overrides {
		if strings.Contains(override, "://") || strings.HasPrefix(override, "/") {
			locations = append(locations, override)
			continue
		}
		locations = append(locations, url.Join(root, override))
	}
	return locations
}
