// Package config loads and validates the resolver configuration.
//
// Configuration lives in a stratum-config.yml next to the inventory (or
// anywhere, when loaded explicitly). Option names follow the conventions
// of classic external node classifiers so existing inventories carry
// over.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/strataconf/stratum/pkg/hierarchy"
)

// DefaultFileName is looked up inside the inventory base directory.
const DefaultFileName = "stratum-config.yml"

// Defaults applied when an option is absent.
const (
	DefaultNodesURI    = "nodes"
	DefaultClassesURI  = "classes"
	DefaultEnvironment = "base"
)

// CompatLiteralDots keeps literal dots in a filename segment as
// composition separators when node-name composition is active. The flag
// reproduces a legacy naming scheme and is off by default.
const CompatLiteralDots = "compose-node-name-literal-dots"

// Config is the resolved option record consumed by the resolution core.
// Treat a Config as an immutable value for the duration of one
// resolution run; mutating it requires re-running discovery.
type Config struct {
	// InventoryBase anchors relative node and class roots.
	InventoryBase string `mapstructure:"inventory_base_uri"`
	// NodesURI and ClassesURI are the discovery roots.
	NodesURI   string `mapstructure:"nodes_uri"`
	ClassesURI string `mapstructure:"classes_uri"`
	// Environment is assigned to nodes that do not declare their own.
	Environment string `mapstructure:"environment"`

	IgnoreClassNotFound       bool     `mapstructure:"ignore_class_notfound"`
	IgnoreClassNotFoundRegexp []string `mapstructure:"ignore_class_notfound_regexp"`

	ComposeNodeName   bool `mapstructure:"compose_node_name"`
	AllowNoneOverride bool `mapstructure:"allow_none_override"`

	ClassMappings          []string `mapstructure:"class_mappings"`
	ClassMappingsMatchPath bool     `mapstructure:"class_mappings_match_path"`

	CompatibilityFlags []string `mapstructure:"compatibility_flags"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		NodesURI:    DefaultNodesURI,
		ClassesURI:  DefaultClassesURI,
		Environment: DefaultEnvironment,
	}
}

// Load reads a configuration file. Missing options keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FromInventory loads DefaultFileName from the inventory base directory,
// falling back to defaults when the file does not exist. The returned
// config always carries base as its InventoryBase.
func FromInventory(base string) (*Config, error) {
	cfg, err := Load(filepath.Join(base, DefaultFileName))
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}
	cfg.InventoryBase = base
	return cfg, nil
}

// Parse decodes configuration YAML. Unknown options are logged and
// ignored so configs written for newer versions still load.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cfg := Default()
	if raw == nil {
		return cfg, nil
	}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		Metadata:         &md,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	for _, k := range md.Unused {
		slog.Warn("ignoring unknown config option", "option", k)
	}
	return cfg, nil
}

// HasCompatFlag reports whether the named compatibility flag is active.
func (c *Config) HasCompatFlag(name string) bool {
	for _, f := range c.CompatibilityFlags {
		if f == name {
			return true
		}
	}
	return false
}

// SetCompatFlag activates a compatibility flag. Any resolution state
// derived from the previous configuration is stale afterwards.
func (c *Config) SetCompatFlag(name string) {
	if !c.HasCompatFlag(name) {
		c.CompatibilityFlags = append(c.CompatibilityFlags, name)
	}
}

// UnsetCompatFlag deactivates a compatibility flag.
func (c *Config) UnsetCompatFlag(name string) {
	for i, f := range c.CompatibilityFlags {
		if f == name {
			c.CompatibilityFlags = append(c.CompatibilityFlags[:i], c.CompatibilityFlags[i+1:]...)
			return
		}
	}
}

// UsesRedisSource reports whether the discovery roots live in a Redis
// database rather than on the filesystem. Nodes and classes then share
// one database under distinct key prefixes.
func (c *Config) UsesRedisSource() bool {
	return strings.HasPrefix(c.NodesURI, "redis://")
}

// NodesRoot returns the absolute discovery root for nodes.
func (c *Config) NodesRoot() string { return c.root(c.NodesURI) }

// ClassesRoot returns the absolute discovery root for classes.
func (c *Config) ClassesRoot() string { return c.root(c.ClassesURI) }

func (c *Config) root(uri string) string {
	uri = strings.TrimPrefix(uri, "yaml_fs://")
	if filepath.IsAbs(uri) || c.InventoryBase == "" {
		return filepath.Clean(uri)
	}
	return filepath.Join(c.InventoryBase, uri)
}

// IgnorePatterns compiles the ignore_class_notfound_regexp entries.
func (c *Config) IgnorePatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.IgnoreClassNotFoundRegexp))
	for _, p := range c.IgnoreClassNotFoundRegexp {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("ignore_class_notfound_regexp %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// MappingRules compiles the class_mappings entries in declaration order.
func (c *Config) MappingRules() (hierarchy.RuleSet, error) {
	return hierarchy.ParseRules(c.ClassMappings)
}

// Validate checks the configuration for problems that would only surface
// mid-resolution otherwise: uncompilable patterns and overlapping
// discovery roots.
func (c *Config) Validate() error {
	if _, err := c.IgnorePatterns(); err != nil {
		return err
	}
	if _, err := c.MappingRules(); err != nil {
		return err
	}

	if c.UsesRedisSource() {
		return nil
	}
	nodes, classes := c.NodesRoot(), c.ClassesRoot()
	if nodes == classes || within(nodes, classes) || within(classes, nodes) {
		return fmt.Errorf("nodes_uri %q and classes_uri %q must not overlap", nodes, classes)
	}
	return nil
}

// within reports whether path a sits inside directory b.
func within(a, b string) bool {
	rel, err := filepath.Rel(b, a)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
