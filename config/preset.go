package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrBadPresetName is returned for preset names that cannot be file names.
var ErrBadPresetName = errors.New("preset names may only use letters, digits, '-' and '_'")

var presetNameRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const presetExt = ".yaml"

// MarshalYAML writes the values in parameter-table order.
func (c *Config) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, p := range params {
		v, ok := c.values[p.Key]
		if !ok {
			continue
		}

		key := &yaml.Node{Kind: yaml.ScalarNode, Value: p.Key}
		val := &yaml.Node{}

		if err := val.Encode(v); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", p.Key, err)
		}

		node.Content = append(node.Content, key, val)
	}

	return node, nil
}

// UnmarshalYAML starts from the defaults and applies the mapping.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]any
	if err := value.Decode(&m); err != nil {
		return err
	}

	*c = *New()

	return c.SetAll(m)
}

// PresetStore saves named configurations as YAML files.
type PresetStore struct {
	Dir string
}

func (s PresetStore) path(name string) (string, error) {
	if !presetNameRegexp.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrBadPresetName, name)
	}

	return filepath.Join(s.Dir, name+presetExt), nil
}

// Save writes a preset, replacing any preset with the same name.
func (s PresetStore) Save(name string, c *Config) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating preset dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding preset %s: %w", name, err)
	}

	return os.WriteFile(p, data, 0o644)
}

// Load reads a preset.
func (s PresetStore) Load(name string) (*Config, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}

	c := New()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding preset %s: %w", name, err)
	}

	return c, nil
}

// List returns the names of all saved presets.
func (s PresetStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}

	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), presetExt) {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), presetExt))
	}

	sort.Strings(names)

	return names, nil
}
