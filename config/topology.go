package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrBadTopologyName is returned for uploads that are not Python scripts.
var ErrBadTopologyName = errors.New("topology file must be a .py file")

// IsCustomTopology tells if a topology names a user-provided script.
func IsCustomTopology(name string) bool {
	return strings.HasSuffix(name, ".py")
}

// TopologyStore keeps user-provided topology scripts in a directory.
type TopologyStore struct {
	Dir string
}

// List returns the built-in topologies followed by the custom scripts. The
// directory is created if it does not exist.
func (s TopologyStore) List() ([]string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating topology dir: %w", err)
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading topology dir: %w", err)
	}

	custom := []string{}
	for _, e := range entries {
		if !e.IsDir() && IsCustomTopology(e.Name()) {
			custom = append(custom, e.Name())
		}
	}

	sort.Strings(custom)

	return append([]string{TopologyCrossbar, TopologyMeshXY}, custom...), nil
}

// Save stores an uploaded script and returns the name it is stored under.
// Only the base name of the upload is kept.
func (s TopologyStore) Save(name string, r io.Reader) (string, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if !IsCustomTopology(name) || name == ".py" {
		return "", fmt.Errorf("%w: %q", ErrBadTopologyName, name)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating topology dir: %w", err)
	}

	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("writing topology %s: %w", name, err)
	}

	return name, f.Close()
}
