package config

import (
	"path"
	"strings"
)

// DefaultOutDir is the directory gem5 writes its results to when no output
// directory is given.
const DefaultOutDir = "m5out"

// DefaultTopologyDir holds user-provided topology scripts.
const DefaultTopologyDir = "custom_topologies"

// garnetRequired are always passed with Garnet, because the synthetic traffic
// script cannot size the mesh without them.
var garnetRequired = map[string]bool{
	"num_cpus":  true,
	"num_dirs":  true,
	"mesh_rows": true,
}

// A CommandBuilder turns a Config into the argument vector of a gem5 run.
type CommandBuilder struct {
	outDir      string
	topologyDir string
}

// MakeCommandBuilder creates a CommandBuilder with the default directories.
func MakeCommandBuilder() CommandBuilder {
	return CommandBuilder{
		outDir:      DefaultOutDir,
		topologyDir: DefaultTopologyDir,
	}
}

// WithOutDir sets the gem5 output directory.
func (b CommandBuilder) WithOutDir(dir string) CommandBuilder {
	b.outDir = dir
	return b
}

// WithTopologyDir sets the directory that custom topologies are read from.
func (b CommandBuilder) WithTopologyDir(dir string) CommandBuilder {
	b.topologyDir = dir
	return b
}

// OutDir returns the gem5 output directory.
func (b CommandBuilder) OutDir() string {
	if b.outDir == "" {
		return DefaultOutDir
	}

	return b.outDir
}

// TopologyDir returns the directory of custom topologies.
func (b CommandBuilder) TopologyDir() string {
	if b.topologyDir == "" {
		return DefaultTopologyDir
	}

	return b.topologyDir
}

// Build returns the argument vector. Only values that differ from the
// defaults are passed, so the command stays close to what a user would type.
func (b CommandBuilder) Build(c *Config) []string {
	argv := []string{c.GetString(KeyGem5Path)}

	if b.OutDir() != DefaultOutDir {
		argv = append(argv, "--outdir="+b.OutDir())
	}

	argv = append(argv, c.GetString(KeyScriptPath))

	garnet := c.IsGarnet()

	for _, p := range params {
		if p.Key == KeyGem5Path || p.Key == KeyScriptPath {
			continue
		}

		value := c.values[p.Key]

		if p.Key == "num_dirs" && value == c.values["num_cpus"] && !garnet {
			continue
		}

		if value == p.Default && !(garnet && garnetRequired[p.Key]) {
			continue
		}

		argv = append(argv, b.flags(p, value)...)
	}

	return argv
}

func (b CommandBuilder) flags(p Param, value any) []string {
	flag := p.Flag()

	switch v := value.(type) {
	case bool:
		if v {
			return []string{flag}
		}

		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}

		if p.Key == "param" {
			return paramFlags(flag, v)
		}

		if p.Key == "topology" && IsCustomTopology(v) {
			return []string{flag + "=" + path.Join(b.TopologyDir(), v)}
		}

		return []string{flag + "=" + v}
	default:
		return []string{flag + "=" + FormatValue(v)}
	}
}

// paramFlags passes every non-empty line of the SimObject parameter box as
// its own --param flag.
func paramFlags(flag, text string) []string {
	var out []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		out = append(out, flag+"="+line)
	}

	return out
}

// Command returns the argument vector with the default directories.
func Command(c *Config) []string {
	return MakeCommandBuilder().Build(c)
}

// CommandString renders an argument vector for display, quoting arguments
// the way a POSIX shell needs them.
func CommandString(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}

	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	safe := true
	for _, r := range s {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}

	if safe {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}

	return strings.ContainsRune("-_./=:,+@%", r)
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
