package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/experiment"
)

// Session keys.
const (
	configKey           = "config"
	experimentConfigKey = "exp_config"
)

// experimentConfig is the sweep being prepared on the experiments page.
type experimentConfig struct {
	Config *config.Config `json:"config"`
	Key    string         `json:"key"`
	Values string         `json:"values"`
}

func defaultExperimentConfig() *experimentConfig {
	return &experimentConfig{
		Config: config.New(),
		Key:    experiment.DefaultKey,
		Values: experiment.DefaultValues,
	}
}

func (s *Server) loadConfig(ctx context.Context) *config.Config {
	c := config.New()

	data := s.sessions.GetBytes(ctx, configKey)
	if len(data) == 0 {
		return c
	}

	if err := json.Unmarshal(data, c); err != nil {
		slog.Warn("dropping unreadable session config", "error", err)
		return config.New()
	}

	return c
}

func (s *Server) saveConfig(ctx context.Context, c *config.Config) {
	data, err := json.Marshal(c)
	dieOnErr(err)

	s.sessions.Put(ctx, configKey, data)
}

func (s *Server) loadExperimentConfig(ctx context.Context) *experimentConfig {
	data := s.sessions.GetBytes(ctx, experimentConfigKey)
	if len(data) == 0 {
		return defaultExperimentConfig()
	}

	ec := defaultExperimentConfig()
	if err := json.Unmarshal(data, ec); err != nil {
		slog.Warn("dropping unreadable session experiment", "error", err)
		return defaultExperimentConfig()
	}

	return ec
}

func (s *Server) saveExperimentConfig(ctx context.Context, ec *experimentConfig) {
	data, err := json.Marshal(ec)
	dieOnErr(err)

	s.sessions.Put(ctx, experimentConfigKey, data)
}

// applyAll sets several values. The network goes first so that a CPU count
// given with it sizes the mesh, and the rest follow the parameter table, so
// that explicit mesh rows win over the ones derived from the CPU count.
// Nothing is changed when a key is unknown.
func applyAll(c *config.Config, values map[string]any) error {
	for k := range values {
		if _, ok := config.Lookup(k); !ok {
			return fmt.Errorf("%w: %s", config.ErrUnknownKey, k)
		}
	}

	if v, ok := values["network"]; ok {
		if err := c.Apply("network", v); err != nil {
			return err
		}
	}

	for _, p := range config.Params() {
		v, ok := values[p.Key]
		if !ok || p.Key == "network" {
			continue
		}

		if err := c.Apply(p.Key, v); err != nil {
			return err
		}
	}

	return nil
}
