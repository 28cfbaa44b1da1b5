package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sarchlab/garnetvis/config"
)

type configResponse struct {
	Config *config.Config `json:"config"`
	Check  config.Check   `json:"check"`
}

type commandResponse struct {
	Argv    []string     `json:"argv"`
	Command string       `json:"command"`
	Check   config.Check `json:"check"`
}

func (s *Server) writeConfig(w http.ResponseWriter, c *config.Config) {
	writeJSON(w, http.StatusOK, configResponse{Config: c, Check: c.Validate()})
}

func (s *Server) listParams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, config.Params())
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	s.writeConfig(w, s.loadConfig(r.Context()))
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	values := map[string]any{}
	if err := readJSON(r, &values); err != nil {
		writeError(w, err)
		return
	}

	c := s.loadConfig(r.Context()).Clone()
	if err := applyAll(c, values); err != nil {
		writeError(w, err)
		return
	}

	s.saveConfig(r.Context(), c)
	s.writeConfig(w, c)
}

func (s *Server) resetConfig(w http.ResponseWriter, r *http.Request) {
	c := config.New()
	s.saveConfig(r.Context(), c)
	s.writeConfig(w, c)
}

func (s *Server) setCPUs(w http.ResponseWriter, r *http.Request) {
	req := struct {
		NumCPUs int `json:"num_cpus"`
	}{}

	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := s.loadConfig(r.Context())
	if err := c.SetCPUs(req.NumCPUs); err != nil {
		writeError(w, err)
		return
	}

	s.saveConfig(r.Context(), c)
	s.writeConfig(w, c)
}

func (s *Server) setNetwork(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Network string `json:"network"`
	}{}

	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := s.loadConfig(r.Context())
	if err := c.SetNetwork(req.Network); err != nil {
		writeError(w, err)
		return
	}

	s.saveConfig(r.Context(), c)
	s.writeConfig(w, c)
}

func (s *Server) getCommand(w http.ResponseWriter, r *http.Request) {
	c := s.loadConfig(r.Context())
	argv := s.Runner.CommandBuilder().Build(c)

	writeJSON(w, http.StatusOK, commandResponse{
		Argv:    argv,
		Command: config.CommandString(argv),
		Check:   c.Validate(),
	})
}

func (s *Server) listPresets(w http.ResponseWriter, _ *http.Request) {
	names, err := s.presets.List()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, names)
}

func (s *Server) savePreset(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Name string `json:"name"`
	}{}

	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.presets.Save(req.Name, s.loadConfig(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (s *Server) loadPreset(w http.ResponseWriter, r *http.Request) {
	c, err := s.presets.Load(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}

	s.saveConfig(r.Context(), c)
	s.writeConfig(w, c)
}

func (s *Server) listTopologies(w http.ResponseWriter, _ *http.Request) {
	names, err := s.topologies.List()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, names)
}

func (s *Server) uploadTopology(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, badRequest("reading upload: %v", err))
		return
	}
	defer file.Close()

	name, err := s.topologies.Save(header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}
