package server

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// handleCreateInstance handles POST /v1/instances.
func (s *ConfigServer) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Instance createInstanceInput `json:"instance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	inst, err := s.createInstance(r.Context(), tenantFrom(r), body.Instance)
	if err != nil {
		respondConfigError(w, err, "configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"instance": inst})
}

// handleGetInstance handles GET /v1/instances/{id}.
func (s *ConfigServer) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.getInstance(r.Context(), tenantFrom(r), r.PathValue("id"))
	if err != nil {
		respondConfigError(w, err, "instance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"instance": inst})
}

// updateInstanceBody is the PUT/PATCH /v1/instances/{id} request shape.
// Configuration is kept raw so "attach to X", "detach" (empty string or
// null), and "field absent" stay distinguishable.
type updateInstanceBody struct {
	Instance struct {
		Name                *string         `json:"name"`
		Configuration       json.RawMessage `json:"configuration"`
		RemoveConfiguration bool            `json:"remove_configuration"`
	} `json:"instance"`
}

// detachRequested reports whether the body asks for a detach: an explicit
// remove_configuration flag, a null configuration, or an empty-string one.
// All three are the same operation.
func (b *updateInstanceBody) detachRequested() bool {
	if b.Instance.RemoveConfiguration {
		return true
	}
	raw := bytes.TrimSpace(b.Instance.Configuration)
	return bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`))
}

// handleUpdateInstance handles PUT and PATCH /v1/instances/{id}, which carry
// configuration attach and detach requests.
func (s *ConfigServer) handleUpdateInstance(w http.ResponseWriter, r *http.Request) {
	var body updateInstanceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tenant := tenantFrom(r)
	id := r.PathValue("id")

	if body.Instance.Name != nil {
		if _, err := s.renameInstance(r.Context(), tenant, id, *body.Instance.Name); err != nil {
			respondConfigError(w, err, "instance")
			return
		}
	}

	if body.detachRequested() {
		if _, err := s.detachConfiguration(r.Context(), tenant, id); err != nil {
			respondConfigError(w, err, "instance")
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var configurationID string
	if len(body.Instance.Configuration) > 0 {
		if err := json.Unmarshal(body.Instance.Configuration, &configurationID); err != nil {
			writeError(w, http.StatusBadRequest, "configuration must be a string id")
			return
		}
	}
	if configurationID == "" {
		if body.Instance.Name != nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if _, err := s.attachConfiguration(r.Context(), tenant, id, configurationID); err != nil {
		respondConfigError(w, err, "instance or configuration")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleDeleteInstance handles DELETE /v1/instances/{id}.
func (s *ConfigServer) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteInstance(r.Context(), tenantFrom(r), r.PathValue("id")); err != nil {
		respondConfigError(w, err, "instance")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleRestartInstance handles POST /v1/instances/{id}/restart.
func (s *ConfigServer) handleRestartInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.restartInstance(r.Context(), tenantFrom(r), r.PathValue("id")); err != nil {
		respondConfigError(w, err, "instance")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
