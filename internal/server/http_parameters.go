package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khanhct/trove/internal/events"
	"github.com/khanhct/trove/internal/model"
)

// resolveVersionFromPath maps the {datastore}/{version} path segments to a
// datastore version record, writing a 404 on unknown pairs.
func (s *ConfigServer) resolveVersionFromPath(w http.ResponseWriter, r *http.Request) (*model.DatastoreVersion, bool) {
	version, err := s.registry.ResolveVersion(r.Context(), r.PathValue("datastore"), r.PathValue("version"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "datastore version not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve datastore version")
		return nil, false
	}
	return version, true
}

// handleListParameters handles
// GET /v1/datastores/{datastore}/versions/{version}/parameters.
func (s *ConfigServer) handleListParameters(w http.ResponseWriter, r *http.Request) {
	version, ok := s.resolveVersionFromPath(w, r)
	if !ok {
		return
	}

	params, err := s.registry.ListParameters(r.Context(), version.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list parameters")
		return
	}
	if params == nil {
		params = []*model.ConfigurationParameter{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration-parameters": params})
}

// handleGetParameter handles
// GET /v1/datastores/{datastore}/versions/{version}/parameters/{name}.
// Soft-deleted parameters are indistinguishable from ones that never existed.
func (s *ConfigServer) handleGetParameter(w http.ResponseWriter, r *http.Request) {
	version, ok := s.resolveVersionFromPath(w, r)
	if !ok {
		return
	}

	param, err := s.registry.GetParameter(r.Context(), version.ID, r.PathValue("name"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "parameter not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get parameter")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration-parameter": param})
}

// handleCreateParameter handles
// POST /v1/mgmt/datastore-versions/{version_id}/parameters. Re-adding a
// previously deleted parameter revives it.
func (s *ConfigServer) handleCreateParameter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Parameter struct {
			Name            string         `json:"name"`
			Type            model.DataType `json:"type"`
			Min             *int64         `json:"min"`
			Max             *int64         `json:"max"`
			RestartRequired bool           `json:"restart_required"`
		} `json:"configuration-parameter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	param := &model.ConfigurationParameter{
		Name:               body.Parameter.Name,
		DatastoreVersionID: r.PathValue("version_id"),
		Type:               body.Parameter.Type,
		Min:                body.Parameter.Min,
		Max:                body.Parameter.Max,
		RestartRequired:    body.Parameter.RestartRequired,
	}

	if err := s.registry.AddParameter(r.Context(), param); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "datastore version not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.publish(r.Context(), events.TopicParameterCreated, events.ParameterCreated{Parameter: param})

	writeJSON(w, http.StatusOK, map[string]any{"configuration-parameter": param})
}

// handleDeleteParameter handles
// DELETE /v1/mgmt/datastore-versions/{version_id}/parameters/{name}.
func (s *ConfigServer) handleDeleteParameter(w http.ResponseWriter, r *http.Request) {
	versionID := r.PathValue("version_id")
	name := r.PathValue("name")

	if err := s.registry.DeleteParameter(r.Context(), versionID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "parameter not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete parameter")
		return
	}

	s.publish(r.Context(), events.TopicParameterDeleted, events.ParameterDeleted{
		DatastoreVersionID: versionID,
		Name:               name,
	})

	w.WriteHeader(http.StatusNoContent)
}
