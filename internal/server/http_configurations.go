package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khanhct/trove/internal/model"
)

// respondConfigError maps business-logic errors to HTTP statuses: inputError
// to 400, missing rows to 404, rejected values to 422.
func respondConfigError(w http.ResponseWriter, err error, resource string) {
	var ie inputError
	if errors.As(err, &ie) {
		writeError(w, http.StatusBadRequest, ie.Error())
		return
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeValidationError(w, ve)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, resource+" not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// handleCreateConfiguration handles POST /v1/configurations.
func (s *ConfigServer) handleCreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Configuration createConfigurationInput `json:"configuration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	group, err := s.createConfiguration(r.Context(), tenantFrom(r), body.Configuration)
	if err != nil {
		respondConfigError(w, err, "configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration": group})
}

// handleListConfigurations handles GET /v1/configurations.
func (s *ConfigServer) handleListConfigurations(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListConfigurations(r.Context(), tenantFrom(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list configurations")
		return
	}

	// Ensure configurations is never null in JSON output.
	if groups == nil {
		groups = []*model.ConfigurationGroup{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"configurations": groups})
}

// handleGetConfiguration handles GET /v1/configurations/{id}.
func (s *ConfigServer) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	group, err := s.store.GetConfiguration(r.Context(), tenantFrom(r), r.PathValue("id"))
	if err != nil {
		respondConfigError(w, err, "configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration": group})
}

// configurationPatchBody is the shared body shape for PUT (edit) and PATCH
// (update): values plus optional name and description changes.
type configurationPatchBody struct {
	Configuration struct {
		Name        *string         `json:"name"`
		Description *string         `json:"description"`
		Values      json.RawMessage `json:"values"`
	} `json:"configuration"`
}

// handleEditConfiguration handles PUT /v1/configurations/{id}.
// Edit replaces the value set wholesale: keys absent from the request are
// removed from the group.
func (s *ConfigServer) handleEditConfiguration(w http.ResponseWriter, r *http.Request) {
	var body configurationPatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	values, err := model.ParseValues(body.Configuration.Values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	group, err := s.mutateConfiguration(r.Context(), tenantFrom(r), r.PathValue("id"),
		body.Configuration.Name, body.Configuration.Description,
		func(_ map[string]any) map[string]any { return values })
	if err != nil {
		respondConfigError(w, err, "configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration": group})
}

// handleUpdateConfiguration handles PATCH /v1/configurations/{id}.
// Update merges the submitted values over the existing set; untouched keys
// survive.
func (s *ConfigServer) handleUpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	var body configurationPatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	patch, err := model.ParseValues(body.Configuration.Values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	group, err := s.mutateConfiguration(r.Context(), tenantFrom(r), r.PathValue("id"),
		body.Configuration.Name, body.Configuration.Description,
		func(old map[string]any) map[string]any { return model.MergeValues(old, patch) })
	if err != nil {
		respondConfigError(w, err, "configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configuration": group})
}

// handleDeleteConfiguration handles DELETE /v1/configurations/{id}.
func (s *ConfigServer) handleDeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteConfiguration(r.Context(), tenantFrom(r), r.PathValue("id")); err != nil {
		respondConfigError(w, err, "configuration")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleConfigurationInstances handles GET /v1/configurations/{id}/instances.
func (s *ConfigServer) handleConfigurationInstances(w http.ResponseWriter, r *http.Request) {
	// Scope check first so foreign groups 404 without leaking attachments.
	group, err := s.store.GetConfiguration(r.Context(), tenantFrom(r), r.PathValue("id"))
	if err != nil {
		respondConfigError(w, err, "configuration")
		return
	}

	instances, err := s.store.ListAttachedInstances(r.Context(), group.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list attached instances")
		return
	}
	if instances == nil {
		instances = []*model.InstanceSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"instances": instances})
}
