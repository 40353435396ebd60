package server

import (
	"encoding/json"
	"net/http"

	"github.com/khanhct/trove/internal/model"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *ConfigServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/configurations", s.handleCreateConfiguration)
	mux.HandleFunc("GET /v1/configurations", s.handleListConfigurations)
	mux.HandleFunc("GET /v1/configurations/{id}", s.handleGetConfiguration)
	mux.HandleFunc("PUT /v1/configurations/{id}", s.handleEditConfiguration)
	mux.HandleFunc("PATCH /v1/configurations/{id}", s.handleUpdateConfiguration)
	mux.HandleFunc("DELETE /v1/configurations/{id}", s.handleDeleteConfiguration)
	mux.HandleFunc("GET /v1/configurations/{id}/instances", s.handleConfigurationInstances)
	mux.HandleFunc("POST /v1/instances", s.handleCreateInstance)
	mux.HandleFunc("GET /v1/instances/{id}", s.handleGetInstance)
	mux.HandleFunc("PUT /v1/instances/{id}", s.handleUpdateInstance)
	mux.HandleFunc("PATCH /v1/instances/{id}", s.handleUpdateInstance)
	mux.HandleFunc("DELETE /v1/instances/{id}", s.handleDeleteInstance)
	mux.HandleFunc("POST /v1/instances/{id}/restart", s.handleRestartInstance)
	mux.HandleFunc("GET /v1/datastores/{datastore}/versions/{version}/parameters", s.handleListParameters)
	mux.HandleFunc("GET /v1/datastores/{datastore}/versions/{version}/parameters/{name}", s.handleGetParameter)
	mux.HandleFunc("POST /v1/mgmt/datastore-versions/{version_id}/parameters", s.handleCreateParameter)
	mux.HandleFunc("DELETE /v1/mgmt/datastore-versions/{version_id}/parameters/{name}", s.handleDeleteParameter)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(authToken, RequestIDMiddleware(mux))
}

// handleHealth handles GET /v1/health.
func (s *ConfigServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tenantFrom extracts the calling tenant. Requests without a tenant header
// land in the default tenant, which keeps single-tenant deployments simple.
func tenantFrom(r *http.Request) string {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t
	}
	return "default"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeValidationError writes a 422 with per-parameter failure detail.
func writeValidationError(w http.ResponseWriter, ve *model.ValidationError) {
	type fieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	fields := make([]fieldError, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		fields = append(fields, fieldError{Field: fe.Field, Message: fe.Message})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  ve.Error(),
		"errors": fields,
	})
}
