package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// testHandler captures the incoming request details and returns a canned
// response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	body        string
	contentType string
	authz       string
	tenant      string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.contentType = r.Header.Get("Content-Type")
	h.authz = r.Header.Get("Authorization")
	h.tenant = r.Header.Get("X-Tenant-ID")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given
// handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, "secret", "acme")
	return c, srv
}

func TestHTTPClient_CreateConfiguration(t *testing.T) {
	h := &testHandler{
		responseBody: `{"configuration": {
			"id": "cfg-1",
			"name": "tuned",
			"description": "low latency",
			"datastore_name": "mysql",
			"datastore_version_name": "5.6",
			"values": {"connect_timeout": 60},
			"created": "2026-01-15T10:00:00",
			"updated": "2026-01-15T10:00:00"
		}}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	req := &CreateConfigurationRequest{
		Name:        "tuned",
		Description: "low latency",
		Datastore:   &Datastore{Type: "mysql", Version: "5.6"},
		Values:      json.RawMessage(`{"connect_timeout": 60}`),
	}
	group, err := c.CreateConfiguration(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.method != http.MethodPost || h.path != "/v1/configurations" {
		t.Fatalf("unexpected request: %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Fatalf("expected JSON content type, got %q", h.contentType)
	}
	if h.authz != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", h.authz)
	}
	if h.tenant != "acme" {
		t.Fatalf("expected tenant header, got %q", h.tenant)
	}
	if !strings.Contains(h.body, `"configuration"`) || !strings.Contains(h.body, `"connect_timeout"`) {
		t.Fatalf("unexpected request body: %s", h.body)
	}
	if group.ID != "cfg-1" || group.Name != "tuned" {
		t.Fatalf("unexpected group: %+v", group)
	}
	if group.Values["connect_timeout"] == nil {
		t.Fatal("expected values to round-trip")
	}
}

func TestHTTPClient_ListConfigurations(t *testing.T) {
	h := &testHandler{
		responseBody: `{"configurations": [
			{"id": "cfg-1", "name": "a"},
			{"id": "cfg-2", "name": "b"}
		]}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	groups, err := c.ListConfigurations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/configurations" {
		t.Fatalf("unexpected request: %s %s", h.method, h.path)
	}
	if len(groups) != 2 || groups[0].ID != "cfg-1" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}

func TestHTTPClient_PatchConfiguration(t *testing.T) {
	h := &testHandler{
		responseBody: `{"configuration": {"id": "cfg-1", "name": "renamed"}}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	name := "renamed"
	group, err := c.PatchConfiguration(context.Background(), "cfg-1", &PatchConfigurationRequest{
		Name:   &name,
		Values: json.RawMessage(`{"wait_timeout": 120}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.method != http.MethodPatch || h.path != "/v1/configurations/cfg-1" {
		t.Fatalf("unexpected request: %s %s", h.method, h.path)
	}
	if group.Name != "renamed" {
		t.Fatalf("unexpected group: %+v", group)
	}
}

func TestHTTPClient_AttachDetach(t *testing.T) {
	h := &testHandler{statusCode: http.StatusAccepted}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.AttachConfiguration(context.Background(), "inst-1", "cfg-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if h.method != http.MethodPut || h.path != "/v1/instances/inst-1" {
		t.Fatalf("unexpected request: %s %s", h.method, h.path)
	}
	if !strings.Contains(h.body, `"configuration":"cfg-1"`) {
		t.Fatalf("unexpected attach body: %s", h.body)
	}

	if err := c.DetachConfiguration(context.Background(), "inst-1"); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if !strings.Contains(h.body, `"remove_configuration":true`) {
		t.Fatalf("unexpected detach body: %s", h.body)
	}
}

func TestHTTPClient_RestartInstance(t *testing.T) {
	h := &testHandler{statusCode: http.StatusAccepted}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.RestartInstance(context.Background(), "inst-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/instances/inst-1/restart" {
		t.Fatalf("unexpected request: %s %s", h.method, h.path)
	}
}

func TestHTTPClient_ListParameters(t *testing.T) {
	h := &testHandler{
		responseBody: `{"configuration-parameters": [
			{"name": "connect_timeout", "type": "integer", "min": 2, "max": 31536000, "restart_required": false},
			{"name": "innodb_buffer_pool_size", "type": "integer", "restart_required": true}
		]}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	params, err := c.ListParameters(context.Background(), "mysql", "5.6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.path != "/v1/datastores/mysql/versions/5.6/parameters" {
		t.Fatalf("unexpected path: %s", h.path)
	}
	if len(params) != 2 || params[0].Name != "connect_timeout" {
		t.Fatalf("unexpected params: %+v", params)
	}
	if params[0].Min == nil || *params[0].Min != 2 {
		t.Fatalf("expected min bound, got %+v", params[0])
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusNotFound,
		responseBody: `{"error": "configuration not found"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetConfiguration(context.Background(), "cfg-missing")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "configuration not found" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestHTTPClient_DeleteAccepted(t *testing.T) {
	h := &testHandler{statusCode: http.StatusAccepted}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.DeleteConfiguration(context.Background(), "cfg-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.method != http.MethodDelete || h.path != "/v1/configurations/cfg-1" {
		t.Fatalf("unexpected request: %s %s", h.method, h.path)
	}
}
