package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/khanhct/trove/internal/model"
)

// HTTPClient implements ConfigClient using the trove HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	tenant     string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8779"). When token is non-empty, an Authorization
// header is set on every request. When tenant is non-empty, requests carry an
// X-Tenant-ID header; otherwise the server scopes to the default tenant.
func NewHTTPClient(baseURL, token, tenant string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		tenant:     tenant,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Configuration groups ---

func (c *HTTPClient) CreateConfiguration(ctx context.Context, req *CreateConfigurationRequest) (*model.ConfigurationGroup, error) {
	var resp struct {
		Configuration *model.ConfigurationGroup `json:"configuration"`
	}
	body := map[string]any{"configuration": req}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/configurations", body, &resp); err != nil {
		return nil, err
	}
	return resp.Configuration, nil
}

func (c *HTTPClient) GetConfiguration(ctx context.Context, id string) (*model.ConfigurationGroup, error) {
	var resp struct {
		Configuration *model.ConfigurationGroup `json:"configuration"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/configurations/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Configuration, nil
}

func (c *HTTPClient) ListConfigurations(ctx context.Context) ([]*model.ConfigurationGroup, error) {
	var resp struct {
		Configurations []*model.ConfigurationGroup `json:"configurations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/configurations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Configurations, nil
}

func (c *HTTPClient) EditConfiguration(ctx context.Context, id string, req *EditConfigurationRequest) (*model.ConfigurationGroup, error) {
	var resp struct {
		Configuration *model.ConfigurationGroup `json:"configuration"`
	}
	body := map[string]any{"configuration": req}
	if err := c.doJSON(ctx, http.MethodPut, "/v1/configurations/"+url.PathEscape(id), body, &resp); err != nil {
		return nil, err
	}
	return resp.Configuration, nil
}

func (c *HTTPClient) PatchConfiguration(ctx context.Context, id string, req *PatchConfigurationRequest) (*model.ConfigurationGroup, error) {
	var resp struct {
		Configuration *model.ConfigurationGroup `json:"configuration"`
	}
	body := map[string]any{"configuration": req}
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/configurations/"+url.PathEscape(id), body, &resp); err != nil {
		return nil, err
	}
	return resp.Configuration, nil
}

func (c *HTTPClient) DeleteConfiguration(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/configurations/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListAttachedInstances(ctx context.Context, configurationID string) ([]*model.InstanceSummary, error) {
	var resp struct {
		Instances []*model.InstanceSummary `json:"instances"`
	}
	path := "/v1/configurations/" + url.PathEscape(configurationID) + "/instances"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instances, nil
}

// --- Instances ---

func (c *HTTPClient) CreateInstance(ctx context.Context, req *CreateInstanceRequest) (*model.Instance, error) {
	var resp struct {
		Instance *model.Instance `json:"instance"`
	}
	body := map[string]any{"instance": req}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/instances", body, &resp); err != nil {
		return nil, err
	}
	return resp.Instance, nil
}

func (c *HTTPClient) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	var resp struct {
		Instance *model.Instance `json:"instance"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/instances/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instance, nil
}

func (c *HTTPClient) AttachConfiguration(ctx context.Context, instanceID, configurationID string) error {
	body := map[string]any{
		"instance": map[string]string{"configuration": configurationID},
	}
	return c.doJSON(ctx, http.MethodPut, "/v1/instances/"+url.PathEscape(instanceID), body, nil)
}

func (c *HTTPClient) DetachConfiguration(ctx context.Context, instanceID string) error {
	body := map[string]any{
		"instance": map[string]any{"remove_configuration": true},
	}
	return c.doJSON(ctx, http.MethodPut, "/v1/instances/"+url.PathEscape(instanceID), body, nil)
}

func (c *HTTPClient) RestartInstance(ctx context.Context, instanceID string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/instances/"+url.PathEscape(instanceID)+"/restart", nil, nil)
}

func (c *HTTPClient) DeleteInstance(ctx context.Context, instanceID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/instances/"+url.PathEscape(instanceID), nil, nil)
}

// --- Parameter catalog ---

func (c *HTTPClient) ListParameters(ctx context.Context, datastore, version string) ([]*model.ConfigurationParameter, error) {
	var resp struct {
		Parameters []*model.ConfigurationParameter `json:"configuration-parameters"`
	}
	path := "/v1/datastores/" + url.PathEscape(datastore) + "/versions/" + url.PathEscape(version) + "/parameters"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Parameters, nil
}

func (c *HTTPClient) GetParameter(ctx context.Context, datastore, version, name string) (*model.ConfigurationParameter, error) {
	var resp struct {
		Parameter *model.ConfigurationParameter `json:"configuration-parameter"`
	}
	path := "/v1/datastores/" + url.PathEscape(datastore) + "/versions/" + url.PathEscape(version) +
		"/parameters/" + url.PathEscape(name)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Parameter, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// JSON response. If result is nil, the response body is discarded (for
// DELETE/202 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-ID", c.tenant)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
