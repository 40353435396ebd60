// Package client provides a transport-agnostic interface for the trove
// configuration service and an HTTP/JSON implementation that talks to the
// REST API.
package client

import (
	"context"
	"encoding/json"

	"github.com/khanhct/trove/internal/model"
)

// ConfigClient is the interface that all trove CLI commands use to
// communicate with the configuration server. It is implemented by HTTPClient
// (default) and can be backed by any transport.
type ConfigClient interface {
	// Configuration groups
	CreateConfiguration(ctx context.Context, req *CreateConfigurationRequest) (*model.ConfigurationGroup, error)
	GetConfiguration(ctx context.Context, id string) (*model.ConfigurationGroup, error)
	ListConfigurations(ctx context.Context) ([]*model.ConfigurationGroup, error)
	EditConfiguration(ctx context.Context, id string, req *EditConfigurationRequest) (*model.ConfigurationGroup, error)
	PatchConfiguration(ctx context.Context, id string, req *PatchConfigurationRequest) (*model.ConfigurationGroup, error)
	DeleteConfiguration(ctx context.Context, id string) error
	ListAttachedInstances(ctx context.Context, configurationID string) ([]*model.InstanceSummary, error)

	// Instances
	CreateInstance(ctx context.Context, req *CreateInstanceRequest) (*model.Instance, error)
	GetInstance(ctx context.Context, id string) (*model.Instance, error)
	AttachConfiguration(ctx context.Context, instanceID, configurationID string) error
	DetachConfiguration(ctx context.Context, instanceID string) error
	RestartInstance(ctx context.Context, instanceID string) error
	DeleteInstance(ctx context.Context, instanceID string) error

	// Parameter catalog
	ListParameters(ctx context.Context, datastore, version string) ([]*model.ConfigurationParameter, error)
	GetParameter(ctx context.Context, datastore, version, name string) (*model.ConfigurationParameter, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateConfigurationRequest holds parameters for creating a configuration
// group.
type CreateConfigurationRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Datastore   *Datastore      `json:"datastore,omitempty"`
	Values      json.RawMessage `json:"values,omitempty"`
}

// Datastore names a datastore type and version pair.
type Datastore struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// EditConfigurationRequest replaces the full value set of a group. Nil
// pointer fields leave name and description unchanged.
type EditConfigurationRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Values      json.RawMessage `json:"values"`
}

// PatchConfigurationRequest merges values into the existing set. Nil pointer
// fields mean "don't change".
type PatchConfigurationRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Values      json.RawMessage `json:"values,omitempty"`
}

// CreateInstanceRequest holds parameters for provisioning an instance.
type CreateInstanceRequest struct {
	Name          string     `json:"name"`
	Datastore     *Datastore `json:"datastore,omitempty"`
	Configuration string     `json:"configuration,omitempty"`
}
