package events

import (
	"context"

	"github.com/khanhct/trove/internal/model"
)

// Event topic constants
const (
	TopicConfigurationCreated  = "trove.configuration.created"
	TopicConfigurationUpdated  = "trove.configuration.updated"
	TopicConfigurationDeleted  = "trove.configuration.deleted"
	TopicConfigurationAttached = "trove.configuration.attached"
	TopicConfigurationDetached = "trove.configuration.detached"

	TopicInstanceCreated         = "trove.instance.created"
	TopicInstanceDeleted         = "trove.instance.deleted"
	TopicInstanceRestartRequired = "trove.instance.restart_required"
	TopicInstanceRestarted       = "trove.instance.restarted"

	TopicParameterCreated = "trove.parameter.created"
	TopicParameterDeleted = "trove.parameter.deleted"
)

// Event types

type ConfigurationCreated struct {
	Configuration *model.ConfigurationGroup `json:"configuration"`
}

type ConfigurationUpdated struct {
	Configuration *model.ConfigurationGroup `json:"configuration"`
	ChangedKeys   []string                  `json:"changed_keys"`
}

type ConfigurationDeleted struct {
	ConfigurationID string `json:"configuration_id"`
	Tenant          string `json:"tenant"`
}

type ConfigurationAttached struct {
	ConfigurationID string `json:"configuration_id"`
	InstanceID      string `json:"instance_id"`
}

type ConfigurationDetached struct {
	ConfigurationID string `json:"configuration_id"`
	InstanceID      string `json:"instance_id"`
}

type InstanceCreated struct {
	Instance *model.Instance `json:"instance"`
}

type InstanceDeleted struct {
	InstanceID string `json:"instance_id"`
	Tenant     string `json:"tenant"`
}

type InstanceRestartRequired struct {
	InstanceID      string `json:"instance_id"`
	ConfigurationID string `json:"configuration_id,omitempty"`
	Reason          string `json:"reason"`
}

type InstanceRestarted struct {
	InstanceID string `json:"instance_id"`
}

type ParameterCreated struct {
	Parameter *model.ConfigurationParameter `json:"parameter"`
}

type ParameterDeleted struct {
	DatastoreVersionID string `json:"datastore_version_id"`
	Name               string `json:"name"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
