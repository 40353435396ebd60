package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/khanhct/trove/internal/events"
	"github.com/khanhct/trove/internal/model"
)

// datastoreInput names a datastore version on create requests.
type datastoreInput struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// createConfigurationInput holds transport-agnostic parameters for creating a
// configuration group.
type createConfigurationInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Datastore   datastoreInput  `json:"datastore"`
	Values      json.RawMessage `json:"values"`
}

// createConfiguration validates input and the proposed values, persists the
// group, and publishes a ConfigurationCreated event. Returns inputError for
// malformed requests and model.ValidationError for rejected values.
func (s *ConfigServer) createConfiguration(ctx context.Context, tenant string, in createConfigurationInput) (*model.ConfigurationGroup, error) {
	if in.Name == "" {
		return nil, inputError("name is required")
	}

	datastore := in.Datastore.Type
	versionName := in.Datastore.Version
	if datastore == "" {
		datastore = s.opts.DefaultDatastore
		if versionName == "" {
			versionName = s.opts.DefaultVersion
		}
	}
	if versionName == "" {
		return nil, inputError("datastore version is required")
	}

	version, err := s.registry.ResolveVersion(ctx, datastore, versionName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inputError(fmt.Sprintf("unknown datastore version %s/%s", datastore, versionName))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve datastore version: %w", err)
	}

	values, err := model.ParseValues(in.Values)
	if err != nil {
		return nil, inputError(err.Error())
	}

	now := model.NewTimestamp(time.Now())
	group := &model.ConfigurationGroup{
		ID:                   uuid.NewString(),
		Name:                 in.Name,
		Description:          in.Description,
		Tenant:               tenant,
		DatastoreName:        version.DatastoreName,
		DatastoreVersionID:   version.ID,
		DatastoreVersionName: version.Name,
		Values:               values,
		Created:              now,
		Updated:              now,
	}

	err = s.registry.Validate(ctx, version.ID, values, func() error {
		return s.store.CreateConfiguration(ctx, group)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicConfigurationCreated, events.ConfigurationCreated{Configuration: group})

	return group, nil
}

// mutateConfiguration applies a value-set change to a group under its
// mutation lock. newValuesOf maps the current value set to the proposed one
// (full replace for edit, merge for update). When a changed key requires a
// restart, every attached ACTIVE instance is flagged RESTART_REQUIRED.
func (s *ConfigServer) mutateConfiguration(ctx context.Context, tenant, id string, name, description *string, newValuesOf func(old map[string]any) map[string]any) (*model.ConfigurationGroup, error) {
	unlock := s.lockGroup(id)
	defer unlock()

	group, err := s.store.GetConfiguration(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	newValues := newValuesOf(group.Values)
	changed := model.ChangedKeys(group.Values, newValues)

	needRestart := false
	if len(changed) > 0 {
		needRestart, err = s.registry.RestartRequired(ctx, group.DatastoreVersionID, changed)
		if err != nil {
			return nil, fmt.Errorf("check restart metadata: %w", err)
		}
	}

	err = s.registry.Validate(ctx, group.DatastoreVersionID, newValues, func() error {
		group.Values = newValues
		if name != nil {
			group.Name = *name
		}
		if description != nil {
			group.Description = *description
		}
		group.Updated = model.NextUpdated(group.Updated, time.Now())
		return s.store.UpdateConfiguration(ctx, group)
	})
	if err != nil {
		return nil, err
	}

	if needRestart {
		s.flagAttachedInstances(ctx, group.ID, "configuration change")
	}

	s.publish(ctx, events.TopicConfigurationUpdated, events.ConfigurationUpdated{
		Configuration: group,
		ChangedKeys:   changed,
	})

	return group, nil
}

// flagAttachedInstances moves every ACTIVE instance attached to a group to
// RESTART_REQUIRED. Instances already flagged, rebooting, or otherwise
// unsettled are left alone.
func (s *ConfigServer) flagAttachedInstances(ctx context.Context, configurationID, reason string) {
	attached, err := s.store.ListAttachedInstances(ctx, configurationID)
	if err != nil {
		slog.Warn("failed to list attached instances", "configuration", configurationID, "error", err)
		return
	}

	now := model.NewTimestamp(time.Now())
	for _, inst := range attached {
		err := s.store.TransitionInstanceStatus(ctx, inst.ID, model.StatusActive, model.StatusRestartRequired, now)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			slog.Warn("failed to flag instance restart", "instance", inst.ID, "error", err)
			continue
		}
		s.publish(ctx, events.TopicInstanceRestartRequired, events.InstanceRestartRequired{
			InstanceID:      inst.ID,
			ConfigurationID: configurationID,
			Reason:          reason,
		})
	}
}

// deleteConfiguration removes a group that has no live attachments.
func (s *ConfigServer) deleteConfiguration(ctx context.Context, tenant, id string) error {
	unlock := s.lockGroup(id)
	defer unlock()

	group, err := s.store.GetConfiguration(ctx, tenant, id)
	if err != nil {
		return err
	}

	count, err := s.store.CountAttachedInstances(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("count attached instances: %w", err)
	}
	if count > 0 {
		return inputError(fmt.Sprintf("configuration is attached to %d instance(s); detach before deleting", count))
	}

	if err := s.store.DeleteConfiguration(ctx, tenant, id); err != nil {
		return err
	}

	s.publish(ctx, events.TopicConfigurationDeleted, events.ConfigurationDeleted{
		ConfigurationID: id,
		Tenant:          tenant,
	})

	return nil
}
