package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/khanhct/trove/internal/events"
	"github.com/khanhct/trove/internal/model"
)

// createInstanceInput holds transport-agnostic parameters for creating an
// instance record.
type createInstanceInput struct {
	Name          string         `json:"name"`
	Datastore     datastoreInput `json:"datastore"`
	Configuration string         `json:"configuration"`
}

// createInstance registers a new instance in BUILD and schedules its settle
// to ACTIVE. A configuration attached at create time takes effect during
// provisioning, so the instance settles to ACTIVE with no restart owed.
func (s *ConfigServer) createInstance(ctx context.Context, tenant string, in createInstanceInput) (*model.Instance, error) {
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
	version, err := s.registry.ResolveVersion(ctx, datastore, versionName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inputError(fmt.Sprintf("unknown datastore version %s/%s", datastore, versionName))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve datastore version: %w", err)
	}

	now := model.NewTimestamp(time.Now())
	inst := &model.Instance{
		ID:                 uuid.NewString(),
		Tenant:             tenant,
		Name:               in.Name,
		DatastoreName:      version.DatastoreName,
		DatastoreVersionID: version.ID,
		Status:             model.StatusBuild,
		Created:            now,
		Updated:            now,
	}

	if in.Configuration != "" {
		group, err := s.store.GetConfiguration(ctx, tenant, in.Configuration)
		if err != nil {
			return nil, err
		}
		if group.DatastoreVersionID != version.ID {
			return nil, inputError("configuration targets a different datastore version")
		}
		inst.ConfigurationID = &group.ID
	}

	if err := s.store.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	if inst.Attached() {
		s.publish(ctx, events.TopicConfigurationAttached, events.ConfigurationAttached{
			ConfigurationID: *inst.ConfigurationID,
			InstanceID:      inst.ID,
		})
	}
	s.publish(ctx, events.TopicInstanceCreated, events.InstanceCreated{Instance: inst})

	id := inst.ID
	s.settle(s.opts.BuildSettle, func() { s.finishBuild(id) })

	s.decorateInstance(ctx, tenant, inst)
	return inst, nil
}

// finishBuild settles a BUILD instance to ACTIVE. A no-op when the instance
// left BUILD in the meantime (deleted, errored).
func (s *ConfigServer) finishBuild(id string) {
	ctx := context.Background()
	err := s.store.TransitionInstanceStatus(ctx, id, model.StatusBuild, model.StatusActive, model.NewTimestamp(time.Now()))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Warn("failed to settle build", "instance", id, "error", err)
	}
}

// getInstance loads an instance with its attachment summary populated.
func (s *ConfigServer) getInstance(ctx context.Context, tenant, id string) (*model.Instance, error) {
	inst, err := s.store.GetInstance(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	s.decorateInstance(ctx, tenant, inst)
	return inst, nil
}

// decorateInstance fills in the configuration summary view for an attached
// instance. Lookup failures leave the summary empty rather than failing the
// whole read.
func (s *ConfigServer) decorateInstance(ctx context.Context, tenant string, inst *model.Instance) {
	if !inst.Attached() {
		return
	}
	group, err := s.store.GetConfiguration(ctx, tenant, *inst.ConfigurationID)
	if err != nil {
		slog.Warn("failed to load attached configuration", "instance", inst.ID, "error", err)
		return
	}
	inst.Configuration = &model.ConfigurationSummary{
		ID:   group.ID,
		Name: group.Name,
		Links: []model.Link{
			{Rel: "self", Href: "/v1/configurations/" + group.ID},
		},
	}
}

// renameInstance updates the display name. Renames do not touch the state
// machine.
func (s *ConfigServer) renameInstance(ctx context.Context, tenant, id, name string) (*model.Instance, error) {
	if name == "" {
		return nil, inputError("name must not be empty")
	}

	inst, err := s.store.GetInstance(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	inst.Name = name
	inst.Updated = model.NextUpdated(inst.Updated, time.Now())
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("rename instance: %w", err)
	}

	s.decorateInstance(ctx, tenant, inst)
	return inst, nil
}

// attachConfiguration links a configuration group to an instance. The
// instance must be ACTIVE and unconfigured; the new values take effect only
// after a restart, so the instance moves to RESTART_REQUIRED.
func (s *ConfigServer) attachConfiguration(ctx context.Context, tenant, instanceID, configurationID string) (*model.Instance, error) {
	unlock := s.lockGroup(configurationID)
	defer unlock()

	inst, err := s.store.GetInstance(ctx, tenant, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Attached() {
		return nil, inputError("instance already has a configuration attached; detach it first")
	}
	if !inst.Status.Stable() {
		return nil, inputError(fmt.Sprintf("instance is %s; configuration changes require ACTIVE", inst.Status))
	}

	group, err := s.store.GetConfiguration(ctx, tenant, configurationID)
	if err != nil {
		return nil, err
	}
	if group.DatastoreVersionID != inst.DatastoreVersionID {
		return nil, inputError("configuration targets a different datastore version")
	}

	inst.ConfigurationID = &group.ID
	inst.Status = model.StatusRestartRequired
	inst.Updated = model.NextUpdated(inst.Updated, time.Now())
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("attach configuration: %w", err)
	}

	s.publish(ctx, events.TopicConfigurationAttached, events.ConfigurationAttached{
		ConfigurationID: group.ID,
		InstanceID:      inst.ID,
	})
	s.publish(ctx, events.TopicInstanceRestartRequired, events.InstanceRestartRequired{
		InstanceID:      inst.ID,
		ConfigurationID: group.ID,
		Reason:          "configuration attached",
	})

	s.decorateInstance(ctx, tenant, inst)
	return inst, nil
}

// detachConfiguration removes the instance's configuration link. Detaching
// reverts the instance to defaults on its next restart, so it also moves to
// RESTART_REQUIRED. Detaching an unconfigured instance is a no-op.
func (s *ConfigServer) detachConfiguration(ctx context.Context, tenant, instanceID string) (*model.Instance, error) {
	inst, err := s.store.GetInstance(ctx, tenant, instanceID)
	if err != nil {
		return nil, err
	}
	if !inst.Attached() {
		return inst, nil
	}

	configurationID := *inst.ConfigurationID

	unlock := s.lockGroup(configurationID)
	defer unlock()

	// Reload under the group lock in case the attachment changed.
	inst, err = s.store.GetInstance(ctx, tenant, instanceID)
	if err != nil {
		return nil, err
	}
	if !inst.Attached() {
		return inst, nil
	}
	if !inst.Status.Stable() {
		return nil, inputError(fmt.Sprintf("instance is %s; configuration changes require ACTIVE", inst.Status))
	}

	inst.ConfigurationID = nil
	inst.Configuration = nil
	inst.Status = model.StatusRestartRequired
	inst.Updated = model.NextUpdated(inst.Updated, time.Now())
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("detach configuration: %w", err)
	}

	s.publish(ctx, events.TopicConfigurationDetached, events.ConfigurationDetached{
		ConfigurationID: configurationID,
		InstanceID:      inst.ID,
	})
	s.publish(ctx, events.TopicInstanceRestartRequired, events.InstanceRestartRequired{
		InstanceID: inst.ID,
		Reason:     "configuration detached",
	})

	return inst, nil
}

// restartInstance kicks a RESTART_REQUIRED instance into REBOOT and
// schedules the settle back to ACTIVE. Only flagged instances restart; an
// ACTIVE instance has nothing pending and gets a 400.
func (s *ConfigServer) restartInstance(ctx context.Context, tenant, id string) error {
	// Tenant scope first so foreign instances 404 instead of 400.
	inst, err := s.store.GetInstance(ctx, tenant, id)
	if err != nil {
		return err
	}

	err = s.store.TransitionInstanceStatus(ctx, id, model.StatusRestartRequired, model.StatusReboot, model.NextUpdated(inst.Updated, time.Now()))
	if errors.Is(err, sql.ErrNoRows) {
		return inputError(fmt.Sprintf("instance is %s; restart requires RESTART_REQUIRED", inst.Status))
	}
	if err != nil {
		return fmt.Errorf("restart instance: %w", err)
	}

	s.settle(s.opts.RestartSettle, func() { s.finishRestart(id) })
	return nil
}

// finishRestart settles a REBOOT instance to ACTIVE and announces the
// restart.
func (s *ConfigServer) finishRestart(id string) {
	ctx := context.Background()
	err := s.store.TransitionInstanceStatus(ctx, id, model.StatusReboot, model.StatusActive, model.NewTimestamp(time.Now()))
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	if err != nil {
		slog.Warn("failed to settle restart", "instance", id, "error", err)
		return
	}
	s.publish(ctx, events.TopicInstanceRestarted, events.InstanceRestarted{InstanceID: id})
}

// deleteInstance removes an instance record. The attachment dies with the
// instance; the configuration group itself is untouched.
func (s *ConfigServer) deleteInstance(ctx context.Context, tenant, id string) error {
	inst, err := s.store.GetInstance(ctx, tenant, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteInstance(ctx, tenant, id); err != nil {
		return err
	}

	if inst.Attached() {
		s.publish(ctx, events.TopicConfigurationDetached, events.ConfigurationDetached{
			ConfigurationID: *inst.ConfigurationID,
			InstanceID:      inst.ID,
		})
	}
	s.publish(ctx, events.TopicInstanceDeleted, events.InstanceDeleted{InstanceID: id, Tenant: tenant})

	return nil
}
