package store

import (
	"context"
	"time"

	"github.com/khanhct/trove/internal/model"
)

// Store defines the persistence interface for the configuration control
// plane. Lookups scoped by tenant return sql.ErrNoRows for rows owned by a
// different tenant, so callers cannot distinguish "missing" from "not
// yours".
type Store interface {
	// Configuration groups
	CreateConfiguration(ctx context.Context, group *model.ConfigurationGroup) error
	GetConfiguration(ctx context.Context, tenant, id string) (*model.ConfigurationGroup, error)
	ListConfigurations(ctx context.Context, tenant string) ([]*model.ConfigurationGroup, error)
	UpdateConfiguration(ctx context.Context, group *model.ConfigurationGroup) error
	DeleteConfiguration(ctx context.Context, tenant, id string) error

	// Attachments
	CountAttachedInstances(ctx context.Context, configurationID string) (int, error)
	ListAttachedInstances(ctx context.Context, configurationID string) ([]*model.InstanceSummary, error)

	// Instances
	CreateInstance(ctx context.Context, inst *model.Instance) error
	GetInstance(ctx context.Context, tenant, id string) (*model.Instance, error)
	UpdateInstance(ctx context.Context, inst *model.Instance) error
	// TransitionInstanceStatus is an atomic compare-and-set on the status
	// column. It returns sql.ErrNoRows when the instance is not in "from".
	TransitionInstanceStatus(ctx context.Context, id string, from, to model.InstanceStatus, updated model.Timestamp) error
	DeleteInstance(ctx context.Context, tenant, id string) error

	// Datastore versions
	UpsertDatastoreVersion(ctx context.Context, version *model.DatastoreVersion) error
	GetDatastoreVersion(ctx context.Context, datastore, version string) (*model.DatastoreVersion, error)
	GetDatastoreVersionByID(ctx context.Context, id string) (*model.DatastoreVersion, error)

	// Configuration parameters. GetParameter and ListParameters return
	// soft-deleted rows only when includeDeleted is set; the registry
	// decides visibility.
	UpsertParameter(ctx context.Context, param *model.ConfigurationParameter) error
	GetParameter(ctx context.Context, versionID, name string, includeDeleted bool) (*model.ConfigurationParameter, error)
	ListParameters(ctx context.Context, versionID string, includeDeleted bool) ([]*model.ConfigurationParameter, error)
	SoftDeleteParameter(ctx context.Context, versionID, name string, deletedAt time.Time) error

	// Snapshot export. These listings cross tenant boundaries and must not
	// be reachable from the public API.
	ListAllConfigurations(ctx context.Context) ([]*model.ConfigurationGroup, error)
	ListAllInstances(ctx context.Context) ([]*model.Instance, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
