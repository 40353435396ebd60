// Package registry maintains the per-datastore-version catalog of allowed
// configuration parameters and validates proposed value sets against it.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/khanhct/trove/internal/model"
	"github.com/khanhct/trove/internal/store"
)

// Registry serves the parameter schema catalog. A catalog-wide RWMutex
// keeps validation (read side) atomic with respect to parameter deletion
// and re-creation (write side): a value set can never validate against a
// parameter that is deleted mid-check.
type Registry struct {
	store store.Store
	mu    sync.RWMutex
}

// New returns a Registry backed by the given store.
func New(s store.Store) *Registry {
	return &Registry{store: s}
}

// ResolveVersion maps a datastore name and version name to the stored
// version record. Returns sql.ErrNoRows for unknown pairs.
func (r *Registry) ResolveVersion(ctx context.Context, datastore, version string) (*model.DatastoreVersion, error) {
	return r.store.GetDatastoreVersion(ctx, datastore, version)
}

// VersionByID fetches a datastore version record by its id.
func (r *Registry) VersionByID(ctx context.Context, id string) (*model.DatastoreVersion, error) {
	return r.store.GetDatastoreVersionByID(ctx, id)
}

// ListParameters returns the active (non-deleted) parameters of a version,
// ordered by name.
func (r *Registry) ListParameters(ctx context.Context, versionID string) ([]*model.ConfigurationParameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.ListParameters(ctx, versionID, false)
}

// GetParameter returns a single active parameter. Soft-deleted parameters
// are invisible here: the caller gets sql.ErrNoRows, same as for a name
// that never existed.
func (r *Registry) GetParameter(ctx context.Context, versionID, name string) (*model.ConfigurationParameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.GetParameter(ctx, versionID, name, false)
}

// AddParameter creates a catalog entry, or undeletes and refreshes an
// existing one.
func (r *Registry) AddParameter(ctx context.Context, param *model.ConfigurationParameter) error {
	if param.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	if !param.Type.IsValid() {
		return fmt.Errorf("unknown parameter type %q", param.Type)
	}
	if param.Type != model.TypeInteger && (param.Min != nil || param.Max != nil) {
		return fmt.Errorf("min/max bounds are only valid for integer parameters")
	}
	if _, err := r.store.GetDatastoreVersionByID(ctx, param.DatastoreVersionID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.UpsertParameter(ctx, param)
}

// DeleteParameter soft-deletes a catalog entry. Configuration groups that
// already reference the parameter keep their stored values; the parameter
// only disappears from listings and from future validation.
func (r *Registry) DeleteParameter(ctx context.Context, versionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.SoftDeleteParameter(ctx, versionID, name, time.Now().UTC())
}

// Validate checks values against the active catalog of versionID and, on
// success, runs commit while still holding the catalog read lock. Callers
// persisting a validated value set pass the persist step as commit so that
// check-then-act is a single unit with respect to parameter deletion.
// commit may be nil for a pure validation.
func (r *Registry) Validate(ctx context.Context, versionID string, values map[string]any, commit func() error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active, err := r.store.ListParameters(ctx, versionID, false)
	if err != nil {
		return fmt.Errorf("load parameter catalog: %w", err)
	}
	catalog := make(map[string]*model.ConfigurationParameter, len(active))
	for _, p := range active {
		catalog[p.Name] = p
	}

	if err := model.ValidateValues(values, catalog); err != nil {
		return err
	}
	if commit != nil {
		return commit()
	}
	return nil
}

// RestartRequired reports whether any of the given parameter names requires
// an instance restart to take effect. Soft-deleted parameters keep their
// restart metadata; names with no catalog history default to requiring a
// restart.
func (r *Registry) RestartRequired(ctx context.Context, versionID string, names []string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range names {
		p, err := r.store.GetParameter(ctx, versionID, name, true)
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if p.RestartRequired {
			return true, nil
		}
	}
	return false, nil
}
