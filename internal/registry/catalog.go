package registry

import (
	"context"
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/khanhct/trove/internal/model"
)

//go:embed catalog/*.toml
var catalogFS embed.FS

// catalogFile mirrors the embedded TOML parameter catalog.
type catalogFile struct {
	Datastores []catalogDatastore `toml:"datastores"`
}

type catalogDatastore struct {
	Name     string           `toml:"name"`
	Versions []catalogVersion `toml:"versions"`
}

type catalogVersion struct {
	Name       string             `toml:"name"`
	Parameters []catalogParameter `toml:"parameters"`
}

type catalogParameter struct {
	Name            string `toml:"name"`
	Type            string `toml:"type"`
	Min             *int64 `toml:"min"`
	Max             *int64 `toml:"max"`
	RestartRequired bool   `toml:"restart_required"`
}

// versionNamespace seeds deterministic datastore-version ids, so repeated
// bootstraps on different nodes agree without coordination.
var versionNamespace = uuid.MustParse("8f3c52f7-1b6e-4d0a-9c65-0a92d1af5f4e")

// versionID derives the stable UUID of a datastore version.
func versionID(datastore, version string) string {
	return uuid.NewSHA1(versionNamespace, []byte(datastore+"/"+version)).String()
}

// Bootstrap seeds datastore versions and their parameter catalogs from the
// embedded TOML file. Versions are inserted once; parameters are upserted,
// so catalog updates in a new release refresh bounds and restart metadata
// without clobbering operator-managed soft deletes of unrelated entries.
func (r *Registry) Bootstrap(ctx context.Context) error {
	raw, err := catalogFS.ReadFile("catalog/catalog.toml")
	if err != nil {
		return fmt.Errorf("read embedded catalog: %w", err)
	}

	var file catalogFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse embedded catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ds := range file.Datastores {
		for _, ver := range ds.Versions {
			v := &model.DatastoreVersion{
				ID:            versionID(ds.Name, ver.Name),
				DatastoreName: ds.Name,
				Name:          ver.Name,
			}
			if err := r.store.UpsertDatastoreVersion(ctx, v); err != nil {
				return fmt.Errorf("seed version %s/%s: %w", ds.Name, ver.Name, err)
			}

			// The insert is a no-op when the pair already exists, so
			// read back the id actually stored.
			stored, err := r.store.GetDatastoreVersion(ctx, ds.Name, ver.Name)
			if err != nil {
				return fmt.Errorf("read back version %s/%s: %w", ds.Name, ver.Name, err)
			}

			for _, p := range ver.Parameters {
				dt := model.DataType(p.Type)
				if !dt.IsValid() {
					return fmt.Errorf("catalog parameter %s/%s/%s: unknown type %q",
						ds.Name, ver.Name, p.Name, p.Type)
				}
				param := &model.ConfigurationParameter{
					Name:               p.Name,
					DatastoreVersionID: stored.ID,
					Type:               dt,
					Min:                p.Min,
					Max:                p.Max,
					RestartRequired:    p.RestartRequired,
				}
				if err := r.store.UpsertParameter(ctx, param); err != nil {
					return fmt.Errorf("seed parameter %s/%s/%s: %w",
						ds.Name, ver.Name, p.Name, err)
				}
			}
		}
	}
	return nil
}
