package snapshot

import (
	"context"
	"sort"

	"github.com/khanhct/trove/internal/model"
	"github.com/khanhct/trove/internal/store"
)

// mockStore is a minimal in-memory store for snapshot tests. Only the
// listing methods the exporter touches are implemented; calling anything
// else panics via the embedded nil interface.
type mockStore struct {
	store.Store

	configs   map[string]*model.ConfigurationGroup
	instances map[string]*model.Instance
}

func newMockStore() *mockStore {
	return &mockStore{
		configs:   make(map[string]*model.ConfigurationGroup),
		instances: make(map[string]*model.Instance),
	}
}

func (m *mockStore) ListAllConfigurations(_ context.Context) ([]*model.ConfigurationGroup, error) {
	var out []*model.ConfigurationGroup
	for _, g := range m.configs {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) ListAllInstances(_ context.Context) ([]*model.Instance, error) {
	var out []*model.Instance
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
