package server

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/khanhct/trove/internal/events"
	"github.com/khanhct/trove/internal/model"
	"github.com/khanhct/trove/internal/registry"
	"github.com/khanhct/trove/internal/store"
)

type mockStore struct {
	mu        sync.Mutex
	configs   map[string]*model.ConfigurationGroup
	instances map[string]*model.Instance
	versions  map[string]*model.DatastoreVersion
	params    map[string]map[string]*model.ConfigurationParameter

	// updateConfigErr, when non-nil, is returned by UpdateConfiguration.
	updateConfigErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		configs:   make(map[string]*model.ConfigurationGroup),
		instances: make(map[string]*model.Instance),
		versions:  make(map[string]*model.DatastoreVersion),
		params:    make(map[string]map[string]*model.ConfigurationParameter),
	}
}

func cloneConfig(g *model.ConfigurationGroup) *model.ConfigurationGroup {
	clone := *g
	clone.Values = make(map[string]any, len(g.Values))
	for k, v := range g.Values {
		clone.Values[k] = v
	}
	return &clone
}

func cloneInstance(i *model.Instance) *model.Instance {
	clone := *i
	if i.ConfigurationID != nil {
		id := *i.ConfigurationID
		clone.ConfigurationID = &id
	}
	clone.Configuration = nil
	return &clone
}

func (m *mockStore) CreateConfiguration(_ context.Context, group *model.ConfigurationGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[group.ID] = cloneConfig(group)
	return nil
}

func (m *mockStore) GetConfiguration(_ context.Context, tenant, id string) (*model.ConfigurationGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.configs[id]
	if !ok || g.Tenant != tenant {
		return nil, sql.ErrNoRows
	}
	clone := cloneConfig(g)
	clone.InstanceCount = m.countAttachedLocked(id)
	return clone, nil
}

func (m *mockStore) ListConfigurations(_ context.Context, tenant string) ([]*model.ConfigurationGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ConfigurationGroup
	for _, g := range m.configs {
		if g.Tenant != tenant {
			continue
		}
		clone := cloneConfig(g)
		clone.InstanceCount = m.countAttachedLocked(g.ID)
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) ListAllConfigurations(_ context.Context) ([]*model.ConfigurationGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ConfigurationGroup
	for _, g := range m.configs {
		out = append(out, cloneConfig(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) ListAllInstances(_ context.Context) ([]*model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Instance
	for _, inst := range m.instances {
		out = append(out, cloneInstance(inst))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) UpdateConfiguration(_ context.Context, group *model.ConfigurationGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateConfigErr != nil {
		return m.updateConfigErr
	}
	existing, ok := m.configs[group.ID]
	if !ok || existing.Tenant != group.Tenant {
		return sql.ErrNoRows
	}
	m.configs[group.ID] = cloneConfig(group)
	return nil
}

func (m *mockStore) DeleteConfiguration(_ context.Context, tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.configs[id]
	if !ok || g.Tenant != tenant {
		return sql.ErrNoRows
	}
	delete(m.configs, id)
	return nil
}

func (m *mockStore) countAttachedLocked(configurationID string) int {
	n := 0
	for _, inst := range m.instances {
		if inst.ConfigurationID != nil && *inst.ConfigurationID == configurationID {
			n++
		}
	}
	return n
}

func (m *mockStore) CountAttachedInstances(_ context.Context, configurationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countAttachedLocked(configurationID), nil
}

func (m *mockStore) ListAttachedInstances(_ context.Context, configurationID string) ([]*model.InstanceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.InstanceSummary
	for _, inst := range m.instances {
		if inst.ConfigurationID != nil && *inst.ConfigurationID == configurationID {
			out = append(out, &model.InstanceSummary{ID: inst.ID, Name: inst.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) CreateInstance(_ context.Context, inst *model.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[inst.ID] = cloneInstance(inst)
	return nil
}

func (m *mockStore) GetInstance(_ context.Context, tenant, id string) (*model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || inst.Tenant != tenant {
		return nil, sql.ErrNoRows
	}
	return cloneInstance(inst), nil
}

func (m *mockStore) UpdateInstance(_ context.Context, inst *model.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.instances[inst.ID]
	if !ok || existing.Tenant != inst.Tenant {
		return sql.ErrNoRows
	}
	m.instances[inst.ID] = cloneInstance(inst)
	return nil
}

func (m *mockStore) TransitionInstanceStatus(_ context.Context, id string, from, to model.InstanceStatus, updated model.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || inst.Status != from {
		return sql.ErrNoRows
	}
	inst.Status = to
	inst.Updated = updated
	return nil
}

func (m *mockStore) DeleteInstance(_ context.Context, tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || inst.Tenant != tenant {
		return sql.ErrNoRows
	}
	delete(m.instances, id)
	return nil
}

func (m *mockStore) UpsertDatastoreVersion(_ context.Context, v *model.DatastoreVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.versions {
		if existing.DatastoreName == v.DatastoreName && existing.Name == v.Name {
			return nil
		}
	}
	clone := *v
	m.versions[v.ID] = &clone
	return nil
}

func (m *mockStore) GetDatastoreVersion(_ context.Context, datastore, version string) (*model.DatastoreVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.DatastoreName == datastore && v.Name == version {
			clone := *v
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) GetDatastoreVersionByID(_ context.Context, id string) (*model.DatastoreVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *v
	return &clone, nil
}

func (m *mockStore) UpsertParameter(_ context.Context, p *model.ConfigurationParameter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.params[p.DatastoreVersionID]
	if !ok {
		byName = make(map[string]*model.ConfigurationParameter)
		m.params[p.DatastoreVersionID] = byName
	}
	clone := *p
	clone.Deleted = false
	clone.DeletedAt = nil
	byName[p.Name] = &clone
	return nil
}

func (m *mockStore) GetParameter(_ context.Context, versionID, name string, includeDeleted bool) (*model.ConfigurationParameter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.params[versionID][name]
	if !ok || (p.Deleted && !includeDeleted) {
		return nil, sql.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (m *mockStore) ListParameters(_ context.Context, versionID string, includeDeleted bool) ([]*model.ConfigurationParameter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ConfigurationParameter
	for _, p := range m.params[versionID] {
		if p.Deleted && !includeDeleted {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) SoftDeleteParameter(_ context.Context, versionID, name string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.params[versionID][name]
	if !ok || p.Deleted {
		return sql.ErrNoRows
	}
	p.Deleted = true
	p.DeletedAt = &deletedAt
	return nil
}

func (m *mockStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

var _ store.Store = (*mockStore)(nil)

// testServer bundles a ConfigServer with its mock store and a manual settle
// queue so tests control when async status transitions land.
type testServer struct {
	srv *ConfigServer
	ms  *mockStore
	reg *registry.Registry

	mu      sync.Mutex
	settles []func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ms := newMockStore()
	reg := registry.New(ms)
	if err := reg.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	srv := NewConfigServer(ms, reg, &events.NoopPublisher{}, Options{})

	ts := &testServer{srv: srv, ms: ms, reg: reg}
	srv.settle = func(_ time.Duration, fn func()) {
		ts.mu.Lock()
		ts.settles = append(ts.settles, fn)
		ts.mu.Unlock()
	}
	return ts
}

// drainSettles runs every pending settle transition.
func (ts *testServer) drainSettles() {
	for {
		ts.mu.Lock()
		if len(ts.settles) == 0 {
			ts.mu.Unlock()
			return
		}
		fn := ts.settles[0]
		ts.settles = ts.settles[1:]
		ts.mu.Unlock()
		fn()
	}
}

func (ts *testServer) versionID(t *testing.T, datastore, version string) string {
	t.Helper()
	v, err := ts.reg.ResolveVersion(context.Background(), datastore, version)
	if err != nil {
		t.Fatalf("ResolveVersion(%s, %s): %v", datastore, version, err)
	}
	return v.ID
}

func (ts *testServer) instanceStatus(t *testing.T, id string) model.InstanceStatus {
	t.Helper()
	ts.ms.mu.Lock()
	defer ts.ms.mu.Unlock()
	inst, ok := ts.ms.instances[id]
	if !ok {
		t.Fatalf("instance %s not in store", id)
	}
	return inst.Status
}

func TestAttachDetachRestartStateMachine(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	group, err := ts.srv.createConfiguration(ctx, "t1", createConfigurationInput{
		Name:   "grp",
		Values: []byte(`{"connect_timeout": 120}`),
	})
	if err != nil {
		t.Fatalf("createConfiguration: %v", err)
	}

	inst, err := ts.srv.createInstance(ctx, "t1", createInstanceInput{Name: "db1"})
	if err != nil {
		t.Fatalf("createInstance: %v", err)
	}
	if inst.Status != model.StatusBuild {
		t.Fatalf("new instance status = %s, want BUILD", inst.Status)
	}

	// Attach before the instance settles is rejected.
	if _, err := ts.srv.attachConfiguration(ctx, "t1", inst.ID, group.ID); err == nil {
		t.Fatal("attach to BUILD instance succeeded")
	}

	ts.drainSettles()
	if got := ts.instanceStatus(t, inst.ID); got != model.StatusActive {
		t.Fatalf("settled status = %s, want ACTIVE", got)
	}

	// Attach flags the instance for restart.
	attached, err := ts.srv.attachConfiguration(ctx, "t1", inst.ID, group.ID)
	if err != nil {
		t.Fatalf("attachConfiguration: %v", err)
	}
	if attached.Status != model.StatusRestartRequired {
		t.Errorf("status after attach = %s, want RESTART_REQUIRED", attached.Status)
	}
	if attached.Configuration == nil || attached.Configuration.ID != group.ID {
		t.Errorf("attachment summary = %+v", attached.Configuration)
	}

	// Double attach is rejected.
	if _, err := ts.srv.attachConfiguration(ctx, "t1", inst.ID, group.ID); err == nil {
		t.Fatal("second attach succeeded")
	}

	// Restart: RESTART_REQUIRED -> REBOOT -> ACTIVE.
	if err := ts.srv.restartInstance(ctx, "t1", inst.ID); err != nil {
		t.Fatalf("restartInstance: %v", err)
	}
	if got := ts.instanceStatus(t, inst.ID); got != model.StatusReboot {
		t.Fatalf("status after restart = %s, want REBOOT", got)
	}
	ts.drainSettles()
	if got := ts.instanceStatus(t, inst.ID); got != model.StatusActive {
		t.Fatalf("status after settle = %s, want ACTIVE", got)
	}

	// Restart with nothing pending is rejected.
	if err := ts.srv.restartInstance(ctx, "t1", inst.ID); err == nil {
		t.Fatal("restart of ACTIVE instance succeeded")
	}

	// Detach flags the instance again.
	detached, err := ts.srv.detachConfiguration(ctx, "t1", inst.ID)
	if err != nil {
		t.Fatalf("detachConfiguration: %v", err)
	}
	if detached.Status != model.StatusRestartRequired {
		t.Errorf("status after detach = %s, want RESTART_REQUIRED", detached.Status)
	}
	if detached.Attached() {
		t.Error("instance still attached after detach")
	}

	// Detach with nothing attached is a no-op.
	if err := ts.srv.restartInstance(ctx, "t1", inst.ID); err != nil {
		t.Fatalf("restart after detach: %v", err)
	}
	ts.drainSettles()
	again, err := ts.srv.detachConfiguration(ctx, "t1", inst.ID)
	if err != nil {
		t.Fatalf("detach of unconfigured instance: %v", err)
	}
	if again.Status != model.StatusActive {
		t.Errorf("no-op detach changed status to %s", again.Status)
	}
}

func TestEditPropagatesRestartRequired(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	group, err := ts.srv.createConfiguration(ctx, "t1", createConfigurationInput{
		Name:   "grp",
		Values: []byte(`{"connect_timeout": 120}`),
	})
	if err != nil {
		t.Fatalf("createConfiguration: %v", err)
	}

	inst, err := ts.srv.createInstance(ctx, "t1", createInstanceInput{
		Name:          "db1",
		Configuration: group.ID,
	})
	if err != nil {
		t.Fatalf("createInstance: %v", err)
	}
	ts.drainSettles()
	if got := ts.instanceStatus(t, inst.ID); got != model.StatusActive {
		t.Fatalf("settled status = %s, want ACTIVE (config at create costs no restart)", got)
	}

	// Changing a dynamic parameter does not flag the instance.
	_, err = ts.srv.mutateConfiguration(ctx, "t1", group.ID, nil, nil,
		func(old map[string]any) map[string]any {
			return model.MergeValues(old, map[string]any{"connect_timeout": 200})
		})
	if err != nil {
		t.Fatalf("dynamic mutate: %v", err)
	}
	if got := ts.instanceStatus(t, inst.ID); got != model.StatusActive {
		t.Fatalf("status after dynamic change = %s, want ACTIVE", got)
	}

	// Changing a restart-required parameter flags every attached instance.
	_, err = ts.srv.mutateConfiguration(ctx, "t1", group.ID, nil, nil,
		func(old map[string]any) map[string]any {
			return model.MergeValues(old, map[string]any{"innodb_buffer_pool_size": 268435456})
		})
	if err != nil {
		t.Fatalf("restart-required mutate: %v", err)
	}
	if got := ts.instanceStatus(t, inst.ID); got != model.StatusRestartRequired {
		t.Fatalf("status after restart-required change = %s, want RESTART_REQUIRED", got)
	}

	// Submitting the same values again changes nothing, so no new flags and
	// the instance can restart cleanly.
	if err := ts.srv.restartInstance(ctx, "t1", inst.ID); err != nil {
		t.Fatalf("restartInstance: %v", err)
	}
	ts.drainSettles()
	_, err = ts.srv.mutateConfiguration(ctx, "t1", group.ID, nil, nil,
		func(old map[string]any) map[string]any { return old })
	if err != nil {
		t.Fatalf("no-op mutate: %v", err)
	}
	if got := ts.instanceStatus(t, inst.ID); got != model.StatusActive {
		t.Fatalf("status after no-op edit = %s, want ACTIVE", got)
	}
}

func TestUpdatedTimestampMonotonic(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	group, err := ts.srv.createConfiguration(ctx, "t1", createConfigurationInput{Name: "grp"})
	if err != nil {
		t.Fatalf("createConfiguration: %v", err)
	}
	if !group.Updated.Equal(group.Created) {
		t.Errorf("fresh group created %s != updated %s", group.Created, group.Updated)
	}

	prev := group.Updated
	for i := 0; i < 3; i++ {
		group, err = ts.srv.mutateConfiguration(ctx, "t1", group.ID, nil, nil,
			func(old map[string]any) map[string]any {
				return model.MergeValues(old, map[string]any{"connect_timeout": 100 + i})
			})
		if err != nil {
			t.Fatalf("mutate %d: %v", i, err)
		}
		if !group.Updated.After(prev) {
			t.Fatalf("mutation %d: updated %s not after %s", i, group.Updated, prev)
		}
		prev = group.Updated
	}
	if !group.Updated.After(group.Created) {
		t.Errorf("updated %s should trail created %s", group.Updated, group.Created)
	}
}

func TestDeleteConfigurationGuards(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	group, err := ts.srv.createConfiguration(ctx, "t1", createConfigurationInput{Name: "grp"})
	if err != nil {
		t.Fatalf("createConfiguration: %v", err)
	}
	inst, err := ts.srv.createInstance(ctx, "t1", createInstanceInput{Name: "db1", Configuration: group.ID})
	if err != nil {
		t.Fatalf("createInstance: %v", err)
	}
	ts.drainSettles()

	// Attached group cannot be deleted.
	err = ts.srv.deleteConfiguration(ctx, "t1", group.ID)
	var ie inputError
	if !errors.As(err, &ie) {
		t.Fatalf("delete attached group err = %v, want inputError", err)
	}

	// Detach, then delete succeeds.
	if _, err := ts.srv.detachConfiguration(ctx, "t1", inst.ID); err != nil {
		t.Fatalf("detachConfiguration: %v", err)
	}
	if err := ts.srv.deleteConfiguration(ctx, "t1", group.ID); err != nil {
		t.Fatalf("deleteConfiguration after detach: %v", err)
	}

	// Gone now.
	if err := ts.srv.deleteConfiguration(ctx, "t1", group.ID); err != sql.ErrNoRows {
		t.Fatalf("second delete err = %v, want sql.ErrNoRows", err)
	}
}

func TestConcurrentMutationsSerializePerGroup(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	group, err := ts.srv.createConfiguration(ctx, "t1", createConfigurationInput{Name: "grp"})
	if err != nil {
		t.Fatalf("createConfiguration: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ts.srv.mutateConfiguration(ctx, "t1", group.ID, nil, nil,
				func(old map[string]any) map[string]any {
					return model.MergeValues(old, map[string]any{"connect_timeout": 100 + i})
				})
			if err != nil {
				t.Errorf("concurrent mutate %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	final, err := ts.ms.GetConfiguration(ctx, "t1", group.ID)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if _, ok := final.Values["connect_timeout"]; !ok {
		t.Error("connect_timeout missing after concurrent mutations")
	}
	if !final.Updated.After(final.Created) {
		t.Errorf("updated %s not after created %s", final.Updated, final.Created)
	}
}
