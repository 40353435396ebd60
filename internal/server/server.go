package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/khanhct/trove/internal/events"
	"github.com/khanhct/trove/internal/registry"
	"github.com/khanhct/trove/internal/store"
)

// Options tunes non-wiring behavior of the server.
type Options struct {
	// DefaultDatastore and DefaultVersion are used when a create request
	// omits the datastore block.
	DefaultDatastore string
	DefaultVersion   string

	// BuildSettle and RestartSettle are the simulated provisioning delays
	// before BUILD and REBOOT instances settle to ACTIVE.
	BuildSettle   time.Duration
	RestartSettle time.Duration
}

// ConfigServer is the configuration-group control plane: it owns group CRUD,
// instance attachments, and the restart state machine.
type ConfigServer struct {
	store     store.Store
	registry  *registry.Registry
	publisher events.Publisher
	opts      Options

	// groupMu serializes mutations per configuration group id, so
	// concurrent edits of one group apply one at a time while different
	// groups proceed in parallel.
	mu      sync.Mutex
	groupMu map[string]*sync.Mutex

	// settle schedules the async status transitions (BUILD or REBOOT to
	// ACTIVE). Tests replace it to run transitions deterministically.
	settle func(d time.Duration, fn func())
}

// NewConfigServer returns a new ConfigServer backed by the given store,
// registry, and publisher.
func NewConfigServer(s store.Store, reg *registry.Registry, p events.Publisher, opts Options) *ConfigServer {
	if opts.DefaultDatastore == "" {
		opts.DefaultDatastore = "mysql"
	}
	if opts.DefaultVersion == "" {
		opts.DefaultVersion = "5.6"
	}
	return &ConfigServer{
		store:     s,
		registry:  reg,
		publisher: p,
		opts:      opts,
		groupMu:   make(map[string]*sync.Mutex),
		settle: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// lockGroup takes the per-group mutation lock and returns the unlock func.
func (s *ConfigServer) lockGroup(id string) func() {
	s.mu.Lock()
	m, ok := s.groupMu[id]
	if !ok {
		m = &sync.Mutex{}
		s.groupMu[id] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// publish emits an event; failures are logged but never block the caller.
func (s *ConfigServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }
