package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/khanhct/trove/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version            string    `json:"version"`
	Type               string    `json:"type"`
	Timestamp          time.Time `json:"timestamp"`
	ConfigurationCount int       `json:"configuration_count"`
	InstanceCount      int       `json:"instance_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ExportJSONL writes every configuration group and instance from the store as
// JSONL to w. The export crosses tenant boundaries and is meant for operator
// backups, never for tenant-facing output.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	groups, err := s.ListAllConfigurations(ctx)
	if err != nil {
		return fmt.Errorf("list configurations: %w", err)
	}

	instances, err := s.ListAllInstances(ctx)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:            "1",
		Type:               "header",
		Timestamp:          time.Now().UTC(),
		ConfigurationCount: len(groups),
		InstanceCount:      len(instances),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, g := range groups {
		if err := enc.Encode(record{Type: "configuration", Data: g}); err != nil {
			return fmt.Errorf("encode configuration %s: %w", g.ID, err)
		}
	}

	for _, inst := range instances {
		if err := enc.Encode(record{Type: "instance", Data: inst}); err != nil {
			return fmt.Errorf("encode instance %s: %w", inst.ID, err)
		}
	}

	return nil
}
