package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ConfigurationGroup is a named bundle of datastore tuning parameter values,
// owned by exactly one tenant and scoped to one datastore version.
type ConfigurationGroup struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	Tenant               string         `json:"-"`
	DatastoreName        string         `json:"datastore_name"`
	DatastoreVersionID   string         `json:"datastore_version_id"`
	DatastoreVersionName string         `json:"datastore_version_name"`
	Values               map[string]any `json:"values"`
	Created              Timestamp      `json:"created"`
	Updated              Timestamp      `json:"updated"`

	// InstanceCount is the number of live attachments. Populated by
	// queries, not stored on the configurations table.
	InstanceCount int `json:"instance_count"`
}

// ParseValues decodes a raw JSON object into a value set. Numbers are kept
// as json.Number so integer bounds can be checked without float rounding.
func ParseValues(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("values must be a JSON object: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// MergeValues returns a copy of base with every key from patch applied on
// top. New keys are appended, existing keys overwritten; base is not
// modified.
func MergeValues(base, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// ChangedKeys returns the set of keys whose value differs between old and
// new, including keys present on only one side.
func ChangedKeys(oldValues, newValues map[string]any) []string {
	var changed []string
	for k, nv := range newValues {
		ov, ok := oldValues[k]
		if !ok || !valueEqual(ov, nv) {
			changed = append(changed, k)
		}
	}
	for k := range oldValues {
		if _, ok := newValues[k]; !ok {
			changed = append(changed, k)
		}
	}
	return changed
}

// valueEqual compares two decoded JSON values by canonical re-encoding, so
// json.Number and plain numeric decodings of the same literal compare equal.
func valueEqual(a, b any) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
