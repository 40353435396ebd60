package model

import "time"

// DataType classifies the value a configuration parameter accepts.
type DataType string

const (
	TypeInteger DataType = "integer"
	TypeString  DataType = "string"
	TypeBoolean DataType = "boolean"
)

// String returns the string representation of the data type.
func (t DataType) String() string {
	return string(t)
}

// IsValid checks whether the data type is a known value.
func (t DataType) IsValid() bool {
	switch t {
	case TypeInteger, TypeString, TypeBoolean:
		return true
	}
	return false
}

// ConfigurationParameter is one entry in the per-datastore-version schema
// catalog. Identity is (datastore_version_id, name).
type ConfigurationParameter struct {
	Name               string     `json:"name"`
	DatastoreVersionID string     `json:"datastore_version_id"`
	Type               DataType   `json:"type"`
	Min                *int64     `json:"min,omitempty"`
	Max                *int64     `json:"max,omitempty"`
	RestartRequired    bool       `json:"restart_required"`
	Deleted            bool       `json:"deleted"`
	DeletedAt          *time.Time `json:"deleted_at"`
}

// DatastoreVersion scopes a parameter catalog and the configuration groups
// that reference it.
type DatastoreVersion struct {
	ID            string `json:"id"`
	DatastoreName string `json:"datastore_name"`
	Name          string `json:"name"`
}
