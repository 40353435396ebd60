package model

// InstanceStatus represents the lifecycle state of a database instance as
// seen by the configuration control plane.
type InstanceStatus string

const (
	StatusBuild           InstanceStatus = "BUILD"
	StatusActive          InstanceStatus = "ACTIVE"
	StatusRestartRequired InstanceStatus = "RESTART_REQUIRED"
	StatusReboot          InstanceStatus = "REBOOT"
	StatusShutdown        InstanceStatus = "SHUTDOWN"
	StatusError           InstanceStatus = "ERROR"
)

// String returns the string representation of the status.
func (s InstanceStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s InstanceStatus) IsValid() bool {
	switch s {
	case StatusBuild, StatusActive, StatusRestartRequired, StatusReboot, StatusShutdown, StatusError:
		return true
	}
	return false
}

// Stable reports whether configuration operations are accepted in this
// state. Attach and detach require a settled instance.
func (s InstanceStatus) Stable() bool {
	return s == StatusActive
}

// Link is a hypermedia reference on an API resource.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// ConfigurationSummary is the attached-configuration view embedded in an
// instance record.
type ConfigurationSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Links []Link `json:"links"`
}

// Instance is a database instance record. The control plane owns the
// configuration attachment and the RESTART_REQUIRED transition; compute
// provisioning happens elsewhere.
type Instance struct {
	ID                 string         `json:"id"`
	Tenant             string         `json:"-"`
	Name               string         `json:"name"`
	DatastoreName      string         `json:"datastore_name"`
	DatastoreVersionID string         `json:"datastore_version_id"`
	Status             InstanceStatus `json:"status"`
	Created            Timestamp      `json:"created"`
	Updated            Timestamp      `json:"updated"`

	// ConfigurationID is the live attachment, nil when unconfigured.
	// At most one configuration may be attached to an instance.
	ConfigurationID *string `json:"-"`

	// Configuration is the summary view of the attachment. Populated by
	// queries from ConfigurationID.
	Configuration *ConfigurationSummary `json:"configuration,omitempty"`
}

// Attached reports whether the instance has a live configuration link.
func (i *Instance) Attached() bool {
	return i.ConfigurationID != nil && *i.ConfigurationID != ""
}

// InstanceSummary is the short form returned when listing the instances
// attached to a configuration group.
type InstanceSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
