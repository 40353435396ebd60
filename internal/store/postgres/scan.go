package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/khanhct/trove/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanConfiguration scans a single row into a model.ConfigurationGroup.
// The row must contain columns in the order defined by configColumns.
func scanConfiguration(row scannable) (*model.ConfigurationGroup, error) {
	var g model.ConfigurationGroup
	var (
		description sql.NullString
		values      []byte
		created     time.Time
		updated     time.Time
	)

	err := row.Scan(
		&g.ID,
		&g.Tenant,
		&g.Name,
		&description,
		&g.DatastoreVersionID,
		&g.DatastoreName,
		&g.DatastoreVersionName,
		&values,
		&created,
		&updated,
		&g.InstanceCount,
	)
	if err != nil {
		return nil, err
	}

	g.Description = description.String
	g.Created = model.NewTimestamp(created)
	g.Updated = model.NewTimestamp(updated)

	g.Values, err = model.ParseValues(json.RawMessage(values))
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// scanInstance scans a single row into a model.Instance.
// The row must contain columns in the order defined by instanceColumns.
func scanInstance(row scannable) (*model.Instance, error) {
	var inst model.Instance
	var (
		configurationID sql.NullString
		created         time.Time
		updated         time.Time
	)

	err := row.Scan(
		&inst.ID,
		&inst.Tenant,
		&inst.Name,
		&inst.DatastoreVersionID,
		&inst.DatastoreName,
		&inst.Status,
		&configurationID,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	if configurationID.Valid {
		id := configurationID.String
		inst.ConfigurationID = &id
	}
	inst.Created = model.NewTimestamp(created)
	inst.Updated = model.NewTimestamp(updated)
	return &inst, nil
}

// scanParameter scans a single row into a model.ConfigurationParameter.
// The row must contain columns in the order defined by parameterColumns.
func scanParameter(row scannable) (*model.ConfigurationParameter, error) {
	var p model.ConfigurationParameter
	var (
		minValue  sql.NullInt64
		maxValue  sql.NullInt64
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&p.DatastoreVersionID,
		&p.Name,
		&p.Type,
		&minValue,
		&maxValue,
		&p.RestartRequired,
		&p.Deleted,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if minValue.Valid {
		v := minValue.Int64
		p.Min = &v
	}
	if maxValue.Valid {
		v := maxValue.Int64
		p.Max = &v
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

// nullStringPtr converts a *string to sql.NullString (nil or empty = NULL).
func nullStringPtr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullInt64Ptr converts a *int64 to sql.NullInt64 (nil = NULL).
func nullInt64Ptr(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
