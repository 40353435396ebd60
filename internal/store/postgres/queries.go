package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/khanhct/trove/internal/model"
)

// configColumns is the column list used for SELECT statements on the
// configurations table, joined with datastore_versions and an attached
// instance count.
const configColumns = `c.id, c.tenant, c.name, c.description,
	c.datastore_version_id, v.datastore_name, v.name,
	c.config_values, c.created, c.updated,
	(SELECT COUNT(*) FROM instances i WHERE i.configuration_id = c.id)`

const configFrom = ` FROM configurations c
	JOIN datastore_versions v ON v.id = c.datastore_version_id`

// instanceColumns is the column list for SELECT statements on the instances
// table, joined with datastore_versions.
const instanceColumns = `i.id, i.tenant, i.name, i.datastore_version_id,
	v.datastore_name, i.status, i.configuration_id, i.created, i.updated`

const instanceFrom = ` FROM instances i
	JOIN datastore_versions v ON v.id = i.datastore_version_id`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateConfiguration(ctx context.Context, db executor, g *model.ConfigurationGroup) error {
	values, err := json.Marshal(g.Values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO configurations (
			id, tenant, name, description, datastore_version_id,
			config_values, created, updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		g.ID,
		g.Tenant,
		g.Name,
		g.Description,
		g.DatastoreVersionID,
		values,
		g.Created.Time(),
		g.Updated.Time(),
	)
	return err
}

func queryGetConfiguration(ctx context.Context, db executor, tenant, id string) (*model.ConfigurationGroup, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+configColumns+configFrom+` WHERE c.id = $1 AND c.tenant = $2`,
		id, tenant)
	return scanConfiguration(row)
}

func queryListConfigurations(ctx context.Context, db executor, tenant string) ([]*model.ConfigurationGroup, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+configColumns+configFrom+` WHERE c.tenant = $1 ORDER BY c.created, c.id`,
		tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*model.ConfigurationGroup
	for rows.Next() {
		g, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func queryListAllConfigurations(ctx context.Context, db executor) ([]*model.ConfigurationGroup, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+configColumns+configFrom+` ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*model.ConfigurationGroup
	for rows.Next() {
		g, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func queryListAllInstances(ctx context.Context, db executor) ([]*model.Instance, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+instanceColumns+instanceFrom+` ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*model.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

func queryUpdateConfiguration(ctx context.Context, db executor, g *model.ConfigurationGroup) error {
	values, err := json.Marshal(g.Values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE configurations
		SET name = $3, description = $4, config_values = $5, updated = $6
		WHERE id = $1 AND tenant = $2`,
		g.ID, g.Tenant, g.Name, g.Description, values, g.Updated.Time(),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryDeleteConfiguration(ctx context.Context, db executor, tenant, id string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM configurations WHERE id = $1 AND tenant = $2`, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryCountAttachedInstances(ctx context.Context, db executor, configurationID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM instances WHERE configuration_id = $1`,
		configurationID).Scan(&count)
	return count, err
}

func queryListAttachedInstances(ctx context.Context, db executor, configurationID string) ([]*model.InstanceSummary, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name FROM instances WHERE configuration_id = $1 ORDER BY id`,
		configurationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*model.InstanceSummary
	for rows.Next() {
		var s model.InstanceSummary
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func queryCreateInstance(ctx context.Context, db executor, inst *model.Instance) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO instances (
			id, tenant, name, datastore_version_id, status,
			configuration_id, created, updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inst.ID,
		inst.Tenant,
		inst.Name,
		inst.DatastoreVersionID,
		string(inst.Status),
		nullStringPtr(inst.ConfigurationID),
		inst.Created.Time(),
		inst.Updated.Time(),
	)
	return err
}

func queryGetInstance(ctx context.Context, db executor, tenant, id string) (*model.Instance, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+instanceFrom+` WHERE i.id = $1 AND i.tenant = $2`,
		id, tenant)
	return scanInstance(row)
}

func queryUpdateInstance(ctx context.Context, db executor, inst *model.Instance) error {
	res, err := db.ExecContext(ctx, `
		UPDATE instances
		SET name = $3, status = $4, configuration_id = $5, updated = $6
		WHERE id = $1 AND tenant = $2`,
		inst.ID,
		inst.Tenant,
		inst.Name,
		string(inst.Status),
		nullStringPtr(inst.ConfigurationID),
		inst.Updated.Time(),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryTransitionInstanceStatus(ctx context.Context, db executor, id string, from, to model.InstanceStatus, updated model.Timestamp) error {
	res, err := db.ExecContext(ctx, `
		UPDATE instances SET status = $3, updated = $4
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), updated.Time(),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryDeleteInstance(ctx context.Context, db executor, tenant, id string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM instances WHERE id = $1 AND tenant = $2`, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryUpsertDatastoreVersion(ctx context.Context, db executor, v *model.DatastoreVersion) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO datastore_versions (id, datastore_name, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (datastore_name, name) DO NOTHING`,
		v.ID, v.DatastoreName, v.Name,
	)
	return err
}

func queryGetDatastoreVersion(ctx context.Context, db executor, datastore, version string) (*model.DatastoreVersion, error) {
	var v model.DatastoreVersion
	err := db.QueryRowContext(ctx, `
		SELECT id, datastore_name, name FROM datastore_versions
		WHERE datastore_name = $1 AND name = $2`,
		datastore, version).Scan(&v.ID, &v.DatastoreName, &v.Name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func queryGetDatastoreVersionByID(ctx context.Context, db executor, id string) (*model.DatastoreVersion, error) {
	var v model.DatastoreVersion
	err := db.QueryRowContext(ctx, `
		SELECT id, datastore_name, name FROM datastore_versions WHERE id = $1`,
		id).Scan(&v.ID, &v.DatastoreName, &v.Name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parameterColumns is the column list for SELECT statements on the
// configuration_parameters table.
const parameterColumns = `datastore_version_id, name, data_type,
	min_value, max_value, restart_required, deleted, deleted_at`

func queryUpsertParameter(ctx context.Context, db executor, p *model.ConfigurationParameter) error {
	// An upsert on an existing row also undeletes it; re-adding a
	// soft-deleted parameter restores it with fresh metadata.
	_, err := db.ExecContext(ctx, `
		INSERT INTO configuration_parameters (
			datastore_version_id, name, data_type, min_value, max_value,
			restart_required, deleted, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, FALSE, NULL)
		ON CONFLICT (datastore_version_id, name) DO UPDATE
		SET data_type = EXCLUDED.data_type,
			min_value = EXCLUDED.min_value,
			max_value = EXCLUDED.max_value,
			restart_required = EXCLUDED.restart_required,
			deleted = FALSE,
			deleted_at = NULL`,
		p.DatastoreVersionID,
		p.Name,
		string(p.Type),
		nullInt64Ptr(p.Min),
		nullInt64Ptr(p.Max),
		p.RestartRequired,
	)
	return err
}

func queryGetParameter(ctx context.Context, db executor, versionID, name string, includeDeleted bool) (*model.ConfigurationParameter, error) {
	q := `SELECT ` + parameterColumns + ` FROM configuration_parameters
		WHERE datastore_version_id = $1 AND name = $2`
	if !includeDeleted {
		q += ` AND NOT deleted`
	}
	return scanParameter(db.QueryRowContext(ctx, q, versionID, name))
}

func queryListParameters(ctx context.Context, db executor, versionID string, includeDeleted bool) ([]*model.ConfigurationParameter, error) {
	q := `SELECT ` + parameterColumns + ` FROM configuration_parameters
		WHERE datastore_version_id = $1`
	if !includeDeleted {
		q += ` AND NOT deleted`
	}
	q += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, q, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var params []*model.ConfigurationParameter
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

func querySoftDeleteParameter(ctx context.Context, db executor, versionID, name string, deletedAt time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE configuration_parameters
		SET deleted = TRUE, deleted_at = $3
		WHERE datastore_version_id = $1 AND name = $2 AND NOT deleted`,
		versionID, name, deletedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts a zero-rows-affected result into sql.ErrNoRows so
// callers get one "not found" signal for both lookups and mutations.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
