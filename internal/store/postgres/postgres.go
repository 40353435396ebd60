// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/khanhct/trove/internal/model"
	"github.com/khanhct/trove/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateConfiguration(ctx context.Context, group *model.ConfigurationGroup) error {
	return queryCreateConfiguration(ctx, s.db, group)
}

func (s *PostgresStore) GetConfiguration(ctx context.Context, tenant, id string) (*model.ConfigurationGroup, error) {
	return queryGetConfiguration(ctx, s.db, tenant, id)
}

func (s *PostgresStore) ListConfigurations(ctx context.Context, tenant string) ([]*model.ConfigurationGroup, error) {
	return queryListConfigurations(ctx, s.db, tenant)
}

func (s *PostgresStore) ListAllConfigurations(ctx context.Context) ([]*model.ConfigurationGroup, error) {
	return queryListAllConfigurations(ctx, s.db)
}

func (s *PostgresStore) ListAllInstances(ctx context.Context) ([]*model.Instance, error) {
	return queryListAllInstances(ctx, s.db)
}

func (s *PostgresStore) UpdateConfiguration(ctx context.Context, group *model.ConfigurationGroup) error {
	return queryUpdateConfiguration(ctx, s.db, group)
}

func (s *PostgresStore) DeleteConfiguration(ctx context.Context, tenant, id string) error {
	return queryDeleteConfiguration(ctx, s.db, tenant, id)
}

func (s *PostgresStore) CountAttachedInstances(ctx context.Context, configurationID string) (int, error) {
	return queryCountAttachedInstances(ctx, s.db, configurationID)
}

func (s *PostgresStore) ListAttachedInstances(ctx context.Context, configurationID string) ([]*model.InstanceSummary, error) {
	return queryListAttachedInstances(ctx, s.db, configurationID)
}

func (s *PostgresStore) CreateInstance(ctx context.Context, inst *model.Instance) error {
	return queryCreateInstance(ctx, s.db, inst)
}

func (s *PostgresStore) GetInstance(ctx context.Context, tenant, id string) (*model.Instance, error) {
	return queryGetInstance(ctx, s.db, tenant, id)
}

func (s *PostgresStore) UpdateInstance(ctx context.Context, inst *model.Instance) error {
	return queryUpdateInstance(ctx, s.db, inst)
}

func (s *PostgresStore) TransitionInstanceStatus(ctx context.Context, id string, from, to model.InstanceStatus, updated model.Timestamp) error {
	return queryTransitionInstanceStatus(ctx, s.db, id, from, to, updated)
}

func (s *PostgresStore) DeleteInstance(ctx context.Context, tenant, id string) error {
	return queryDeleteInstance(ctx, s.db, tenant, id)
}

func (s *PostgresStore) UpsertDatastoreVersion(ctx context.Context, version *model.DatastoreVersion) error {
	return queryUpsertDatastoreVersion(ctx, s.db, version)
}

func (s *PostgresStore) GetDatastoreVersion(ctx context.Context, datastore, version string) (*model.DatastoreVersion, error) {
	return queryGetDatastoreVersion(ctx, s.db, datastore, version)
}

func (s *PostgresStore) GetDatastoreVersionByID(ctx context.Context, id string) (*model.DatastoreVersion, error) {
	return queryGetDatastoreVersionByID(ctx, s.db, id)
}

func (s *PostgresStore) UpsertParameter(ctx context.Context, param *model.ConfigurationParameter) error {
	return queryUpsertParameter(ctx, s.db, param)
}

func (s *PostgresStore) GetParameter(ctx context.Context, versionID, name string, includeDeleted bool) (*model.ConfigurationParameter, error) {
	return queryGetParameter(ctx, s.db, versionID, name, includeDeleted)
}

func (s *PostgresStore) ListParameters(ctx context.Context, versionID string, includeDeleted bool) ([]*model.ConfigurationParameter, error) {
	return queryListParameters(ctx, s.db, versionID, includeDeleted)
}

func (s *PostgresStore) SoftDeleteParameter(ctx context.Context, versionID, name string, deletedAt time.Time) error {
	return querySoftDeleteParameter(ctx, s.db, versionID, name, deletedAt)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateConfiguration(ctx context.Context, group *model.ConfigurationGroup) error {
	return queryCreateConfiguration(ctx, s.tx, group)
}

func (s *txStore) GetConfiguration(ctx context.Context, tenant, id string) (*model.ConfigurationGroup, error) {
	return queryGetConfiguration(ctx, s.tx, tenant, id)
}

func (s *txStore) ListConfigurations(ctx context.Context, tenant string) ([]*model.ConfigurationGroup, error) {
	return queryListConfigurations(ctx, s.tx, tenant)
}

func (s *txStore) ListAllConfigurations(ctx context.Context) ([]*model.ConfigurationGroup, error) {
	return queryListAllConfigurations(ctx, s.tx)
}

func (s *txStore) ListAllInstances(ctx context.Context) ([]*model.Instance, error) {
	return queryListAllInstances(ctx, s.tx)
}

func (s *txStore) UpdateConfiguration(ctx context.Context, group *model.ConfigurationGroup) error {
	return queryUpdateConfiguration(ctx, s.tx, group)
}

func (s *txStore) DeleteConfiguration(ctx context.Context, tenant, id string) error {
	return queryDeleteConfiguration(ctx, s.tx, tenant, id)
}

func (s *txStore) CountAttachedInstances(ctx context.Context, configurationID string) (int, error) {
	return queryCountAttachedInstances(ctx, s.tx, configurationID)
}

func (s *txStore) ListAttachedInstances(ctx context.Context, configurationID string) ([]*model.InstanceSummary, error) {
	return queryListAttachedInstances(ctx, s.tx, configurationID)
}

func (s *txStore) CreateInstance(ctx context.Context, inst *model.Instance) error {
	return queryCreateInstance(ctx, s.tx, inst)
}

func (s *txStore) GetInstance(ctx context.Context, tenant, id string) (*model.Instance, error) {
	return queryGetInstance(ctx, s.tx, tenant, id)
}

func (s *txStore) UpdateInstance(ctx context.Context, inst *model.Instance) error {
	return queryUpdateInstance(ctx, s.tx, inst)
}

func (s *txStore) TransitionInstanceStatus(ctx context.Context, id string, from, to model.InstanceStatus, updated model.Timestamp) error {
	return queryTransitionInstanceStatus(ctx, s.tx, id, from, to, updated)
}

func (s *txStore) DeleteInstance(ctx context.Context, tenant, id string) error {
	return queryDeleteInstance(ctx, s.tx, tenant, id)
}

func (s *txStore) UpsertDatastoreVersion(ctx context.Context, version *model.DatastoreVersion) error {
	return queryUpsertDatastoreVersion(ctx, s.tx, version)
}

func (s *txStore) GetDatastoreVersion(ctx context.Context, datastore, version string) (*model.DatastoreVersion, error) {
	return queryGetDatastoreVersion(ctx, s.tx, datastore, version)
}

func (s *txStore) GetDatastoreVersionByID(ctx context.Context, id string) (*model.DatastoreVersion, error) {
	return queryGetDatastoreVersionByID(ctx, s.tx, id)
}

func (s *txStore) UpsertParameter(ctx context.Context, param *model.ConfigurationParameter) error {
	return queryUpsertParameter(ctx, s.tx, param)
}

func (s *txStore) GetParameter(ctx context.Context, versionID, name string, includeDeleted bool) (*model.ConfigurationParameter, error) {
	return queryGetParameter(ctx, s.tx, versionID, name, includeDeleted)
}

func (s *txStore) ListParameters(ctx context.Context, versionID string, includeDeleted bool) ([]*model.ConfigurationParameter, error) {
	return queryListParameters(ctx, s.tx, versionID, includeDeleted)
}

func (s *txStore) SoftDeleteParameter(ctx context.Context, versionID, name string, deletedAt time.Time) error {
	return querySoftDeleteParameter(ctx, s.tx, versionID, name, deletedAt)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
