// Package mpostgres owns the primary/replica postgres connection pool and
// runs schema migrations at startup, mirroring the teacher's
// common/mpostgres package.
package mpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/Lucasschwertz/procurement-core/pkg/dbtx"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// Connection is a hub dealing with postgres connections. Replica support
// is carried for idiom fidelity with the teacher even though this module
// only requires a single primary today — a future read-heavy reporting
// path can add a replica DSN without changing any repository code.
type Connection struct {
	ConnectionStringPrimary string
	ConnectionStringReplica string
	PrimaryDBName           string
	MigrationsPath          string
	ConnectionDB            *dbresolver.DB
	primaryDB               *sql.DB
	Connected               bool
	Logger                  mlog.Logger
}

// Connect opens the primary (and, if configured, replica) pool, runs
// pending migrations against the primary, and pings to confirm liveness.
func (c *Connection) Connect(ctx context.Context) error {
	logger := c.logger()

	dbPrimary, err := sql.Open("pgx", c.ConnectionStringPrimary)
	if err != nil {
		return fmt.Errorf("open primary connection: %w", err)
	}

	replicaDSN := c.ConnectionStringReplica
	if replicaDSN == "" {
		replicaDSN = c.ConnectionStringPrimary
	}

	dbReplica, err := sql.Open("pgx", replicaDSN)
	if err != nil {
		return fmt.Errorf("open replica connection: %w", err)
	}

	connectionDB := dbresolver.New(
		dbresolver.WithPrimaryDBs(dbPrimary),
		dbresolver.WithReplicaDBs(dbReplica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB))

	if c.MigrationsPath != "" {
		if err := c.migrate(dbPrimary); err != nil {
			return err
		}
	}

	if err := connectionDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	c.Connected = true
	c.ConnectionDB = &connectionDB
	c.primaryDB = dbPrimary

	logger.Info("connected to postgres")

	return nil
}

func (c *Connection) migrate(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.PrimaryDBName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("build migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+c.MigrationsPath, c.PrimaryDBName, driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// GetDB returns the load-balanced primary/replica pool handle, connecting
// lazily if needed. Read-mostly callers that never need to participate in
// a pkg/dbtx transaction may use this directly.
func (c *Connection) GetDB(ctx context.Context) (dbresolver.DB, error) {
	if c.ConnectionDB == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return *c.ConnectionDB, nil
}

// GetPrimaryDB returns the raw primary *sql.DB, connecting lazily if
// needed. C3 repositories use this so pkg/dbtx.GetExecutor can transparently
// substitute the request's in-flight transaction when one is present.
func (c *Connection) GetPrimaryDB(ctx context.Context) (*sql.DB, error) {
	if c.ConnectionDB == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.primaryDB, nil
}

// GetExecutor returns the tenant repository's query executor: the
// request's in-flight transaction from ctx when pkg/dbtx.RunInTransaction
// put one there, or the raw primary pool otherwise. Every C3 repository
// method goes through this instead of GetPrimaryDB directly, so a single
// C4 use-case's repository calls transparently share one transaction.
func (c *Connection) GetExecutor(ctx context.Context) (dbtx.Executor, error) {
	db, err := c.GetPrimaryDB(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

func (c *Connection) logger() mlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return mlog.NoneLogger{}
}
