package meta

import (
	"context"
	"fmt"

	"github.com/redbco/tdmeta/pkg/connector"
)

// InitOutcome reports what Init did.
type InitOutcome int

const (
	// InitAborted means the presence check itself failed; nothing was changed.
	InitAborted InitOutcome = iota
	InitCreated
	InitExisting
	InitReset
	InitDatabaseFailed
	InitTablesFailed
)

func (o InitOutcome) String() string {
	switch o {
	case InitAborted:
		return "aborted"
	case InitCreated:
		return "created"
	case InitExisting:
		return "existing"
	case InitReset:
		return "reset"
	case InitDatabaseFailed:
		return "database-failed"
	case InitTablesFailed:
		return "tables-failed"
	default:
		return fmt.Sprintf("InitOutcome(%d)", int(o))
	}
}

// Exists reports whether the catalog database is present. Engine errors read
// as absent; local failures such as an unreachable engine are returned.
func (c *Catalog) Exists(ctx context.Context) (bool, error) {
	res := c.conn.Execute(ctx, "", "USE "+c.db)
	if !res.HasError() {
		return true, nil
	}
	if res.ErrorCode() < 0 {
		return false, connector.ResultError("check catalog database", res)
	}
	return false, nil
}

// Init creates the catalog database and its system tables. An existing
// catalog keeps its rows unless reset is set, in which case it is dropped and
// created again.
//
// When a system table cannot be created the database stays behind with the
// tables created so far; running Init again creates the missing ones.
func (c *Catalog) Init(ctx context.Context, reset bool) (InitOutcome, error) {
	exists, err := c.Exists(ctx)
	if err != nil {
		c.logger.Error("Catalog presence check on %s failed: %v", c.db, err)
		return InitAborted, err
	}

	outcome := InitCreated
	if exists {
		if !reset {
			if err := c.createSystemTables(ctx); err != nil {
				return InitTablesFailed, err
			}
			c.logger.Info("Catalog database %s already present", c.db)
			return InitExisting, nil
		}
		if err := c.dropDatabase(ctx); err != nil {
			return InitDatabaseFailed, fmt.Errorf("%w: %w", ErrCreateCatalogDatabase, err)
		}
		outcome = InitReset
	}

	ddl := fmt.Sprintf("CREATE DATABASE %s %s", c.db, DatabaseOptions)
	if err := connector.ResultError("create catalog database", c.conn.Execute(ctx, "", ddl)); err != nil {
		c.logger.Error("Could not create catalog database %s: %v", c.db, err)
		return InitDatabaseFailed, fmt.Errorf("%w: %w", ErrCreateCatalogDatabase, err)
	}

	if err := c.createSystemTables(ctx); err != nil {
		return InitTablesFailed, err
	}

	c.logger.Info("Catalog database %s initialized (%s)", c.db, outcome)
	return outcome, nil
}

func (c *Catalog) createSystemTables(ctx context.Context) error {
	for _, t := range systemTables {
		if err := c.exec(ctx, "create "+t.name, t.ddl()); err != nil {
			c.logger.Error("Could not create system table %s.%s: %v", c.db, t.name, err)
			return fmt.Errorf("%w: %w", ErrCreateSystemTables, err)
		}
	}
	return nil
}

// DropCatalog removes the catalog database with every registration and
// statistics row. Store databases are not touched.
func (c *Catalog) DropCatalog(ctx context.Context) error {
	if err := c.dropDatabase(ctx); err != nil {
		return err
	}
	c.logger.Warn("Catalog database %s dropped", c.db)
	return nil
}

func (c *Catalog) dropDatabase(ctx context.Context) error {
	return connector.ResultError("drop catalog database", c.conn.Execute(ctx, "", "DROP DATABASE IF EXISTS "+c.db))
}
