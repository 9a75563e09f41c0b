package meta

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redbco/tdmeta/pkg/collection"
)

const (
	objectStore     = "store"
	objectCollector = "collector"
	objectPoint     = "point"
)

// RegisterStore records store in the catalog and creates its backing
// database. When the database cannot be created the catalog row is removed
// again and a *RegisterError is returned; if that removal fails too the
// error is an *InconsistencyError.
func (c *Catalog) RegisterStore(ctx context.Context, store collection.Store) error {
	if store == nil {
		return newValidationError(ErrMissingReference, objectStore, "", "store is nil")
	}
	name := store.Name()
	if err := validateName(objectStore, name); err != nil {
		return err
	}
	if err := validateDescription(objectStore, name, store.Description()); err != nil {
		return err
	}
	if err := c.types.CheckStoreType(store.TypeTag()); err != nil {
		return err
	}
	if v, ok := store.(collection.Validator); ok {
		if err := v.Validate(); err != nil {
			kind := ErrInvalidStore
			if errors.Is(err, collection.ErrInvalidDatabaseName) {
				kind = ErrInvalidName
			}
			return newValidationError(kind, objectStore, name, err.Error())
		}
	}

	unlock := registrations.lock(c.registrationKey(objectStore, name))
	defer unlock()

	if err := c.checkDuplicate(ctx, objectStore, name, storeTable, eq(colStoreName, name)); err != nil {
		return err
	}

	child := storeTable.childTable(name)
	insert := insertSQL(storeTable, child,
		[]string{quote(name), quote(store.TypeTag()), quote(store.Description())},
		[]string{c.millis(), "0", "0", "0", "0"})

	return c.register(ctx, objectStore, name,
		SagaStep{
			Name: "insert catalog row",
			Do:   func(ctx context.Context) error { return c.exec(ctx, "insert store "+name, insert) },
			Undo: func(ctx context.Context) error { return c.dropChild(ctx, child) },
		},
		SagaStep{
			Name: "create backing database",
			Do:   func(ctx context.Context) error { return store.CreateBackingDatabase(ctx, c.conn) },
		},
	)
}

// RegisterCollector records collector in the catalog. The collector's tag
// and data fields are checked but not stored: its type rebuilds them.
func (c *Catalog) RegisterCollector(ctx context.Context, collector collection.Collector) error {
	if collector == nil {
		return newValidationError(ErrMissingReference, objectCollector, "", "collector is nil")
	}
	name := collector.Name()
	if err := validateName(objectCollector, name); err != nil {
		return err
	}
	if err := validateDescription(objectCollector, name, collector.Description()); err != nil {
		return err
	}
	if err := collection.ValidateSchema(collector); err != nil {
		return newValidationError(ErrInvalidSchema, objectCollector, name, err.Error())
	}
	if err := c.types.CheckCollectorType(collector.TypeTag()); err != nil {
		return err
	}
	if err := c.checkRebuild(collector); err != nil {
		return err
	}

	unlock := registrations.lock(c.registrationKey(objectCollector, name))
	defer unlock()

	if err := c.checkDuplicate(ctx, objectCollector, name, collectorTable, eq(colCollectorName, name)); err != nil {
		return err
	}

	insert := insertSQL(collectorTable, collectorTable.childTable(name),
		[]string{quote(name), quote(collector.TypeTag()), quote(collector.Description())},
		[]string{c.millis(), "0", "0", "0", "NULL"})

	return c.register(ctx, objectCollector, name, SagaStep{
		Name: "insert catalog row",
		Do:   func(ctx context.Context) error { return c.exec(ctx, "insert collector "+name, insert) },
	})
}

// RegisterPoint records point under its Store and returns a copy carrying
// the new key. The argument is not modified.
func (c *Catalog) RegisterPoint(ctx context.Context, point collection.Point) (collection.Point, error) {
	if point == nil {
		return nil, newValidationError(ErrMissingReference, objectPoint, "", "point is nil")
	}
	name := point.Name()
	if err := validateName(objectPoint, name); err != nil {
		return nil, err
	}
	if err := validateDescription(objectPoint, name, point.Description()); err != nil {
		return nil, err
	}
	store, collector := point.Store(), point.Collector()
	if store == nil {
		return nil, newValidationError(ErrMissingReference, objectPoint, name, "no store")
	}
	if collector == nil {
		return nil, newValidationError(ErrMissingReference, objectPoint, name, "no collector")
	}
	if len(collector.Tags()) > 0 {
		for tag := range point.TagValues() {
			if !collection.HasTag(collector, tag) {
				return nil, newValidationError(ErrUnknownTag, objectPoint, name, fmt.Sprintf("%q on collector %q", tag, collector.Name()))
			}
		}
	}
	if err := c.types.CheckPointType(point.TypeTag()); err != nil {
		return nil, err
	}

	storeName, collectorName := store.Name(), collector.Name()
	if s, err := c.StoreInfo(ctx, storeName); err != nil {
		return nil, err
	} else if s == nil {
		return nil, newValidationError(ErrNotRegistered, objectPoint, name, fmt.Sprintf("store %q", storeName))
	}
	if col, err := c.CollectorInfo(ctx, collectorName); err != nil {
		return nil, err
	} else if col == nil {
		return nil, newValidationError(ErrNotRegistered, objectPoint, name, fmt.Sprintf("collector %q", collectorName))
	}

	unlock := registrations.lock(c.registrationKey(objectPoint, storeName, name))
	defer unlock()

	if err := c.checkDuplicate(ctx, objectPoint, name, pointTable, eq(colStore, storeName), eq(colPointName, name)); err != nil {
		return nil, err
	}

	key := c.newKey()
	insert := insertSQL(pointTable, pointTable.childTable(storeName, name),
		[]string{quote(name), quote(storeName), quote(collectorName), quote(key), quote(point.TypeTag()), quote(point.Description())},
		[]string{c.millis(), "0", "0", "NULL"})

	err := c.register(ctx, objectPoint, name, SagaStep{
		Name: "insert catalog row",
		Do:   func(ctx context.Context) error { return c.exec(ctx, "insert point "+name, insert) },
	})
	if err != nil {
		return nil, err
	}
	return point.WithKey(key), nil
}

// checkRebuild makes sure the collector's type rebuilds the same schema from
// name and description, since only those are stored.
func (c *Catalog) checkRebuild(collector collection.Collector) error {
	rebuilt, err := c.types.NewCollector(collector.TypeTag(), collector.Name(), collector.Description())
	if err != nil {
		return err
	}
	if !slices.Equal(rebuilt.Tags(), collector.Tags()) || !slices.Equal(rebuilt.Fields(), collector.Fields()) {
		return newValidationError(ErrInvalidSchema, objectCollector, collector.Name(),
			fmt.Sprintf("type %s does not rebuild the collector's tags and fields", collector.TypeTag()))
	}
	return nil
}

// checkDuplicate fails with ErrDuplicateName when a row of t matches where.
func (c *Catalog) checkDuplicate(ctx context.Context, object, name string, t systemTable, where ...string) error {
	res, err := c.query(ctx, "check "+object+" "+name, selectTagsSQL(t, where...))
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return newValidationError(ErrDuplicateName, object, name, "")
	}
	return nil
}

// register runs steps as a saga and maps its outcome to catalog errors.
func (c *Catalog) register(ctx context.Context, object, name string, steps ...SagaStep) error {
	saga := NewSaga(steps...)
	err := saga.Run(ctx)
	if err == nil {
		c.logger.Info("Registered %s %s in %s", object, name, c.db)
		return nil
	}

	var inconsistent *InconsistencyError
	if errors.As(err, &inconsistent) {
		inconsistent.Object = object
		inconsistent.Name = name
		c.logger.Error("Registration of %s %s left the catalog inconsistent: %v", object, name, inconsistent)
		return inconsistent
	}
	if saga.State() == SagaCompensated && len(saga.Completed()) > 0 {
		c.logger.Warn("Registration of %s %s rolled back after %q failed: %v", object, name, saga.FailedStep(), err)
	}
	return &RegisterError{Object: object, Name: name, Step: saga.FailedStep(), Cause: err}
}

func (c *Catalog) dropChild(ctx context.Context, child string) error {
	return c.exec(ctx, "drop "+child, "DROP TABLE IF EXISTS "+quoteIdent(child))
}

func (c *Catalog) millis() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}
