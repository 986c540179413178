// Package cimorm is the entry point for working with CIM datasets: parsing
// RDF/XML into a database, loading stored datasets, describing schema
// elements, linting and exporting.
package cimorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/logger"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/migration"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfs"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/source"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/telemetry"
)

// Parse reads the CIM RDF/XML files found at paths into a fresh database and
// returns the resulting dataset. An existing database of the backend is
// dropped first.
func Parse(ctx context.Context, paths []string, opts ...Option) (ds *Dataset, err error) {
	o := newOptions(opts)
	log := logger.ForOperation(ctx, o.logger, "parse")
	start := time.Now()
	defer func() { o.metrics.ObserveOperation("parse", start, err) }()
	ctx, span := o.tracing.StartSpan(ctx, "cimorm.parse")
	defer func() { telemetry.EndSpan(span, err) }()

	files, err := source.ParseableFiles(paths...)
	if err != nil {
		return nil, err
	}
	sources, err := source.ReadAll(ctx, files)
	if err != nil {
		return nil, err
	}
	version, err := source.CIMVersion(sources, log)
	if err != nil {
		return nil, err
	}
	s, err := rdfs.NewLoader(o.schemaRoot, rdfs.WithLogger(log)).Load(ctx, version, o.profiles)
	if err != nil {
		return nil, err
	}

	if o.backend == nil {
		o.backend = persistence.NewSQLite("", paths...)
	}
	db, err := persistence.Reset(ctx, o.backend, o.dbOptions()...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	if err := prepare(ctx, db, s, o, log); err != nil {
		return nil, err
	}

	ds = newDataset(s, db, o)
	infos := make([]*dataset.SourceInfo, 0, len(sources))
	for _, src := range sources {
		infos = append(infos, src.Info)
	}
	if err := ds.store.SaveSources(ctx, infos); err != nil {
		return nil, err
	}

	objects, err := source.NewParser(s, source.Namespaces(sources, log), source.WithLogger(log)).Parse(sources)
	if err != nil {
		return nil, err
	}
	err = db.Transaction(ctx, func(tx *gorm.DB) error {
		return ds.store.WithTx(tx).Insert(ctx, objects)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store objects: %w", err)
	}

	o.metrics.AddObjects("parse", len(objects))
	log.Info("Parsed dataset",
		zap.Stringer("backend", o.backend),
		zap.String("version", version),
		zap.Int("files", len(files)),
		zap.Int("objects", len(objects)),
		zap.Duration("elapsed", time.Since(start)))
	return ds, nil
}

// prepare creates the metadata tables, stores the schema and generates the
// class tables.
func prepare(ctx context.Context, db *persistence.Database, s *schema.Schema, o *options, log *zap.Logger) error {
	if err := o.instrument(db, log); err != nil {
		return err
	}
	if err := Migrate(ctx, db, log); err != nil {
		return err
	}
	if err := persistence.NewSchemaRepository(db.DB).Save(ctx, s); err != nil {
		return err
	}
	return persistence.NewTableGenerator(db.Dialect, log).Generate(ctx, db.DB, s)
}

// Migrate brings the metadata tables of db up to date.
func Migrate(_ context.Context, db *persistence.Database, log *zap.Logger) error {
	m, err := newMigrator(db, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func newMigrator(db *persistence.Database, log *zap.Logger) (*migration.Migrator, error) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return migration.New(sqlDB, string(db.Dialect), log)
}

// Load opens a dataset previously written by Parse or CreateEmptyDataset.
func Load(ctx context.Context, b persistence.Backend, opts ...Option) (ds *Dataset, err error) {
	o := newOptions(opts)
	log := logger.ForOperation(ctx, o.logger, "load")
	start := time.Now()
	defer func() { o.metrics.ObserveOperation("load", start, err) }()
	ctx, span := o.tracing.StartSpan(ctx, "cimorm.load")
	defer func() { telemetry.EndSpan(span, err) }()

	if b == nil {
		return nil, shared.Wrap(shared.ErrInvalidInput, "no backend given")
	}
	db, err := persistence.Open(ctx, b, o.dbOptions()...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	m, err := newMigrator(db, log)
	if err != nil {
		return nil, err
	}
	version, dirty, err := m.Version()
	_ = m.Close()
	switch {
	case err != nil:
		return nil, err
	case version == 0:
		return nil, shared.Wrap(shared.ErrNotFound, "%s holds no dataset", b)
	case dirty:
		return nil, shared.Wrap(shared.ErrInvalidState, "%s has a dirty migration at version %d", b, version)
	}

	s, err := persistence.NewSchemaRepository(db.DB).Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.instrument(db, log); err != nil {
		return nil, err
	}

	log.Info("Loaded dataset",
		zap.Stringer("backend", b),
		zap.String("version", s.Version),
		zap.Int("classes", len(s.Classes())))
	return newDataset(s, db, o), nil
}

// CreateEmptyDataset creates a dataset with the tables of a CIM version but
// no objects. WithProfiles restricts the schema to a profile whitelist.
func CreateEmptyDataset(ctx context.Context, version string, opts ...Option) (ds *Dataset, err error) {
	o := newOptions(opts)
	log := logger.ForOperation(ctx, o.logger, "create")
	start := time.Now()
	defer func() { o.metrics.ObserveOperation("create", start, err) }()
	ctx, span := o.tracing.StartSpan(ctx, "cimorm.create", attribute.String("cim.version", version))
	defer func() { telemetry.EndSpan(span, err) }()

	s, err := rdfs.NewLoader(o.schemaRoot, rdfs.WithLogger(log)).Load(ctx, version, o.profiles)
	if err != nil {
		return nil, err
	}
	if o.backend == nil {
		o.backend = persistence.InMemory{}
	}
	db, err := persistence.Reset(ctx, o.backend, o.dbOptions()...)
	if err != nil {
		return nil, err
	}
	if err := prepare(ctx, db, s, o, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Created empty dataset",
		zap.Stringer("backend", o.backend),
		zap.String("version", version),
		zap.Int("profiles", len(s.Profiles())))
	return newDataset(s, db, o), nil
}

// LoadSchema reads the RDFS schema of a CIM version from the schema root.
func LoadSchema(ctx context.Context, version string, opts ...Option) (*schema.Schema, error) {
	o := newOptions(opts)
	return rdfs.NewLoader(o.schemaRoot, rdfs.WithLogger(o.logger)).Load(ctx, version, o.profiles)
}

// Describe renders a class, enumeration or datatype of s in the given format
// (table, markdown, json or yaml).
func Describe(s *schema.Schema, element, format string) (string, error) {
	if s == nil {
		return "", shared.Wrap(shared.ErrInvalidInput, "no schema given")
	}
	f, err := schema.ParseFormat(format)
	if err != nil {
		return "", err
	}
	return s.Describe(element, f)
}

// Configure stores the schema and dataset roots in the configuration file
// and returns its path. An empty file selects the default location.
func Configure(file, schemaRoot, datasetRoot string) (string, error) {
	if schemaRoot == "" && datasetRoot == "" {
		return "", shared.Wrap(shared.ErrInvalidInput, "neither schema nor dataset root given")
	}
	return config.Configure(file, schemaRoot, datasetRoot)
}

// BackendFromConfig builds the configured backend. A relative SQLite path is
// placed next to the dataset at paths.
func BackendFromConfig(cfg config.DatabaseConfig, paths ...string) (persistence.Backend, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return persistence.NewSQLite(cfg.Path, paths...), nil
	case "memory":
		return persistence.InMemory{}, nil
	default:
		b, err := persistence.NewClientServer(cfg.Backend, cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// IsNotFound reports whether err means a missing class, object or dataset.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
