package cimorm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/lint"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/cache"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/serializer"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/telemetry"
)

// Dataset is a CIM dataset stored in a database together with its schema.
// Added objects are pending until Commit. A Dataset is not safe for
// concurrent mutation; reads may run concurrently.
type Dataset struct {
	schema  *schema.Schema
	db      *persistence.Database
	store   *persistence.ObjectStore
	pending []*dataset.Object
	closed  bool

	logger   *zap.Logger
	metrics  *telemetry.Metrics
	tracing  *telemetry.TracerProvider
	cache    cache.Cache
	cacheTTL time.Duration
}

func newDataset(s *schema.Schema, db *persistence.Database, o *options) *Dataset {
	return &Dataset{
		schema:   s,
		db:       db,
		store:    persistence.NewObjectStore(db.DB, db.Dialect, s),
		logger:   o.logger,
		metrics:  o.metrics,
		tracing:  o.tracing,
		cache:    o.cache,
		cacheTTL: o.cacheTTL,
	}
}

// Schema returns the dataset's schema.
func (d *Dataset) Schema() *schema.Schema {
	return d.schema
}

// Database returns the underlying database.
func (d *Dataset) Database() *persistence.Database {
	return d.db
}

// Store returns the object store of the dataset.
func (d *Dataset) Store() *persistence.ObjectStore {
	return d.store
}

// Backend returns the database the dataset is stored in.
func (d *Dataset) Backend() persistence.Backend {
	return d.db.Backend
}

// Ping checks that the database is reachable.
func (d *Dataset) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

// Add validates obj against the schema and queues it for the next Commit.
func (d *Dataset) Add(obj *dataset.Object) error {
	if obj == nil {
		return shared.Wrap(shared.ErrInvalidInput, "nil object")
	}
	if _, err := obj.Validate(d.schema); err != nil {
		return err
	}
	d.pending = append(d.pending, obj)
	return nil
}

// AddAll adds objects in order. Nothing is queued if one of them is invalid.
func (d *Dataset) AddAll(objects ...*dataset.Object) error {
	for _, obj := range objects {
		if obj == nil {
			return shared.Wrap(shared.ErrInvalidInput, "nil object")
		}
		if _, err := obj.Validate(d.schema); err != nil {
			return err
		}
	}
	d.pending = append(d.pending, objects...)
	return nil
}

// Pending returns the number of objects waiting for Commit.
func (d *Dataset) Pending() int {
	return len(d.pending)
}

// Commit writes the pending objects in one transaction. On failure the
// pending objects are kept so that the caller may fix or roll them back.
func (d *Dataset) Commit(ctx context.Context) (err error) {
	if len(d.pending) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { d.metrics.ObserveOperation("commit", start, err) }()
	ctx, span := d.tracing.StartSpan(ctx, "cimorm.commit", attribute.Int("cim.objects", len(d.pending)))
	defer func() { telemetry.EndSpan(span, err) }()

	err = d.db.Transaction(ctx, func(tx *gorm.DB) error {
		return d.store.WithTx(tx).Insert(ctx, d.pending)
	})
	if err != nil {
		return fmt.Errorf("failed to commit objects: %w", err)
	}
	d.metrics.AddObjects("commit", len(d.pending))
	d.logger.Info("Committed objects", zap.Int("objects", len(d.pending)))
	d.pending = nil
	d.invalidateReports(ctx)
	return nil
}

// Rollback discards the pending objects.
func (d *Dataset) Rollback() {
	d.pending = nil
}

func (d *Dataset) class(name string) (*schema.Class, error) {
	return d.schema.Class(name)
}

// Get loads the object with id of class or one of its subclasses.
func (d *Dataset) Get(ctx context.Context, class, id string) (*dataset.Object, error) {
	c, err := d.class(class)
	if err != nil {
		return nil, err
	}
	return d.store.Get(ctx, c, id)
}

// Objects lists the objects of class including its subclasses unless q.Exact.
func (d *Dataset) Objects(ctx context.Context, class string, q dataset.Query) ([]*dataset.Object, error) {
	c, err := d.class(class)
	if err != nil {
		return nil, err
	}
	return d.store.Find(ctx, c, q)
}

// Count counts the objects of class and its subclasses.
func (d *Dataset) Count(ctx context.Context, class string) (int64, error) {
	c, err := d.class(class)
	if err != nil {
		return 0, err
	}
	return d.store.Count(ctx, c)
}

// Related follows the property propKey of obj. Forward references,
// many-to-many links and inverse properties are supported.
func (d *Dataset) Related(ctx context.Context, obj *dataset.Object, propKey string) ([]*dataset.Object, error) {
	c, err := d.class(obj.Class)
	if err != nil {
		return nil, err
	}
	p, err := c.Prop(propKey)
	if err != nil {
		return nil, err
	}
	return d.store.Related(ctx, p, obj.ID)
}

// Sources lists the files the dataset was parsed from.
func (d *Dataset) Sources(ctx context.Context) ([]*dataset.SourceInfo, error) {
	return d.store.Sources(ctx)
}

// Describe renders a class, enumeration or datatype of the dataset's schema.
func (d *Dataset) Describe(element, format string) (string, error) {
	return Describe(d.schema, element, format)
}

// Lint checks the stored objects. Reports are cached per dataset when a
// report cache is configured.
func (d *Dataset) Lint(ctx context.Context) (report *lint.Report, err error) {
	start := time.Now()
	defer func() { d.metrics.ObserveOperation("lint", start, err) }()
	ctx, span := d.tracing.StartSpan(ctx, "cimorm.lint")
	defer func() { telemetry.EndSpan(span, err) }()

	key, cached := d.cachedReport(ctx)
	if cached != nil {
		return cached, nil
	}

	report, err = lint.New(d.schema, d.store).Run(ctx)
	if err != nil {
		return nil, err
	}
	d.metrics.SetViolations(violationsByKind(report))
	d.logger.Info("Linted dataset",
		zap.Int("objects", report.Objects),
		zap.Int("violations", len(report.Violations)))

	if key != "" {
		if data, err := json.Marshal(report); err == nil {
			if err := d.cache.Set(ctx, key, data, d.cacheTTL); err != nil {
				d.logger.Warn("Failed to cache lint report", zap.Error(err))
			}
		}
	}
	return report, nil
}

func violationsByKind(r *lint.Report) map[string]int {
	out := make(map[string]int)
	for _, v := range r.Violations {
		out[string(v.Kind)] += v.Total
	}
	return out
}

// reportKey identifies the dataset's lint report by backend, database
// generation and sources. Parsing into the same backend again yields a new
// generation and therefore a new key.
func (d *Dataset) reportKey(ctx context.Context) (string, error) {
	generation, err := persistence.NewSchemaRepository(d.db.DB).Generation(ctx)
	if err != nil {
		return "", err
	}
	sources, err := d.store.Sources(ctx)
	if err != nil {
		return "", err
	}
	parts := []string{d.db.Backend.String(), generation}
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%d:%s:%s", s.ID, s.Filename, s.UUID))
	}
	return cache.Key("lint", parts...), nil
}

// cachedReport returns the cache key and, on a hit, the cached report.
// Cache failures degrade to linting without a cache.
func (d *Dataset) cachedReport(ctx context.Context) (string, *lint.Report) {
	if d.cache == nil {
		return "", nil
	}
	key, err := d.reportKey(ctx)
	if err != nil {
		d.logger.Warn("Failed to derive report cache key", zap.Error(err))
		return "", nil
	}
	data, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Warn("Failed to read cached lint report", zap.Error(err))
		return key, nil
	}
	if !ok {
		return key, nil
	}
	var report lint.Report
	if err := json.Unmarshal(data, &report); err != nil {
		d.logger.Warn("Discarding malformed cached lint report", zap.Error(err))
		return key, nil
	}
	d.logger.Debug("Using cached lint report", zap.String("key", key))
	return key, &report
}

func (d *Dataset) invalidateReports(ctx context.Context) {
	if d.cache == nil {
		return
	}
	key, err := d.reportKey(ctx)
	if err == nil {
		err = d.cache.Delete(ctx, key)
	}
	if err != nil {
		d.logger.Warn("Failed to invalidate cached lint report", zap.Error(err))
	}
}

// Export serializes the stored objects.
func (d *Dataset) Export(ctx context.Context, opts ...serializer.Option) (docs []serializer.Document, err error) {
	start := time.Now()
	defer func() { d.metrics.ObserveOperation("export", start, err) }()
	ctx, span := d.tracing.StartSpan(ctx, "cimorm.export")
	defer func() { telemetry.EndSpan(span, err) }()

	opts = append([]serializer.Option{serializer.WithLogger(d.logger)}, opts...)
	docs, err = serializer.New(d.schema, d.store, opts...).Serialize(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		d.metrics.AddObjects("export", doc.Objects)
	}
	return docs, nil
}

// ExportBytes serializes the stored objects into one buffer. Multi mode
// output is a zip archive.
func (d *Dataset) ExportBytes(ctx context.Context, opts ...serializer.Option) ([]byte, error) {
	docs, err := d.Export(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 1 && docs[0].Profile == "" {
		return docs[0].Data, nil
	}
	buf, err := serializer.Zip(docs)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close releases the database connection. Pending objects are discarded.
func (d *Dataset) Close() error {
	d.pending = nil
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}
