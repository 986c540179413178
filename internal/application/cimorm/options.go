package cimorm

import (
	"time"

	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/cache"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/telemetry"
)

// DefaultSchemaRoot is used when no schema root is configured.
const DefaultSchemaRoot = "schemata"

// DefaultReportTTL is how long cached lint reports stay valid.
const DefaultReportTTL = 10 * time.Minute

// Option configures Parse, Load and CreateEmptyDataset.
type Option func(*options)

type options struct {
	backend    persistence.Backend
	schemaRoot string
	logger     *zap.Logger
	echo       bool
	profiles   []string
	metrics    *telemetry.Metrics
	tracing    *telemetry.TracerProvider
	cache      cache.Cache
	cacheTTL   time.Duration
}

func newOptions(opts []Option) *options {
	o := &options{
		schemaRoot: DefaultSchemaRoot,
		logger:     zap.NewNop(),
		cacheTTL:   DefaultReportTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBackend selects the database. Parse defaults to a SQLite file next to
// the dataset, CreateEmptyDataset to an in-memory database.
func WithBackend(b persistence.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithSchemaRoot sets the directory holding one RDFS schema directory per CIM version.
func WithSchemaRoot(root string) Option {
	return func(o *options) {
		if root != "" {
			o.schemaRoot = root
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEcho logs every SQL statement.
func WithEcho(echo bool) Option {
	return func(o *options) {
		o.echo = echo
	}
}

// WithProfiles restricts the schema to the given profiles, by full or short name.
func WithProfiles(profiles ...string) Option {
	return func(o *options) {
		o.profiles = profiles
	}
}

// WithMetrics records operation and SQL metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracing records spans for dataset operations and their SQL statements.
// A disabled provider records nothing.
func WithTracing(tp *telemetry.TracerProvider) Option {
	return func(o *options) {
		o.tracing = tp
	}
}

// WithReportCache caches lint reports for ttl. A ttl of zero uses DefaultReportTTL.
func WithReportCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

func (o *options) dbOptions() []persistence.Option {
	return []persistence.Option{persistence.WithLogger(o.logger), persistence.WithEcho(o.echo)}
}

// instrument installs the metrics and tracing plugins on db.
func (o *options) instrument(db *persistence.Database, log *zap.Logger) error {
	if err := o.metrics.InstrumentDB(db.DB, "cim", log); err != nil {
		return err
	}
	return o.tracing.InstrumentDB(db.DB, string(db.Dialect))
}
