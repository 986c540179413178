// Package persistence stores CIM schemata and datasets in relational
// databases through GORM: backends, metadata models, the class table
// generator and the object store.
package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB      *gorm.DB
	Dialect Dialect
	Backend Backend
	logger  *zap.Logger
}

// Option configures how a backend is opened.
type Option func(*options)

type options struct {
	logger *zap.Logger
	echo   bool
}

// WithLogger sets the logger used for the connection and its SQL log.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithEcho logs every SQL statement.
func WithEcho(echo bool) Option {
	return func(o *options) {
		o.echo = echo
	}
}

// Open connects to a backend.
func Open(ctx context.Context, b Backend, opts ...Option) (*Database, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if err := b.prepare(ctx, o); err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if o.echo {
		level = gormlogger.Info
	}
	db, err := gorm.Open(b.dialector(), &gorm.Config{
		Logger:                 logger.NewGormLogger(o.logger, level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	b.configurePool(sqlDB)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	o.logger.Debug("Connected to database", zap.Stringer("backend", b))
	return &Database{DB: db, Dialect: b.Dialect(), Backend: b, logger: o.logger}, nil
}

// Reset drops the backend's database and connects to a fresh one.
func Reset(ctx context.Context, b Backend, opts ...Option) (*Database, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if err := b.Drop(ctx, o.logger); err != nil {
		return nil, err
	}
	return Open(ctx, b, opts...)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics and an error if unable to retrieve
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Transaction executes fn within a transaction. Foreign key checks are
// deferred to the commit so that objects may be written in any order.
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := d.Dialect.deferConstraints(tx); err != nil {
			return err
		}
		err := fn(tx)
		if rerr := d.Dialect.restoreConstraints(tx); err == nil {
			err = rerr
		}
		return err
	})
}
