package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InstrumentDB installs the query metrics plugin on db and exports the
// connection pool statistics of its sql.DB under the given database name.
func (m *Metrics) InstrumentDB(db *gorm.DB, name string, logger *zap.Logger) error {
	if m == nil {
		return nil
	}
	if err := db.Use(NewDBMetricsPlugin(m, logger)); err != nil {
		return fmt.Errorf("failed to install db metrics plugin: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return m.Register(collectors.NewDBStatsCollector(sqlDB, name))
}

// RecordQuery records metrics for one SQL statement.
func (m *Metrics) RecordQuery(operation, table string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "OTHER"
	}
	m.queries.WithLabelValues(operation, status(err)).Inc()
	m.queryDuration.WithLabelValues(operation).Observe(duration.Seconds())

	if duration >= m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueries.WithLabelValues(table).Inc()
	}
}

// DBMetricsPlugin is a GORM plugin that collects query metrics.
type DBMetricsPlugin struct {
	metrics *Metrics
	logger  *zap.Logger
}

// NewDBMetricsPlugin creates a new GORM plugin for database metrics.
func NewDBMetricsPlugin(metrics *Metrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{
		metrics: metrics,
		logger:  logger,
	}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize registers the GORM callbacks for metrics collection.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	start := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, dbMetricsStartTimeKey, time.Now())
	}
	record := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			if operation == "" {
				p.recordMetrics(db, detectOperationType(db.Statement.SQL.String()))
				return
			}
			p.recordMetrics(db, operation)
		}
	}

	cb := db.Callback()
	registrations := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("db_metrics:before_create", start) },
		func() error { return cb.Query().Before("gorm:query").Register("db_metrics:before_query", start) },
		func() error { return cb.Update().Before("gorm:update").Register("db_metrics:before_update", start) },
		func() error { return cb.Delete().Before("gorm:delete").Register("db_metrics:before_delete", start) },
		func() error { return cb.Row().Before("gorm:row").Register("db_metrics:before_row", start) },
		func() error { return cb.Raw().Before("gorm:raw").Register("db_metrics:before_raw", start) },
		func() error { return cb.Create().After("gorm:create").Register("db_metrics:after_create", record("INSERT")) },
		func() error { return cb.Query().After("gorm:query").Register("db_metrics:after_query", record("SELECT")) },
		func() error { return cb.Update().After("gorm:update").Register("db_metrics:after_update", record("UPDATE")) },
		func() error { return cb.Delete().After("gorm:delete").Register("db_metrics:after_delete", record("DELETE")) },
		// Row and raw statements carry their operation in the SQL.
		func() error { return cb.Row().After("gorm:row").Register("db_metrics:after_row", record("")) },
		func() error { return cb.Raw().After("gorm:raw").Register("db_metrics:after_raw", record("")) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}

	p.logger.Debug("Database metrics plugin initialized")
	return nil
}

// recordMetrics records metrics for a completed database operation.
func (p *DBMetricsPlugin) recordMetrics(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	var duration time.Duration
	if startTime, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
		duration = time.Since(startTime)
	}
	p.metrics.RecordQuery(operation, db.Statement.Table, duration, db.Error)
}

// detectOperationType derives the operation type of raw SQL.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	switch {
	case strings.HasPrefix(sql, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	case strings.HasPrefix(sql, "CREATE"), strings.HasPrefix(sql, "DROP"), strings.HasPrefix(sql, "ALTER"):
		return "DDL"
	default:
		return "OTHER"
	}
}

type dbMetricsContextKey string

const dbMetricsStartTimeKey dbMetricsContextKey = "db_metrics_start_time"
