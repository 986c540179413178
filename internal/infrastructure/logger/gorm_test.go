package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLoggerLogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Warn)
	echo, ok := gl.LogMode(gormlogger.Info).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Warn, gl.logLevel)
	assert.Equal(t, gormlogger.Info, echo.logLevel)
}

func TestGormLoggerTrace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		opts    []GormLoggerOption
		begin   time.Time
		err     error
		message string
		entry   zapcore.Level
	}{
		{
			name:    "error",
			level:   gormlogger.Warn,
			begin:   time.Now(),
			err:     errors.New("no such table: cim_Terminal"),
			message: "SQL error",
			entry:   zapcore.ErrorLevel,
		},
		{
			name:    "slow statement",
			level:   gormlogger.Warn,
			opts:    []GormLoggerOption{WithSlowThreshold(time.Millisecond)},
			begin:   time.Now().Add(-time.Second),
			message: "Slow SQL >= 1ms",
			entry:   zapcore.WarnLevel,
		},
		{
			name:    "echo",
			level:   gormlogger.Info,
			begin:   time.Now(),
			message: "SQL",
			entry:   zapcore.InfoLevel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gl.Trace(context.Background(), tt.begin, statement(`SELECT * FROM "cim_Terminal"`, 2), tt.err)

			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.message, entry.Message)
			assert.Equal(t, tt.entry, entry.Level)
			assert.Equal(t, "sql", entry.LoggerName)
		})
	}
}

func TestGormLoggerTraceSuppressed(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)

	NewGormLogger(zap.New(core), gormlogger.Silent).
		Trace(context.Background(), time.Now(), statement("SELECT 1", 1), errors.New("boom"))
	NewGormLogger(zap.New(core), gormlogger.Warn).
		Trace(context.Background(), time.Now(), statement("SELECT 1", 1), nil)
	NewGormLogger(zap.New(core), gormlogger.Error).
		Trace(context.Background(), time.Now(), statement("SELECT 1", 0), gormlogger.ErrRecordNotFound)

	assert.Zero(t, recorded.Len())
}

func TestGormLoggerTruncatesStatements(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithMaxSQLLength(10))

	sql := "INSERT INTO x VALUES " + strings.Repeat("(?),", 100)
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	gl.Trace(ctx, time.Now(), statement(sql, 100), nil)

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	logged, _ := fieldValue(entry, "sql")
	assert.Equal(t, "INSERT INT... (421 bytes)", logged)
	id, _ := fieldValue(entry, "request_id")
	assert.Equal(t, "req-1", id)
}

func TestGormLoggerMessages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Info(context.Background(), "hidden %d", 1)
	gl.Warn(context.Background(), "table %s", "cim_Terminal")
	gl.Error(context.Background(), "failed")

	require.Equal(t, 2, recorded.Len())
	assert.Equal(t, "table cim_Terminal", recorded.All()[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, recorded.All()[1].Level)
}
