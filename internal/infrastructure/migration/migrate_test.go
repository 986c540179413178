package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/migration"
)

var metadataTables = []string{
	"SourceInfo", "SchemaInfo", "CIMNamespace", "CIMProfile", "CIMPackage",
	"CIMClass", "CIMProp", "CIMEnum", "CIMEnumValue", "CIMDT",
	"class_profile", "prop_profile",
}

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=1"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestMigratorUpDown(t *testing.T) {
	db := openMemory(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, "sqlite", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	for _, table := range metadataTables {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	t.Run("up is idempotent", func(t *testing.T) {
		require.NoError(t, m.Up())
	})

	t.Run("the connection stays usable", func(t *testing.T) {
		require.NoError(t, sqlDB.Ping())
	})

	require.NoError(t, m.Down())
	for _, table := range metadataTables {
		assert.False(t, db.Migrator().HasTable(table), table)
	}
}

func TestMigratorRejectsUnknownDialect(t *testing.T) {
	db := openMemory(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	_, err = migration.New(sqlDB, "oracle", zaptest.NewLogger(t))
	assert.Error(t, err)
}
