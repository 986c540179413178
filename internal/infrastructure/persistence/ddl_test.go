package persistence_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema/schematest"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/testutil"
)

func TestTableGeneratorStatements(t *testing.T) {
	s := schematest.Grid()

	t.Run("sqlite", func(t *testing.T) {
		stmts := persistence.NewTableGenerator(persistence.DialectSQLite, zap.NewNop()).Statements(s)
		require.Len(t, stmts, 12)

		assert.True(t, strings.HasPrefix(stmts[0], `CREATE TABLE IF NOT EXISTS "cim_IdentifiedObject"`))
		assert.Contains(t, stmts[0], `"type_" VARCHAR(120) NOT NULL`)
		assert.Contains(t, stmts[0], `"entsoe_shortName" TEXT NULL`)
		assert.Contains(t, stmts[0], `FOREIGN KEY ("_source_id") REFERENCES "SourceInfo" ("id")`)
		assert.Equal(t, `CREATE INDEX IF NOT EXISTS "ix_cim_IdentifiedObject_type_" ON "cim_IdentifiedObject" ("type_")`, stmts[1])

		island := `CREATE TABLE IF NOT EXISTS "cim_TopologicalIsland" (
    "id" VARCHAR(50) NOT NULL PRIMARY KEY,
    "AngleRefTopologicalNode_id" TEXT NULL,
    FOREIGN KEY ("id") REFERENCES "cim_IdentifiedObject" ("id") ON DELETE CASCADE
)`
		assert.Contains(t, stmts, island)

		last := stmts[len(stmts)-1]
		assert.True(t, strings.HasPrefix(last, `CREATE TABLE IF NOT EXISTS ".asn_cim_TopologicalIsland_cim_TopologicalNode"`))
		assert.Contains(t, last, `PRIMARY KEY ("cim_TopologicalIsland_id", "cim_TopologicalNode_id")`)
	})

	t.Run("parents come first", func(t *testing.T) {
		stmts := persistence.NewTableGenerator(persistence.DialectSQLite, zap.NewNop()).Statements(s)
		pos := func(table string) int {
			for i, stmt := range stmts {
				if strings.HasPrefix(stmt, `CREATE TABLE IF NOT EXISTS "`+table+`"`) {
					return i
				}
			}
			t.Fatalf("no table %s", table)
			return -1
		}
		assert.Less(t, pos("cim_Equipment"), pos("cim_ConductingEquipment"))
		assert.Less(t, pos("cim_ConductingEquipment"), pos("cim_ACLineSegment"))
		assert.Less(t, pos("cim_ACDCTerminal"), pos("cim_Terminal"))
	})

	t.Run("postgres", func(t *testing.T) {
		stmts := persistence.NewTableGenerator(persistence.DialectPostgres, zap.NewNop()).Statements(s)
		require.Len(t, stmts, 12)
		assert.Contains(t, stmts[0], "DEFERRABLE INITIALLY IMMEDIATE")
		for _, stmt := range stmts {
			assert.NotContains(t, stmt, " REAL ")
		}
	})

	t.Run("mysql", func(t *testing.T) {
		stmts := persistence.NewTableGenerator(persistence.DialectMySQL, zap.NewNop()).Statements(s)
		require.Len(t, stmts, 11)
		assert.Contains(t, stmts[0], "KEY `ix_cim_IdentifiedObject_type_` (`type_`)")
		assert.True(t, strings.HasSuffix(stmts[0], "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"))
		assert.NotContains(t, strings.Join(stmts, "\n"), "DEFERRABLE")
		assert.NotContains(t, strings.Join(stmts, "\n"), `"`)
	})
}

func TestTableGeneratorGenerate(t *testing.T) {
	f := newFixture(t)
	migrator := f.db.DB.Migrator()
	for _, c := range f.schema.Classes() {
		assert.True(t, migrator.HasTable(persistence.TableName(c)), c.Name)
	}
	assert.True(t, migrator.HasTable(".asn_cim_TopologicalIsland_cim_TopologicalNode"))

	// Tables that exist are kept.
	require.NoError(t, persistence.NewTableGenerator(f.db.Dialect, zap.NewNop()).Generate(context.Background(), f.db.DB, f.schema))
}

func TestTableGeneratorGeneratePostgres(t *testing.T) {
	s := schematest.Grid()
	gen := persistence.NewTableGenerator(persistence.DialectPostgres, zap.NewNop())

	t.Run("runs every statement in one transaction", func(t *testing.T) {
		mock := testutil.NewMockDB(t)
		defer mock.Close()

		mock.Mock.ExpectBegin()
		for _, stmt := range gen.Statements(s) {
			mock.Mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.Mock.ExpectCommit()

		require.NoError(t, gen.Generate(context.Background(), mock.DB, s))
		mock.ExpectationsWereMet(t)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		mock := testutil.NewMockDB(t)
		defer mock.Close()

		mock.Mock.ExpectBegin()
		mock.Mock.ExpectExec(`CREATE TABLE`).WillReturnError(assert.AnError)
		mock.Mock.ExpectRollback()

		err := gen.Generate(context.Background(), mock.DB, s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cim_IdentifiedObject")
		mock.ExpectationsWereMet(t)
	})
}
