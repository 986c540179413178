package persistence

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// newMockDatabase creates a postgres Database with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	// GORM pings during Open
	mock.ExpectPing()

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB, Dialect: DialectPostgres, logger: zap.NewNop()}, mock, mockDB
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("defers constraints until commit", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SET CONSTRAINTS ALL DEFERRED")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cim_IdentifiedObject"`)).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return tx.Exec(`DELETE FROM "cim_IdentifiedObject"`).Error
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SET CONSTRAINTS ALL DEFERRED")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	assert.Error(t, db.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_StatsAndClose(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.InUse)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenInMemory(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, InMemory{})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DialectSQLite, db.Dialect)
	require.NoError(t, db.DB.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, db.DB.Exec("INSERT INTO t VALUES (1)").Error)

	var n int64
	require.NoError(t, db.DB.Raw("SELECT count(*) FROM t").Scan(&n).Error)
	assert.Equal(t, int64(1), n, "the in-memory database must survive between statements")

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestResetSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "out.db")

	db, err := Open(ctx, NewSQLite(path))
	require.NoError(t, err)
	require.NoError(t, db.DB.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, db.Close())

	db, err = Reset(ctx, NewSQLite(path))
	require.NoError(t, err)
	defer db.Close()
	assert.False(t, db.DB.Migrator().HasTable("t"))
}

func TestSQLiteDropMissingFile(t *testing.T) {
	b := NewSQLite(filepath.Join(t.TempDir(), "missing.db"))
	assert.NoError(t, b.Drop(context.Background(), zap.NewNop()))
}

func TestNewSQLite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "grid", "EQ.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name  string
		path  string
		paths []string
		want  string
	}{
		{"default name", "", nil, DefaultSQLiteName},
		{"absolute path", "/tmp/x.db", []string{dir}, "/tmp/x.db"},
		{"inside a dataset directory", "out.db", []string{filepath.Join(dir, "grid")}, filepath.Join(dir, "grid", "out.db")},
		{"next to a dataset file", "db.sqlite", []string{file}, filepath.Join(dir, "grid", "db.sqlite")},
		{"common parent", "out.db", []string{file, filepath.Join(dir, "other.zip")}, filepath.Join(dir, "out.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSQLite(tt.path, tt.paths...).Path)
		})
	}
}

func TestNewClientServer(t *testing.T) {
	t.Run("postgres defaults", func(t *testing.T) {
		b, err := NewClientServer("PostgreSQL", "", 0, "cim", "secret", "")
		require.NoError(t, err)
		assert.Equal(t, DialectPostgres, b.Dialect())
		assert.Equal(t, "host=localhost port=5432 user=cim password=secret dbname=cim sslmode=disable", b.DSN(b.Name))
		assert.Contains(t, b.DSN(""), "dbname=postgres")
		assert.Equal(t, "postgres://cim@localhost:5432/cim", b.String())
	})

	t.Run("mariadb", func(t *testing.T) {
		b, err := NewClientServer("mariadb", "db", 0, "root", "pw", "grid")
		require.NoError(t, err)
		assert.Equal(t, DialectMySQL, b.Dialect())
		assert.Equal(t, "root:pw@tcp(db:3306)/grid?charset=utf8mb4&parseTime=true&multiStatements=true", b.DSN(b.Name))
	})

	t.Run("unsupported flavour", func(t *testing.T) {
		_, err := NewClientServer("oracle", "", 0, "", "", "")
		assert.ErrorIs(t, err, shared.ErrUnsupported)
	})
}

func TestDialect(t *testing.T) {
	assert.Equal(t, `".asn_cim_A_cim_B"`, DialectSQLite.Quote(".asn_cim_A_cim_B"))
	assert.Equal(t, "`a``b`", DialectMySQL.Quote("a`b"))
	assert.Equal(t, `"id", "type_"`, DialectPostgres.QuoteAll([]string{"id", "type_"}))
}

func TestDialectPage(t *testing.T) {
	tests := []struct {
		name          string
		dialect       Dialect
		limit, offset int
		want          string
	}{
		{"unbounded", DialectSQLite, 0, 0, ""},
		{"limit only", DialectPostgres, 10, 0, " LIMIT 10"},
		{"limit and offset", DialectMySQL, 10, 20, " LIMIT 10 OFFSET 20"},
		{"sqlite offset only", DialectSQLite, 0, 5, " LIMIT -1 OFFSET 5"},
		{"mysql offset only", DialectMySQL, 0, 5, " LIMIT 18446744073709551615 OFFSET 5"},
		{"postgres offset only", DialectPostgres, 0, 5, " OFFSET 5"},
		{"negative offset", DialectPostgres, 3, -1, " LIMIT 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Page(tt.limit, tt.offset))
		})
	}
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "cim_Terminal", Identifier("cim_Terminal"))

	long := ".asn_cim_ControlAreaGeneratingUnitWithAVeryLongName_cim_RegulatingControlScheduleOfSomething"
	short := Identifier(long)
	assert.Len(t, short, maxIdentifier)
	assert.Equal(t, long[:maxIdentifier-9], short[:maxIdentifier-9])
	assert.Equal(t, short, Identifier(long))
	assert.NotEqual(t, short, Identifier(long+"2"))
}
