package persistence

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

// Dialect is the SQL flavour of a backend.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// idColumnType holds object ids ("_" + uuid).
const idColumnType = "VARCHAR(50)"

// Quote quotes an identifier. Table names such as ".asn_cim_A_cim_B" contain
// dots and must always be quoted.
func (d Dialect) Quote(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteAll quotes every identifier and joins them with commas.
func (d Dialect) QuoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// ColumnType maps a property column type to the dialect's SQL type.
func (d Dialect) ColumnType(t schema.ColumnType) string {
	switch t {
	case schema.ColumnFloat:
		switch d {
		case DialectPostgres:
			return "DOUBLE PRECISION"
		case DialectMySQL:
			return "DOUBLE"
		default:
			return "REAL"
		}
	case schema.ColumnInteger:
		return "BIGINT"
	case schema.ColumnBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// referenceColumnType holds reference and enum label columns. MySQL cannot
// index TEXT columns without a prefix length.
func (d Dialect) referenceColumnType() string {
	if d == DialectMySQL {
		return "VARCHAR(255)"
	}
	return "TEXT"
}

// Page returns the LIMIT/OFFSET clause of a listing. A limit of zero means
// no limit; SQLite and MySQL only accept OFFSET after a LIMIT, so they get
// their unbounded form.
func (d Dialect) Page(limit, offset int) string {
	var clause string
	switch {
	case limit > 0:
		clause = fmt.Sprintf(" LIMIT %d", limit)
	case offset <= 0:
		return ""
	case d == DialectSQLite:
		clause = " LIMIT -1"
	case d == DialectMySQL:
		clause = " LIMIT 18446744073709551615"
	}
	if offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", offset)
	}
	return clause
}

func (d Dialect) deferrable() string {
	if d == DialectPostgres {
		return " DEFERRABLE INITIALLY IMMEDIATE"
	}
	return ""
}

func (d Dialect) tableOptions() string {
	if d == DialectMySQL {
		return " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return ""
}

func (d Dialect) deferConstraints(tx *gorm.DB) error {
	switch d {
	case DialectSQLite:
		return tx.Exec("PRAGMA defer_foreign_keys = ON").Error
	case DialectPostgres:
		return tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error
	case DialectMySQL:
		return tx.Exec("SET foreign_key_checks = 0").Error
	}
	return nil
}

func (d Dialect) restoreConstraints(tx *gorm.DB) error {
	if d == DialectMySQL {
		return tx.Exec("SET foreign_key_checks = 1").Error
	}
	return nil
}

// maxIdentifier is the shortest identifier limit of the supported dialects
// (PostgreSQL truncates at 63 bytes, MySQL rejects more than 64).
const maxIdentifier = 63

// Identifier shortens generated names that exceed the identifier limit. The
// shortened name keeps a prefix and appends a hash of the full name.
func Identifier(name string) string {
	if len(name) <= maxIdentifier {
		return name
	}
	sum := sha1.Sum([]byte(name))
	return name[:maxIdentifier-9] + "_" + hex.EncodeToString(sum[:4])
}
