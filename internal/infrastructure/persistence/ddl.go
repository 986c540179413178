package persistence

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

// Columns shared by every class table.
const (
	ColumnID       = "id"
	ColumnType     = "type_"
	ColumnSourceID = "_source_id"
)

// TableName is the table holding the native columns of a class.
func TableName(c *schema.Class) string {
	return Identifier(c.FullName())
}

// AssociationTable is the many-to-many table of an association property.
func AssociationTable(p *schema.Property) (table, local, remote string) {
	local, remote = p.AssociationColumns()
	return Identifier(p.AssociationTable()), Identifier(local), Identifier(remote)
}

// ClassColumns lists the columns of a class table in table order.
func ClassColumns(c *schema.Class) []string {
	cols := []string{ColumnID}
	if c.Parent == nil {
		cols = append(cols, ColumnType, ColumnSourceID)
	}
	for _, p := range storedProps(c) {
		cols = append(cols, p.Column())
	}
	return cols
}

// storedProps are the native properties stored as columns of the class table.
func storedProps(c *schema.Class) []*schema.Property {
	var out []*schema.Property
	for _, p := range c.NativeUsedProps() {
		if !p.Association() {
			out = append(out, p)
		}
	}
	return out
}

// TableGenerator builds the class tables of a schema: one table per class
// joined to its parent's table by id, plus one table per association.
type TableGenerator struct {
	dialect Dialect
	logger  *zap.Logger
}

// NewTableGenerator creates a generator for a dialect.
func NewTableGenerator(dialect Dialect, logger *zap.Logger) *TableGenerator {
	return &TableGenerator{dialect: dialect, logger: logger}
}

// Statements returns the DDL of all class and association tables. Parent
// tables come before their children.
func (g *TableGenerator) Statements(s *schema.Schema) []string {
	var stmts, associations []string
	for _, c := range s.Classes() {
		stmts = append(stmts, g.classTable(c)...)
		for _, p := range c.NativeUsedProps() {
			if p.Association() {
				associations = append(associations, g.associationTable(p))
			}
		}
	}
	return append(stmts, associations...)
}

// Generate creates all tables that do not exist yet.
func (g *TableGenerator) Generate(ctx context.Context, db *gorm.DB, s *schema.Schema) error {
	stmts := g.Statements(s)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to create table: %w\n%s", err, stmt)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.logger.Info("Generated class tables",
		zap.Int("classes", len(s.Classes())),
		zap.Int("statements", len(stmts)))
	return nil
}

func (g *TableGenerator) classTable(c *schema.Class) []string {
	d := g.dialect
	table := TableName(c)

	var defs []string
	defs = append(defs, d.Quote(ColumnID)+" "+idColumnType+" NOT NULL PRIMARY KEY")
	if c.Parent == nil {
		defs = append(defs,
			d.Quote(ColumnType)+" VARCHAR(120) NOT NULL",
			d.Quote(ColumnSourceID)+" INTEGER NULL")
	}
	for _, p := range storedProps(c) {
		var typ string
		switch p.Kind() {
		case schema.KindReference, schema.KindEnumeration:
			typ = d.referenceColumnType()
		default:
			typ = d.ColumnType(p.ColumnType())
		}
		defs = append(defs, d.Quote(p.Column())+" "+typ+" NULL")
	}

	if c.Parent == nil {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)%s",
			d.Quote(ColumnSourceID), d.Quote("SourceInfo"), d.Quote("id"), d.deferrable()))
	} else {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE%s",
			d.Quote(ColumnID), d.Quote(TableName(c.Parent)), d.Quote(ColumnID), d.deferrable()))
	}

	typeIndex := d.Quote(Identifier("ix_" + c.FullName() + "_type_"))
	if c.Parent == nil && d == DialectMySQL {
		defs = append(defs, fmt.Sprintf("KEY %s (%s)", typeIndex, d.Quote(ColumnType)))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)%s",
		d.Quote(table), strings.Join(defs, ",\n    "), d.tableOptions())}
	if c.Parent == nil && d != DialectMySQL {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			typeIndex, d.Quote(table), d.Quote(ColumnType)))
	}
	return stmts
}

func (g *TableGenerator) associationTable(p *schema.Property) string {
	d := g.dialect
	table, local, remote := AssociationTable(p)
	defs := []string{
		d.Quote(local) + " " + idColumnType + " NOT NULL",
		d.Quote(remote) + " " + idColumnType + " NOT NULL",
		fmt.Sprintf("PRIMARY KEY (%s, %s)", d.Quote(local), d.Quote(remote)),
		fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE%s",
			d.Quote(local), d.Quote(TableName(p.Class)), d.Quote(ColumnID), d.deferrable()),
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)%s",
		d.Quote(table), strings.Join(defs, ",\n    "), d.tableOptions())
}
