package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema/schematest"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/migration"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
)

type fixture struct {
	db     *persistence.Database
	schema *schema.Schema
	store  *persistence.ObjectStore
}

// newFixture opens an in-memory database holding the Grid schema and its tables.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	db, err := persistence.Open(ctx, persistence.InMemory{}, persistence.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrate(t, db)

	s := schematest.Grid()
	require.NoError(t, persistence.NewSchemaRepository(db.DB).Save(ctx, s))
	require.NoError(t, persistence.NewTableGenerator(db.Dialect, logger).Generate(ctx, db.DB, s))

	return &fixture{db: db, schema: s, store: persistence.NewObjectStore(db.DB, db.Dialect, s)}
}

func migrate(t *testing.T, db *persistence.Database) {
	t.Helper()
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, string(db.Dialect), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Up())
}

// gridObjects is a small consistent dataset of the Grid schema.
func gridObjects() []*dataset.Object {
	return []*dataset.Object{
		dataset.NewObject("BaseVoltage", "_bv").
			SetValue("name", "110 kV").
			SetValue("nominalVoltage", 110.0),
		dataset.NewObject("ACLineSegment", "_line").
			SetValue("name", "Line").
			SetValue("r", 0.25).
			SetValue("aggregate", true).
			SetRef("BaseVoltage", "_bv"),
		dataset.NewObject("Terminal", "_t1").
			SetValue("name", "T1").
			SetValue("sequenceNumber", int64(1)).
			SetRef("ConductingEquipment", "_line").
			SetRef("TopologicalNode", "_tn1").
			SetEnum("phases", "ABC"),
		dataset.NewObject("Terminal", "_t2").
			SetValue("name", "T2").
			SetRef("ConductingEquipment", "_line"),
		dataset.NewObject("TopologicalNode", "_tn1").SetValue("name", "N1"),
		dataset.NewObject("TopologicalNode", "_tn2").SetValue("name", "N2"),
		dataset.NewObject("TopologicalIsland", "_island").
			SetValue("name", "Island").
			SetRef("AngleRefTopologicalNode", "_tn1").
			AddLink("TopologicalNodes", "_tn1").
			AddLink("TopologicalNodes", "_tn2"),
	}
}

func (f *fixture) insert(t *testing.T, objects []*dataset.Object) {
	t.Helper()
	err := f.db.Transaction(context.Background(), func(tx *gorm.DB) error {
		return f.store.WithTx(tx).Insert(context.Background(), objects)
	})
	require.NoError(t, err)
}
