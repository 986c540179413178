package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema/schematest"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
)

func TestSchemaRepositoryRoundTrip(t *testing.T) {
	f := newFixture(t)
	repo := persistence.NewSchemaRepository(f.db.DB)

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, f.schema.Version, loaded.Version)
	assert.Equal(t, f.schema.Namespaces, loaded.Namespaces)

	profileNames := func(s *schema.Schema) []string {
		var out []string
		for _, p := range s.Profiles() {
			out = append(out, p.Name+"/"+p.Short)
		}
		return out
	}
	assert.Equal(t, profileNames(f.schema), profileNames(loaded))

	require.Len(t, loaded.Classes(), len(f.schema.Classes()))
	for _, want := range f.schema.Classes() {
		got, err := loaded.Class(want.Key())
		require.NoError(t, err)
		assert.Equal(t, want.Describe(), got.Describe(), want.Name)
		assert.ElementsMatch(t, want.UsedIn, got.UsedIn, want.Name)
	}

	t.Run("enumerations keep their value order", func(t *testing.T) {
		e, err := loaded.Enum("PhaseCode")
		require.NoError(t, err)
		assert.Equal(t, []string{"ABC", "AB", "A"}, e.Describe().Values)
	})

	t.Run("datatypes keep units", func(t *testing.T) {
		d, err := loaded.Datatype("Resistance")
		require.NoError(t, err)
		assert.Equal(t, "ohm", d.Unit)
		assert.Equal(t, "Float", d.BaseDatatype)
	})

	t.Run("inferred inverses are rebuilt", func(t *testing.T) {
		node, err := loaded.Class("TopologicalNode")
		require.NoError(t, err)
		p, err := node.Prop("AngleRefTopologicalIsland")
		require.NoError(t, err)
		assert.True(t, p.Inferred)
		assert.False(t, p.Used)
		assert.Equal(t, "AngleRefTopologicalNode", p.Inverse.Name)
	})

	t.Run("property profiles", func(t *testing.T) {
		terminal, err := loaded.Class("ACDCTerminal")
		require.NoError(t, err)
		p, err := terminal.Prop("connected")
		require.NoError(t, err)
		assert.True(t, p.IsAllowedIn("SteadyStateHypothesisProfile"))
		assert.False(t, p.IsAllowedIn("EquipmentProfile"))
	})
}

func TestSchemaRepositoryErrors(t *testing.T) {
	f := newFixture(t)
	repo := persistence.NewSchemaRepository(f.db.DB)

	err := repo.Save(context.Background(), schematest.Grid())
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	empty, err := persistence.Open(context.Background(), persistence.InMemory{})
	require.NoError(t, err)
	defer empty.Close()
	migrate(t, empty)

	_, err = persistence.NewSchemaRepository(empty.DB).Load(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = persistence.NewSchemaRepository(empty.DB).Generation(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSchemaRepositoryGeneration(t *testing.T) {
	ctx := context.Background()
	generation := func() string {
		db, err := persistence.Open(ctx, persistence.InMemory{})
		require.NoError(t, err)
		defer db.Close()
		migrate(t, db)
		repo := persistence.NewSchemaRepository(db.DB)
		require.NoError(t, repo.Save(ctx, schematest.Grid()))
		g, err := repo.Generation(ctx)
		require.NoError(t, err)
		return g
	}

	first, second := generation(), generation()
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
