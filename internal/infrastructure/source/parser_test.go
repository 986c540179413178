package source_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfs"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfxml"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/source"
	"github.com/RWTH-IAEW/cimpyorm/internal/testutil"
)

func loadSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := rdfs.NewLoader(testutil.SchemaRoot()).Load(context.Background(), "16", nil)
	require.NoError(t, err)
	return s
}

func parse(t *testing.T, s *schema.Schema, name string, logger *zap.Logger) ([]*dataset.Object, error) {
	t.Helper()
	sources := readDataset(t, name)
	p := source.NewParser(s, source.Namespaces(sources, zap.NewNop()), source.WithLogger(logger))
	return p.Parse(sources)
}

func byID(objects []*dataset.Object) map[string]*dataset.Object {
	out := make(map[string]*dataset.Object, len(objects))
	for _, o := range objects {
		out[o.ID] = o
	}
	return out
}

func TestParserGrid(t *testing.T) {
	s := loadSchema(t)
	core, logs := observer.New(zap.DebugLevel)
	objects, err := parse(t, s, "grid", zap.New(core))
	require.NoError(t, err)

	index := byID(objects)
	assert.Len(t, index, 10)
	assert.NotContains(t, index, "_br1")
	assert.Equal(t, 1, logs.FilterMessage("Breaker not implemented. Skipping.").Len())

	t.Run("classes", func(t *testing.T) {
		assert.Equal(t, "BaseVoltage", index["_bv110"].Class)
		assert.Equal(t, "Substation", index["_sub1"].Class)
		assert.Equal(t, "ACLineSegment", index["_line1"].Class)
		assert.Equal(t, "Terminal", index["_t2"].Class)
		assert.Equal(t, "entsoe_EnergySchedulingType", index["_est1"].Class)
	})

	t.Run("values are converted to the column type", func(t *testing.T) {
		line := index["_line1"]
		assert.Equal(t, 0.25, line.Values["r"])
		assert.Equal(t, 12.5, line.Values["length"])
		assert.Equal(t, false, line.Values["aggregate"])
		assert.Equal(t, "Line 1", line.Values["name"])
		assert.Equal(t, 110.0, index["_bv110"].Values["nominalVoltage"])
		assert.Equal(t, int64(1), index["_t1"].Values["sequenceNumber"])
		assert.Equal(t, "AC", index["_sub1"].Values["entsoe_shortName"])
	})

	t.Run("references", func(t *testing.T) {
		line := index["_line1"]
		assert.Equal(t, "_bv110", line.Refs["BaseVoltage"])
		assert.Equal(t, "_sub1", line.Refs["EquipmentContainer"])
		assert.Equal(t, "_line1", index["_t1"].Refs["ConductingEquipment"])
		assert.Equal(t, "_missing", index["_t3"].Refs["ConductingEquipment"])
	})

	t.Run("enumerations are stored as labels", func(t *testing.T) {
		assert.Equal(t, "ABC", index["_t1"].Enums["phases"])
		assert.Equal(t, "XYZ", index["_t3"].Enums["phases"])
		assert.NotContains(t, index["_t2"].Enums, "phases")
	})

	t.Run("descriptions across profiles are merged", func(t *testing.T) {
		t1 := index["_t1"]
		assert.Equal(t, "_tn1", t1.Refs["TopologicalNode"])
		assert.Equal(t, true, t1.Values["connected"])
		assert.Equal(t, false, index["_t2"].Values["connected"])
		assert.Equal(t, true, index["_t3"].Values["connected"])
		assert.Equal(t, uint(1), t1.SourceID)
	})

	t.Run("associations", func(t *testing.T) {
		island := index["_island1"]
		assert.Equal(t, []string{"_tn1", "_tn2"}, island.Links["TopologicalNodes"])
		assert.Equal(t, "_tn1", island.Refs["AngleRefTopologicalNode"])
		assert.Equal(t, uint(3), island.SourceID)
	})

	t.Run("objects validate against the schema", func(t *testing.T) {
		for _, o := range objects {
			_, err := o.Validate(s)
			assert.NoError(t, err, o.ID)
		}
	})
}

func TestParserDescriptionBeforeDeclaration(t *testing.T) {
	objects, err := parse(t, loadSchema(t), "reverse_order", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, objects, 1)
	t1 := objects[0]
	assert.Equal(t, "Terminal", t1.Class)
	assert.Equal(t, "T1", t1.Values["name"])
	assert.Equal(t, true, t1.Values["connected"])
	assert.Equal(t, uint(2), t1.SourceID)
}

func TestParserDeclarationTooGeneric(t *testing.T) {
	_, err := parse(t, loadSchema(t), "too_generic", zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.Contains(t, err.Error(), "declaration too generic")
}

func TestParserConcatenatedAssociations(t *testing.T) {
	objects, err := parse(t, loadSchema(t), "m2m", zap.NewNop())
	require.NoError(t, err)
	index := byID(objects)
	require.Len(t, index, 22)

	for _, name := range []string{"_islandA", "_islandB"} {
		island := index[name]
		require.NotNil(t, island, name)
		assert.Len(t, island.Links["TopologicalNodes"], 10, name)
	}
	assert.Equal(t, "_n0", index["_islandA"].Links["TopologicalNodes"][0])
	assert.Equal(t, "_n19", index["_islandB"].Links["TopologicalNodes"][9])
}

const header = `<rdf:RDF xmlns:cim="http://iec.ch/TC57/2013/CIM-schema-cim16#" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
%s
</rdf:RDF>`

func parseInline(t *testing.T, s *schema.Schema, logger *zap.Logger, bodies ...string) ([]*dataset.Object, error) {
	t.Helper()
	var sources []*source.Source
	for i, body := range bodies {
		doc, err := rdfxml.Decode(strings.NewReader(fmt.Sprintf(header, body)))
		require.NoError(t, err)
		info, err := source.NewSourceInfo(fmt.Sprintf("inline%d.xml", i), doc)
		require.NoError(t, err)
		info.ID = uint(i + 1)
		sources = append(sources, &source.Source{Info: info, Doc: doc})
	}
	p := source.NewParser(s, source.Namespaces(sources, zap.NewNop()), source.WithLogger(logger))
	return p.Parse(sources)
}

func TestParserEdgeCases(t *testing.T) {
	s := loadSchema(t)

	t.Run("ambiguous values are skipped", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		objects, err := parseInline(t, s, zap.New(core),
			`<cim:BaseVoltage rdf:ID="_bv"><cim:IdentifiedObject.name>A</cim:IdentifiedObject.name></cim:BaseVoltage>`,
			`<cim:BaseVoltage rdf:about="#_bv"><cim:IdentifiedObject.name>B</cim:IdentifiedObject.name></cim:BaseVoltage>`,
		)
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.NotContains(t, objects[0].Values, "name")
		assert.Equal(t, 1, logs.FilterMessage("Ambiguous data values (Skipped)").Len())
	})

	t.Run("repeated identical values are kept", func(t *testing.T) {
		objects, err := parseInline(t, s, zap.NewNop(),
			`<cim:BaseVoltage rdf:ID="_bv"><cim:IdentifiedObject.name>A</cim:IdentifiedObject.name></cim:BaseVoltage>`,
			`<cim:BaseVoltage rdf:about="#_bv"><cim:IdentifiedObject.name>A</cim:IdentifiedObject.name></cim:BaseVoltage>`,
		)
		require.NoError(t, err)
		assert.Equal(t, "A", objects[0].Values["name"])
	})

	t.Run("invalid numbers are skipped", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		objects, err := parseInline(t, s, zap.New(core),
			`<cim:BaseVoltage rdf:ID="_bv"><cim:BaseVoltage.nominalVoltage>high</cim:BaseVoltage.nominalVoltage></cim:BaseVoltage>`,
		)
		require.NoError(t, err)
		assert.NotContains(t, objects[0].Values, "nominalVoltage")
		assert.Equal(t, 1, logs.FilterMessage("Invalid value skipped").Len())
	})

	t.Run("urn references", func(t *testing.T) {
		objects, err := parseInline(t, s, zap.NewNop(),
			`<cim:Terminal rdf:about="urn:uuid:abc"><cim:Terminal.ConductingEquipment rdf:resource="urn:uuid:def"/></cim:Terminal>`,
		)
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Equal(t, "_abc", objects[0].ID)
		assert.Equal(t, "_def", objects[0].Refs["ConductingEquipment"])
	})

	t.Run("most specific description wins without declaration", func(t *testing.T) {
		objects, err := parseInline(t, s, zap.NewNop(),
			`<cim:ACDCTerminal rdf:about="#_t"><cim:ACDCTerminal.connected>true</cim:ACDCTerminal.connected></cim:ACDCTerminal>`,
			`<cim:Terminal rdf:about="#_t"/>`,
		)
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Equal(t, "Terminal", objects[0].Class)
	})

	t.Run("unrelated classes are ambiguous", func(t *testing.T) {
		_, err := parseInline(t, s, zap.NewNop(),
			`<cim:Terminal rdf:ID="_x"/>`,
			`<cim:BaseVoltage rdf:about="#_x"/>`,
		)
		assert.True(t, errors.Is(err, shared.ErrAmbiguous))
	})
}

func TestDetermineUUID(t *testing.T) {
	doc, err := rdfxml.Decode(strings.NewReader(fmt.Sprintf(header,
		`<cim:Terminal rdf:ID="_a"/><cim:Terminal rdf:about="#_b"/><cim:Terminal rdf:about="urn:uuid:c"/><cim:Terminal/>`)))
	require.NoError(t, err)
	children := doc.Root.Children

	uuid, declared := source.DetermineUUID(children[0])
	assert.Equal(t, "a", uuid)
	assert.True(t, declared)

	uuid, declared = source.DetermineUUID(children[1])
	assert.Equal(t, "b", uuid)
	assert.False(t, declared)

	uuid, _ = source.DetermineUUID(children[2])
	assert.Equal(t, "c", uuid)

	uuid, _ = source.DetermineUUID(children[3])
	assert.Empty(t, uuid)
}

func TestRefID(t *testing.T) {
	assert.Equal(t, "_abc", source.RefID("#_abc"))
	assert.Equal(t, "_abc", source.RefID("urn:uuid:abc"))
	assert.Equal(t, "_abc", source.RefID("_abc"))
	assert.Equal(t, "_abc", source.RefID("http://example.com/grid#_abc"))
}
