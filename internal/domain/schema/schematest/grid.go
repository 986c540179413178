// Package schematest builds small linked schemas for tests.
package schematest

import (
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

const (
	CIMNamespace    = "http://iec.ch/TC57/2013/CIM-schema-cim16#"
	EntsoeNamespace = "http://entsoe.eu/CIM/SchemaExtension/3/1#"
)

// Grid returns a linked CGMES-like schema with an EQ, a TP and an SSH profile:
//
//	IdentifiedObject
//	├── ACDCTerminal ── Terminal
//	├── BaseVoltage
//	├── PowerSystemResource ── Equipment ── ConductingEquipment ── ACLineSegment
//	├── TopologicalNode
//	└── TopologicalIsland
func Grid() *schema.Schema {
	s := Unlinked()
	if err := s.Link(); err != nil {
		panic(err)
	}
	return s
}

// Unlinked returns the Grid schema before Link was called.
func Unlinked() *schema.Schema {
	s := schema.New("16", map[string]string{
		"cim":    CIMNamespace,
		"entsoe": EntsoeNamespace,
	})
	s.AddProfile(&schema.Profile{Name: "EquipmentProfile", Short: "EQ"})
	s.AddProfile(&schema.Profile{Name: "TopologyProfile", Short: "TP"})
	s.AddProfile(&schema.Profile{Name: "SteadyStateHypothesisProfile", Short: "SSH"})

	for _, name := range []string{"String", "Float", "Integer", "Boolean"} {
		s.AddDatatype(&schema.Datatype{Name: name, Namespace: "cim", Stereotype: "Primitive", DefinedIn: "EquipmentProfile"})
	}
	s.AddDatatype(&schema.Datatype{
		Name: "Resistance", Namespace: "cim", Stereotype: "CIMDatatype", DefinedIn: "EquipmentProfile",
		BaseDatatype: "Float", Unit: "ohm", Multiplier: "none",
	})
	phases := &schema.Enum{Name: "PhaseCode", Namespace: "cim", DefinedIn: "EquipmentProfile"}
	for _, v := range []string{"ABC", "AB", "A"} {
		phases.AddValue(&schema.EnumValue{Name: v, Namespace: "cim", DefinedIn: "EquipmentProfile"})
	}
	s.AddEnum(phases)

	eq := []string{"EquipmentProfile"}
	all := []string{"EquipmentProfile", "TopologyProfile", "SteadyStateHypothesisProfile"}

	s.AddClass(class("IdentifiedObject", "", all,
		value("mRID", "String", "0..1", eq),
		value("name", "String", "1..1", all),
		&schema.Property{Name: "shortName", Namespace: "entsoe", DatatypeName: "String", Multiplicity: "0..1", Used: true, DefinedIn: "EquipmentProfile"},
	))
	s.AddClass(class("PowerSystemResource", "IdentifiedObject", eq))
	s.AddClass(class("Equipment", "PowerSystemResource", eq,
		value("aggregate", "Boolean", "0..1", eq),
	))
	s.AddClass(class("ConductingEquipment", "Equipment", eq,
		ref("BaseVoltage", "BaseVoltage", "0..1", "BaseVoltage", "ConductingEquipment", true, eq),
		ref("Terminals", "Terminal", "0..n", "Terminal", "ConductingEquipment", false, eq),
	))
	s.AddClass(class("ACLineSegment", "ConductingEquipment", eq,
		value("length", "Float", "0..1", eq),
		value("r", "Resistance", "1..1", eq),
	))
	s.AddClass(class("BaseVoltage", "IdentifiedObject", eq,
		value("nominalVoltage", "Float", "1..1", eq),
		ref("ConductingEquipment", "ConductingEquipment", "0..n", "ConductingEquipment", "BaseVoltage", false, eq),
	))
	s.AddClass(class("ACDCTerminal", "IdentifiedObject", all,
		value("sequenceNumber", "Integer", "0..1", eq),
		value("connected", "Boolean", "0..1", []string{"SteadyStateHypothesisProfile"}),
	))
	terminal := class("Terminal", "ACDCTerminal", all,
		ref("ConductingEquipment", "ConductingEquipment", "1..1", "ConductingEquipment", "Terminals", true, eq),
		ref("TopologicalNode", "TopologicalNode", "0..1", "TopologicalNode", "Terminal", true, []string{"TopologyProfile"}),
		&schema.Property{Name: "phases", Namespace: "cim", RangeName: "PhaseCode", Multiplicity: "0..1", Used: true, DefinedIn: "EquipmentProfile"},
	)
	s.AddClass(terminal)
	tp := []string{"TopologyProfile"}
	s.AddClass(class("TopologicalNode", "IdentifiedObject", tp,
		ref("Terminal", "Terminal", "0..n", "Terminal", "TopologicalNode", false, tp),
		ref("TopologicalIsland", "TopologicalIsland", "0..1", "TopologicalIsland", "TopologicalNodes", false, tp),
	))
	s.AddClass(class("TopologicalIsland", "IdentifiedObject", tp,
		ref("TopologicalNodes", "TopologicalNode", "1..n", "TopologicalNode", "TopologicalIsland", true, tp),
		ref("AngleRefTopologicalNode", "TopologicalNode", "0..1", "TopologicalNode", "AngleRefTopologicalIsland", true, tp),
	))
	return s
}

func class(name, parent string, profiles []string, props ...*schema.Property) *schema.Class {
	c := &schema.Class{
		Name:       name,
		Namespace:  "cim",
		ParentName: parent,
		DefinedIn:  profiles[0],
		UsedIn:     profiles,
		Props:      props,
	}
	for _, p := range props {
		p.ClassName = name
	}
	return c
}

func value(name, datatype, multiplicity string, profiles []string) *schema.Property {
	return &schema.Property{
		Name:         name,
		Namespace:    "cim",
		DatatypeName: datatype,
		Multiplicity: multiplicity,
		Used:         true,
		DefinedIn:    profiles[0],
		AllowedIn:    profiles,
	}
}

func ref(name, rangeName, multiplicity, invClass, invName string, used bool, profiles []string) *schema.Property {
	return &schema.Property{
		Name:         name,
		Namespace:    "cim",
		RangeName:    rangeName,
		Multiplicity: multiplicity,
		InverseClass: invClass,
		InverseName:  invName,
		Used:         used,
		DefinedIn:    profiles[0],
		AllowedIn:    profiles,
	}
}
