package models

import (
	"encoding/json"
	"fmt"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

// SourceInfoModel is the persistence model of a parsed instance file.
type SourceInfoModel struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Filename   string `gorm:"column:filename;type:text;not null"`
	UUID       string `gorm:"column:uuid;type:varchar(64)"`
	FullModel  string `gorm:"column:full_model;type:text"`
	Namespaces string `gorm:"column:namespaces;type:text"`
}

// TableName returns the table name for GORM
func (SourceInfoModel) TableName() string {
	return "SourceInfo"
}

// ToDomain converts the persistence model to a SourceInfo.
func (m *SourceInfoModel) ToDomain() (*dataset.SourceInfo, error) {
	info := &dataset.SourceInfo{ID: m.ID, Filename: m.Filename, UUID: m.UUID}
	if err := unmarshal(m.FullModel, &info.FullModel); err != nil {
		return nil, fmt.Errorf("source %d: invalid model header: %w", m.ID, err)
	}
	if err := unmarshal(m.Namespaces, &info.Namespaces); err != nil {
		return nil, fmt.Errorf("source %d: invalid namespaces: %w", m.ID, err)
	}
	return info, nil
}

// FromDomain populates the persistence model from a SourceInfo.
func (m *SourceInfoModel) FromDomain(info *dataset.SourceInfo) error {
	fullModel, err := json.Marshal(info.FullModel)
	if err != nil {
		return err
	}
	namespaces, err := json.Marshal(info.Namespaces)
	if err != nil {
		return err
	}
	m.ID = info.ID
	m.Filename = info.Filename
	m.UUID = info.UUID
	m.FullModel = string(fullModel)
	m.Namespaces = string(namespaces)
	return nil
}

// SchemaInfoModel records the CIM version and namespace map of the stored
// schema. Generation is a random token written when the database is filled,
// so caches keyed by it never outlive a rebuild of the database.
type SchemaInfoModel struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Version    string `gorm:"column:version;type:varchar(10);not null"`
	Namespaces string `gorm:"column:namespaces;type:text"`
	Generation string `gorm:"column:generation;type:varchar(64)"`
}

// TableName returns the table name for GORM
func (SchemaInfoModel) TableName() string {
	return "SchemaInfo"
}

// NamespaceModel is a schema namespace.
type NamespaceModel struct {
	Short    string `gorm:"column:short;primaryKey"`
	FullName string `gorm:"column:full_name;not null"`
}

// TableName returns the table name for GORM
func (NamespaceModel) TableName() string {
	return "CIMNamespace"
}

// ProfileModel is a schema profile.
type ProfileModel struct {
	Name     string `gorm:"column:name;primaryKey"`
	Short    string `gorm:"column:short"`
	URIs     string `gorm:"column:uris;type:text"`
	Position int    `gorm:"column:position;not null;default:0"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "CIMProfile"
}

// ToDomain converts the persistence model to a Profile.
func (m *ProfileModel) ToDomain() (*schema.Profile, error) {
	p := &schema.Profile{Name: m.Name, Short: m.Short}
	if err := unmarshal(m.URIs, &p.URIs); err != nil {
		return nil, fmt.Errorf("profile %s: invalid URIs: %w", m.Name, err)
	}
	return p, nil
}

// FromDomain populates the persistence model from a Profile.
func (m *ProfileModel) FromDomain(p *schema.Profile, position int) error {
	uris, err := json.Marshal(p.URIs)
	if err != nil {
		return err
	}
	m.Name = p.Name
	m.Short = p.Short
	m.URIs = string(uris)
	m.Position = position
	return nil
}

// PackageModel is a schema package.
type PackageModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	Label     string `gorm:"column:label;not null"`
	Namespace string `gorm:"column:namespace"`
	DefinedIn string `gorm:"column:defined_in"`
}

// TableName returns the table name for GORM
func (PackageModel) TableName() string {
	return "CIMPackage"
}

// ClassModel is a schema class. Properties and profiles are stored separately.
type ClassModel struct {
	ID              string `gorm:"column:id;primaryKey"`
	Label           string `gorm:"column:label;not null"`
	Namespace       string `gorm:"column:namespace"`
	Package         string `gorm:"column:package"`
	ParentLabel     string `gorm:"column:parent_label"`
	ParentNamespace string `gorm:"column:parent_namespace"`
	DefinedIn       string `gorm:"column:defined_in"`
	Position        int    `gorm:"column:position;not null;default:0"`
}

// TableName returns the table name for GORM
func (ClassModel) TableName() string {
	return "CIMClass"
}

// ToDomain converts the persistence model to a Class without properties.
func (m *ClassModel) ToDomain() *schema.Class {
	return &schema.Class{
		Name:            m.Label,
		Namespace:       m.Namespace,
		Package:         m.Package,
		DefinedIn:       m.DefinedIn,
		ParentName:      m.ParentLabel,
		ParentNamespace: m.ParentNamespace,
	}
}

// FromDomain populates the persistence model from a Class.
func (m *ClassModel) FromDomain(c *schema.Class, position int) {
	m.ID = c.Key()
	m.Label = c.Name
	m.Namespace = c.Namespace
	m.Package = c.Package
	m.DefinedIn = c.DefinedIn
	m.ParentLabel = c.ParentName
	m.ParentNamespace = c.ParentNamespace
	m.Position = position
}

// ClassProfileModel records a profile a class is used in.
type ClassProfileModel struct {
	ClassID     string `gorm:"column:class_id;primaryKey"`
	ProfileName string `gorm:"column:profile_name;primaryKey"`
}

// TableName returns the table name for GORM
func (ClassProfileModel) TableName() string {
	return "class_profile"
}

// PropModel is a declared schema property.
type PropModel struct {
	ID                string `gorm:"column:id;primaryKey"`
	ClassID           string `gorm:"column:class_id;not null;index"`
	Label             string `gorm:"column:label;not null"`
	Namespace         string `gorm:"column:namespace"`
	Multiplicity      string `gorm:"column:multiplicity"`
	RangeLabel        string `gorm:"column:range_label"`
	RangeNamespace    string `gorm:"column:range_namespace"`
	DatatypeLabel     string `gorm:"column:datatype_label"`
	DatatypeNamespace string `gorm:"column:datatype_namespace"`
	InverseClass      string `gorm:"column:inverse_class"`
	InverseLabel      string `gorm:"column:inverse_label"`
	InverseNamespace  string `gorm:"column:inverse_namespace"`
	Used              bool   `gorm:"column:used;not null"`
	DefinedIn         string `gorm:"column:defined_in"`
	Position          int    `gorm:"column:position;not null;default:0"`
}

// TableName returns the table name for GORM
func (PropModel) TableName() string {
	return "CIMProp"
}

// ToDomain converts the persistence model to a Property of the given class.
func (m *PropModel) ToDomain(className string) *schema.Property {
	return &schema.Property{
		Name:              m.Label,
		Namespace:         m.Namespace,
		ClassName:         className,
		Multiplicity:      m.Multiplicity,
		RangeName:         m.RangeLabel,
		RangeNamespace:    m.RangeNamespace,
		DatatypeName:      m.DatatypeLabel,
		DatatypeNamespace: m.DatatypeNamespace,
		InverseClass:      m.InverseClass,
		InverseName:       m.InverseLabel,
		InverseNamespace:  m.InverseNamespace,
		Used:              m.Used,
		DefinedIn:         m.DefinedIn,
	}
}

// FromDomain populates the persistence model from a Property.
func (m *PropModel) FromDomain(classID string, p *schema.Property, position int) {
	m.ID = PropID(classID, p)
	m.ClassID = classID
	m.Label = p.Name
	m.Namespace = p.Namespace
	m.Multiplicity = p.Multiplicity
	m.RangeLabel = p.RangeName
	m.RangeNamespace = p.RangeNamespace
	m.DatatypeLabel = p.DatatypeName
	m.DatatypeNamespace = p.DatatypeNamespace
	m.InverseClass = p.InverseClass
	m.InverseLabel = p.InverseName
	m.InverseNamespace = p.InverseNamespace
	m.Used = p.Used
	m.DefinedIn = p.DefinedIn
	m.Position = position
}

// PropID is the primary key of a property row.
func PropID(classID string, p *schema.Property) string {
	return classID + "." + p.Key()
}

// PropProfileModel records a profile a property is allowed in.
type PropProfileModel struct {
	PropID      string `gorm:"column:prop_id;primaryKey"`
	ProfileName string `gorm:"column:profile_name;primaryKey"`
}

// TableName returns the table name for GORM
func (PropProfileModel) TableName() string {
	return "prop_profile"
}

// EnumModel is a schema enumeration.
type EnumModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	Label     string `gorm:"column:label;not null"`
	Namespace string `gorm:"column:namespace"`
	Package   string `gorm:"column:package"`
	DefinedIn string `gorm:"column:defined_in"`
	UsedIn    string `gorm:"column:used_in;type:text"`
}

// TableName returns the table name for GORM
func (EnumModel) TableName() string {
	return "CIMEnum"
}

// EnumValueModel is one literal of an enumeration.
type EnumValueModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	EnumID    string `gorm:"column:enum_id;not null"`
	Label     string `gorm:"column:label;not null"`
	Namespace string `gorm:"column:namespace"`
	DefinedIn string `gorm:"column:defined_in"`
	Position  int    `gorm:"column:position;not null;default:0"`
}

// TableName returns the table name for GORM
func (EnumValueModel) TableName() string {
	return "CIMEnumValue"
}

// DatatypeModel is a schema datatype.
type DatatypeModel struct {
	ID                    string `gorm:"column:id;primaryKey"`
	Label                 string `gorm:"column:label;not null"`
	Namespace             string `gorm:"column:namespace"`
	Package               string `gorm:"column:package"`
	DefinedIn             string `gorm:"column:defined_in"`
	Stereotype            string `gorm:"column:stereotype"`
	BaseDatatype          string `gorm:"column:base_datatype"`
	Unit                  string `gorm:"column:unit"`
	Multiplier            string `gorm:"column:multiplier"`
	DenominatorUnit       string `gorm:"column:denominator_unit"`
	DenominatorMultiplier string `gorm:"column:denominator_multiplier"`
}

// TableName returns the table name for GORM
func (DatatypeModel) TableName() string {
	return "CIMDT"
}

// ToDomain converts the persistence model to a Datatype.
func (m *DatatypeModel) ToDomain() *schema.Datatype {
	return &schema.Datatype{
		Name:                  m.Label,
		Namespace:             m.Namespace,
		Package:               m.Package,
		DefinedIn:             m.DefinedIn,
		Stereotype:            m.Stereotype,
		BaseDatatype:          m.BaseDatatype,
		Unit:                  m.Unit,
		Multiplier:            m.Multiplier,
		DenominatorUnit:       m.DenominatorUnit,
		DenominatorMultiplier: m.DenominatorMultiplier,
	}
}

// FromDomain populates the persistence model from a Datatype.
func (m *DatatypeModel) FromDomain(d *schema.Datatype) {
	m.ID = d.Key()
	m.Label = d.Name
	m.Namespace = d.Namespace
	m.Package = d.Package
	m.DefinedIn = d.DefinedIn
	m.Stereotype = d.Stereotype
	m.BaseDatatype = d.BaseDatatype
	m.Unit = d.Unit
	m.Multiplier = d.Multiplier
	m.DenominatorUnit = d.DenominatorUnit
	m.DenominatorMultiplier = d.DenominatorMultiplier
}

func unmarshal[T any](data string, dst *T) error {
	if data == "" || data == "null" {
		return nil
	}
	return json.Unmarshal([]byte(data), dst)
}
