// Package models contains the GORM models of the metadata tables: the stored
// CIM schema (namespaces, profiles, packages, classes, properties,
// enumerations, datatypes) and the parsed source files.
//
// The tables themselves are created by the migration package; class tables
// holding instance data are generated at runtime and have no static model.
package models
