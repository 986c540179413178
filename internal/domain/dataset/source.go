package dataset

import (
	"regexp"
)

var cimVersionPattern = regexp.MustCompile(`CIM-schema-cim(\d{0,2})#`)

// SourceInfo records one parsed instance file.
type SourceInfo struct {
	ID         uint                `json:"id"`
	Filename   string              `json:"filename"`
	UUID       string              `json:"uuid,omitempty"`
	FullModel  map[string][]string `json:"full_model,omitempty"`
	Namespaces map[string]string   `json:"namespaces,omitempty"`
}

// CIMVersion extracts the CIM version from the file's cim namespace, e.g.
// "16" from "http://iec.ch/TC57/2013/CIM-schema-cim16#".
func (s *SourceInfo) CIMVersion() string {
	return CIMVersion(s.Namespaces["cim"])
}

// Profiles lists the profile URIs the file declares in its FullModel header.
func (s *SourceInfo) Profiles() []string {
	return s.FullModel["profile"]
}

// CIMVersion extracts the version from a cim namespace URI.
func CIMVersion(namespace string) string {
	m := cimVersionPattern.FindStringSubmatch(namespace)
	if m == nil {
		return ""
	}
	return m[1]
}
