package schema

import "strings"

// Enum is a CIM enumeration.
type Enum struct {
	Name      string
	Namespace string
	Package   string
	DefinedIn string
	UsedIn    []string
	Values    []*EnumValue
}

// EnumValue is one literal of an enumeration.
type EnumValue struct {
	Name      string
	Namespace string
	DefinedIn string
}

// Key is the namespace-qualified name of the enumeration.
func (e *Enum) Key() string {
	return elementKey(e.Namespace, e.Name)
}

// AddValue appends a value unless one with the same name already exists.
func (e *Enum) AddValue(v *EnumValue) {
	if e.Has(v.Name) {
		return
	}
	e.Values = append(e.Values, v)
}

// Has reports whether the enumeration defines a value label.
func (e *Enum) Has(label string) bool {
	for _, v := range e.Values {
		if v.Name == label {
			return true
		}
	}
	return false
}

// ValueURI is the resource URI of a value, e.g. "<cim ns>PhaseCode.ABC".
func (e *Enum) ValueURI(nsURI, label string) string {
	return nsURI + e.Name + "." + label
}

// EnumLabel reduces an enumeration resource such as
// "http://iec.ch/TC57/2013/CIM-schema-cim16#PhaseCode.ABC" to its label "ABC".
func EnumLabel(resource string) string {
	if i := strings.LastIndex(resource, "#"); i >= 0 {
		resource = resource[i+1:]
	}
	if i := strings.LastIndex(resource, "."); i >= 0 {
		resource = resource[i+1:]
	}
	return resource
}
