package schema

import "strings"

// PropertyKind classifies what a property points to.
type PropertyKind string

const (
	KindValue       PropertyKind = "Value"
	KindReference   PropertyKind = "Reference"
	KindEnumeration PropertyKind = "Enumeration"
)

// ColumnType is the storage type of a value property.
type ColumnType string

const (
	ColumnString  ColumnType = "string"
	ColumnFloat   ColumnType = "float"
	ColumnInteger ColumnType = "integer"
	ColumnBoolean ColumnType = "boolean"
)

// Property is a CIM property (attribute or association end).
type Property struct {
	Name              string
	Namespace         string
	ClassName         string
	Multiplicity      string
	RangeName         string
	RangeNamespace    string
	DatatypeName      string
	DatatypeNamespace string
	InverseClass      string
	InverseName       string
	InverseNamespace  string
	Used              bool
	Inferred          bool
	DefinedIn         string
	AllowedIn         []string

	Class     *Class
	Range     *Class
	RangeEnum *Enum
	Datatype  *Datatype
	Inverse   *Property
}

// Key is the name of the property on objects: the label in the cim
// namespace, "<ns>_<label>" otherwise.
func (p *Property) Key() string {
	return classKey(p.Namespace, p.Name)
}

// Tag is the qualified XML element name, e.g. "cim:Terminal.phases".
func (p *Property) Tag() string {
	ns := p.Namespace
	if ns == "" {
		ns = NamespaceCIM
	}
	return ns + ":" + p.domainName() + "." + p.Name
}

// LocalTag is the element name without namespace prefix, e.g. "Terminal.phases".
func (p *Property) LocalTag() string {
	return p.domainName() + "." + p.Name
}

func (p *Property) domainName() string {
	if p.Class != nil {
		return p.Class.Name
	}
	return p.ClassName
}

// Optional reports whether the multiplicity allows the property to be absent.
func (p *Property) Optional() bool {
	return p.Multiplicity == "" || strings.HasPrefix(p.Multiplicity, "0")
}

// ManyRemote reports whether more than one value is allowed.
func (p *Property) ManyRemote() bool {
	if p.Multiplicity == "" {
		return false
	}
	last := p.Multiplicity[len(p.Multiplicity)-1]
	return last == '2' || last == 'n'
}

// Kind classifies the property by its range.
func (p *Property) Kind() PropertyKind {
	switch {
	case p.RangeEnum != nil:
		return KindEnumeration
	case p.Range != nil:
		return KindReference
	default:
		return KindValue
	}
}

// MappedDatatype is the primitive a value property is stored as.
func (p *Property) MappedDatatype() string {
	if p.Datatype != nil {
		if p.Datatype.BaseDatatype != "" {
			return p.Datatype.BaseDatatype
		}
		return p.Datatype.Name
	}
	return p.DatatypeName
}

// ColumnType maps the property's datatype to a storage type.
func (p *Property) ColumnType() ColumnType {
	switch p.MappedDatatype() {
	case "Float", "Decimal":
		return ColumnFloat
	case "Integer":
		return ColumnInteger
	case "Boolean":
		return ColumnBoolean
	default:
		return ColumnString
	}
}

// Column is the column name holding the property on its class table.
func (p *Property) Column() string {
	switch p.Kind() {
	case KindReference:
		return p.Key() + "_id"
	case KindEnumeration:
		return p.Key() + "_name"
	default:
		return p.Key()
	}
}

// Association reports whether the property is stored in an association table.
func (p *Property) Association() bool {
	return p.Used && p.Kind() == KindReference && p.ManyRemote()
}

// AssociationTable names the many-to-many table of a used many-remote reference.
func (p *Property) AssociationTable() string {
	return ".asn_" + p.Class.FullName() + "_" + p.Range.FullName()
}

// AssociationColumns returns the owning and remote column names of the association table.
func (p *Property) AssociationColumns() (local, remote string) {
	local = p.Class.FullName() + "_id"
	remote = p.Range.FullName() + "_id"
	if local == remote {
		remote += "_remote"
	}
	return local, remote
}

// IsAllowedIn reports whether the property may appear in the given profile.
func (p *Property) IsAllowedIn(profile string) bool {
	if p.DefinedIn == profile {
		return true
	}
	for _, a := range p.AllowedIn {
		if a == profile {
			return true
		}
	}
	return false
}

// RangeLabel names the range as the schema does: the target class, the
// enumeration or the CIM datatype such as Resistance.
func (p *Property) RangeLabel() string {
	switch p.Kind() {
	case KindReference:
		return p.Range.Name
	case KindEnumeration:
		return p.RangeEnum.Name
	default:
		if p.Datatype != nil {
			return p.Datatype.Name
		}
		return p.DatatypeName
	}
}

func (p *Property) inferInverse() *Property {
	return &Property{
		Name:           p.InverseName,
		Namespace:      p.InverseNamespace,
		ClassName:      p.Range.Name,
		Multiplicity:   "0..n",
		RangeName:      p.Class.Name,
		RangeNamespace: p.Class.Namespace,
		Used:           false,
		Inferred:       true,
		DefinedIn:      p.DefinedIn,
		AllowedIn:      p.AllowedIn,
		Class:          p.Range,
		Range:          p.Class,
		Inverse:        p,
	}
}
