package schema

// Datatype is a CIM datatype: a primitive or a CIMDatatype carrying a value,
// a unit and a multiplier.
type Datatype struct {
	Name                  string
	Namespace             string
	Package               string
	DefinedIn             string
	Stereotype            string
	BaseDatatype          string
	Unit                  string
	Multiplier            string
	DenominatorUnit       string
	DenominatorMultiplier string
}

// Key is the namespace-qualified name of the datatype.
func (d *Datatype) Key() string {
	return elementKey(d.Namespace, d.Name)
}

// Primitive reports whether the datatype is a primitive.
func (d *Datatype) Primitive() bool {
	return d.Stereotype == "Primitive"
}

func (d *Datatype) merge(other *Datatype) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&d.Package, other.Package)
	fill(&d.DefinedIn, other.DefinedIn)
	fill(&d.Stereotype, other.Stereotype)
	fill(&d.BaseDatatype, other.BaseDatatype)
	fill(&d.Unit, other.Unit)
	fill(&d.Multiplier, other.Multiplier)
	fill(&d.DenominatorUnit, other.DenominatorUnit)
	fill(&d.DenominatorMultiplier, other.DenominatorMultiplier)
}
