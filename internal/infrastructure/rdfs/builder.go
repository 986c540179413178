package rdfs

import (
	"strings"

	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfxml"
)

type builder struct {
	schema *schema.Schema
	nsmap  rdfxml.NSMap
	logger *zap.Logger
	descs  map[string]*description
	order  []string

	classNS map[string]string
}

func (b *builder) add(d *description) {
	if d.about == "" {
		return
	}
	if existing, ok := b.descs[d.about]; ok {
		existing.merge(d)
		return
	}
	b.descs[d.about] = d
	b.order = append(b.order, d.about)
}

// build classifies the merged descriptions: classes, enumerations and
// datatypes first, then properties and enumeration values which refer to them.
func (b *builder) build() error {
	var props, values []*description
	enums := make(map[string]*schema.Enum)
	datatypes := make(map[string]*schema.Datatype)

	for _, about := range b.order {
		d := b.descs[about]
		switch {
		case d.hasType("#Class"):
			switch {
			case d.hasStereotypeResource("#enumeration"):
				e := &schema.Enum{
					Name:      b.name(d),
					Namespace: b.namespace(d),
					Package:   b.category(d),
					DefinedIn: d.profiles[0],
					UsedIn:    d.profiles,
				}
				enums[e.Name] = e
				b.schema.AddEnum(e)
			case d.hasStereotypeText("CIMDatatype", "Primitive"):
				dt := &schema.Datatype{
					Name:       b.name(d),
					Namespace:  b.namespace(d),
					Package:    b.category(d),
					DefinedIn:  d.profiles[0],
					Stereotype: b.first(d, "stereotype", filterStereotype(d.stereoTexts)),
				}
				datatypes[dt.Name] = dt
				b.schema.AddDatatype(dt)
			default:
				b.schema.AddClass(b.class(d))
			}
		case d.hasType("#Property"):
			props = append(props, d)
		case d.hasType("#ClassCategory"):
			b.schema.AddPackage(&schema.Package{
				Name:      strings.TrimPrefix(b.name(d), "Package_"),
				Namespace: b.namespace(d),
				DefinedIn: d.profiles[0],
			})
		case len(d.types) > 0:
			values = append(values, d)
		default:
			b.logger.Warn("Element without rdf:type skipped", zap.String("element", d.about))
		}
	}

	for _, d := range props {
		domain := b.first(d, "domain", d.domains)
		_, domainName := b.nsmap.Split(domain)
		if dt, ok := datatypes[domainName]; ok {
			b.datatypeField(dt, d)
			continue
		}
		p, err := b.property(d, domainName)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		b.schema.AddClass(&schema.Class{
			Name:      domainName,
			Namespace: b.classNamespace(domainName),
			Props:     []*schema.Property{p},
		})
	}

	for _, d := range values {
		_, enumName := b.nsmap.Split(d.types[0])
		e, ok := enums[enumName]
		if !ok {
			b.logger.Warn("Element of unknown type skipped",
				zap.String("element", d.about),
				zap.String("type", d.types[0]))
			continue
		}
		e.AddValue(&schema.EnumValue{
			Name:      b.name(d),
			Namespace: e.Namespace,
			DefinedIn: d.profiles[0],
		})
	}
	return nil
}

func (b *builder) class(d *description) *schema.Class {
	c := &schema.Class{
		Name:      b.name(d),
		Namespace: b.namespace(d),
		Package:   b.category(d),
		DefinedIn: d.profiles[0],
		UsedIn:    d.profiles,
	}
	if parent := b.first(d, "subClassOf", d.subClassOf); parent != "" {
		c.ParentNamespace, c.ParentName = b.nsmap.Split(parent)
		if _, ok := b.classNamespaces()[c.ParentName]; ok {
			c.ParentNamespace = b.classNamespace(c.ParentName)
		}
	}
	return c
}

func (b *builder) property(d *description, domainName string) (*schema.Property, error) {
	if !b.isClass(domainName) {
		b.logger.Warn("Property of unknown class skipped",
			zap.String("property", d.about),
			zap.String("domain", domainName))
		return nil, nil
	}
	p := &schema.Property{
		Name:      b.name(d),
		Namespace: b.namespace(d),
		ClassName: domainName,
		DefinedIn: d.profiles[0],
		AllowedIn: d.profiles,
	}
	if m := b.first(d, "multiplicity", d.multiplicities); m != "" {
		_, local := b.nsmap.Split(m)
		p.Multiplicity = strings.TrimPrefix(local, "M:")
	}
	if r := b.first(d, "range", d.ranges); r != "" {
		p.RangeNamespace, p.RangeName = b.nsmap.Split(r)
	}
	if dt := b.first(d, "dataType", d.dataTypes); dt != "" {
		p.DatatypeNamespace, p.DatatypeName = b.nsmap.Split(dt)
	}
	if inv := b.first(d, "inverseRoleName", d.inverses); inv != "" {
		ns, local := b.nsmap.Split(inv)
		if cls, name, ok := strings.Cut(local, "."); ok {
			p.InverseNamespace, p.InverseClass, p.InverseName = ns, cls, name
		}
	}
	if len(d.associationUsed) > 1 {
		return nil, shared.Wrap(shared.ErrAmbiguous, "AssociationUsed of %s: %s", d.about, strings.Join(d.associationUsed, ", "))
	}
	p.Used = p.InverseName == "" || (len(d.associationUsed) == 1 && d.associationUsed[0] == "Yes")
	return p, nil
}

func (b *builder) datatypeField(dt *schema.Datatype, d *description) {
	name := b.name(d)
	fixed := b.first(d, "isFixed", d.fixed)
	switch {
	case strings.HasSuffix(name, "denominatorUnit"):
		dt.DenominatorUnit = fixed
	case strings.HasSuffix(name, "denominatorMultiplier"):
		dt.DenominatorMultiplier = fixed
	case strings.HasSuffix(name, "value"):
		if v := b.first(d, "dataType", d.dataTypes); v != "" {
			_, dt.BaseDatatype = b.nsmap.Split(v)
		}
	case strings.HasSuffix(name, "unit"):
		dt.Unit = fixed
	case strings.HasSuffix(name, "multiplier"):
		dt.Multiplier = fixed
	}
}

func (b *builder) name(d *description) string {
	if len(d.labels) > 0 {
		return d.labels[0]
	}
	_, local := b.nsmap.Split(d.about)
	if i := strings.LastIndex(local, "."); i >= 0 {
		local = local[i+1:]
	}
	return local
}

// namespace is entsoe for elements with the Entsoe stereotype and the
// namespace of the element's identifier otherwise.
func (b *builder) namespace(d *description) string {
	if d.hasStereotypeText("Entsoe") {
		return schema.NamespaceEntsoe
	}
	ns, _ := b.nsmap.Split(d.about)
	return ns
}

func (b *builder) category(d *description) string {
	c := b.first(d, "belongsToCategory", d.categories)
	if c == "" {
		return ""
	}
	_, local := b.nsmap.Split(c)
	return strings.TrimPrefix(local, "Package_")
}

// first returns the first value of a single-valued field and logs when
// merged descriptions disagree.
func (b *builder) first(d *description, field string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) > 1 {
		b.logger.Warn("Ambiguous schema definition, using first value",
			zap.String("element", d.about),
			zap.String("field", field),
			zap.Strings("values", values))
	}
	return values[0]
}

func (b *builder) isClass(name string) bool {
	_, ok := b.classNamespaces()[name]
	return ok
}

func (b *builder) classNamespace(name string) string {
	return b.classNamespaces()[name]
}

func (b *builder) classNamespaces() map[string]string {
	if b.classNS != nil {
		return b.classNS
	}
	b.classNS = make(map[string]string)
	for _, d := range b.descs {
		if d.hasType("#Class") && !d.hasStereotypeResource("#enumeration") && !d.hasStereotypeText("CIMDatatype", "Primitive") {
			b.classNS[b.name(d)] = b.namespace(d)
		}
	}
	return b.classNS
}

func filterStereotype(texts []string) []string {
	var out []string
	for _, t := range texts {
		if t == "CIMDatatype" || t == "Primitive" {
			out = append(out, t)
		}
	}
	return out
}
