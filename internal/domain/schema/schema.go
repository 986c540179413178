// Package schema holds the in-memory model of a CIM RDFS schema: namespaces,
// profiles, packages, classes, properties, enumerations and datatypes.
//
// A Schema is assembled by a loader (RDFS files or persisted metadata) through
// the Add* methods and then resolved with Link, which wires references between
// elements, synthesizes inferred inverse properties and validates the result.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// Well-known namespace prefixes.
const (
	NamespaceCIM    = "cim"
	NamespaceEntsoe = "entsoe"
	NamespaceMD     = "md"
	NamespaceRDF    = "rdf"
)

// Namespace is an XML namespace associated with schema elements.
type Namespace struct {
	Short    string `json:"short" yaml:"short"`
	FullName string `json:"full_name" yaml:"full_name"`
}

// Profile is a named grouping of schema elements, e.g. the CGMES Equipment profile.
type Profile struct {
	Name  string   `json:"name" yaml:"name"`
	Short string   `json:"short" yaml:"short"`
	URIs  []string `json:"uris,omitempty" yaml:"uris,omitempty"`
}

// Matches reports whether the profile is referenced by its full or short name.
func (p *Profile) Matches(name string) bool {
	return p.Name == name || (p.Short != "" && p.Short == name)
}

// Package is a ClassCategory of the schema.
type Package struct {
	Name      string
	Namespace string
	DefinedIn string
}

// Key is the namespace-qualified name of the package.
func (p *Package) Key() string {
	return elementKey(p.Namespace, p.Name)
}

// Schema is the resolved CIM schema.
type Schema struct {
	Version    string
	Namespaces map[string]string

	profiles   []*Profile
	packages   map[string]*Package
	classes    map[string]*Class
	enums      map[string]*Enum
	datatypes  map[string]*Datatype
	hierarchy  []*Class
	linked     bool
	classOrder []string
}

// New creates an empty schema for the given CIM version and namespace map.
func New(version string, namespaces map[string]string) *Schema {
	ns := make(map[string]string, len(namespaces))
	for k, v := range namespaces {
		ns[k] = v
	}
	return &Schema{
		Version:    version,
		Namespaces: ns,
		packages:   make(map[string]*Package),
		classes:    make(map[string]*Class),
		enums:      make(map[string]*Enum),
		datatypes:  make(map[string]*Datatype),
	}
}

// AddProfile registers a profile. Profiles keep insertion order.
func (s *Schema) AddProfile(p *Profile) {
	for _, existing := range s.profiles {
		if existing.Name == p.Name {
			if existing.Short == "" {
				existing.Short = p.Short
			}
			existing.URIs = mergeStrings(existing.URIs, p.URIs)
			return
		}
	}
	s.profiles = append(s.profiles, p)
}

// AddPackage registers a package.
func (s *Schema) AddPackage(p *Package) {
	s.packages[p.Key()] = p
}

// AddClass registers a class. A class registered twice is merged.
func (s *Schema) AddClass(c *Class) {
	key := c.Key()
	if existing, ok := s.classes[key]; ok {
		existing.merge(c)
		return
	}
	s.classes[key] = c
	s.classOrder = append(s.classOrder, key)
	s.linked = false
}

// AddEnum registers an enumeration.
func (s *Schema) AddEnum(e *Enum) {
	key := elementKey(e.Namespace, e.Name)
	if existing, ok := s.enums[key]; ok {
		existing.UsedIn = mergeStrings(existing.UsedIn, e.UsedIn)
		for _, v := range e.Values {
			existing.AddValue(v)
		}
		return
	}
	s.enums[key] = e
}

// AddDatatype registers a datatype.
func (s *Schema) AddDatatype(d *Datatype) {
	key := elementKey(d.Namespace, d.Name)
	if existing, ok := s.datatypes[key]; ok {
		existing.merge(d)
		return
	}
	s.datatypes[key] = d
}

// Profiles returns the registered profiles in insertion order.
func (s *Schema) Profiles() []*Profile {
	return s.profiles
}

// Profile returns a profile by full or short name.
func (s *Schema) Profile(name string) (*Profile, error) {
	for _, p := range s.profiles {
		if p.Matches(name) {
			return p, nil
		}
	}
	return nil, shared.Wrap(shared.ErrNotFound, "profile %q", name)
}

// Packages returns all packages sorted by name.
func (s *Schema) Packages() []*Package {
	out := make([]*Package, 0, len(s.packages))
	for _, p := range s.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Class returns a class by key ("Terminal", "entsoe_EnergySchedulingType") or full name.
func (s *Schema) Class(name string) (*Class, error) {
	if c, ok := s.classes[name]; ok {
		return c, nil
	}
	if rest, ok := strings.CutPrefix(name, NamespaceCIM+"_"); ok {
		if c, ok := s.classes[rest]; ok {
			return c, nil
		}
	}
	return nil, shared.Wrap(shared.ErrNotFound, "class %q", name)
}

// HasClass reports whether a class with the given key exists.
func (s *Schema) HasClass(name string) bool {
	_, err := s.Class(name)
	return err == nil
}

// Classes returns all classes in hierarchy order (breadth first from the roots).
func (s *Schema) Classes() []*Class {
	if s.linked {
		return s.hierarchy
	}
	out := make([]*Class, 0, len(s.classOrder))
	for _, key := range s.classOrder {
		out = append(out, s.classes[key])
	}
	return out
}

// Enum returns an enumeration by namespace-qualified key or plain name.
func (s *Schema) Enum(name string) (*Enum, error) {
	if e, ok := s.enums[name]; ok {
		return e, nil
	}
	if e, ok := s.enums[elementKey(NamespaceCIM, name)]; ok {
		return e, nil
	}
	return nil, shared.Wrap(shared.ErrNotFound, "enumeration %q", name)
}

// Enums returns all enumerations sorted by name.
func (s *Schema) Enums() []*Enum {
	out := make([]*Enum, 0, len(s.enums))
	for _, e := range s.enums {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Datatype returns a datatype by key or plain name.
func (s *Schema) Datatype(name string) (*Datatype, error) {
	if d, ok := s.datatypes[name]; ok {
		return d, nil
	}
	if d, ok := s.datatypes[elementKey(NamespaceCIM, name)]; ok {
		return d, nil
	}
	return nil, shared.Wrap(shared.ErrNotFound, "datatype %q", name)
}

// Datatypes returns all datatypes sorted by name.
func (s *Schema) Datatypes() []*Datatype {
	out := make([]*Datatype, 0, len(s.datatypes))
	for _, d := range s.datatypes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// NamespaceURI returns the full URI of a namespace prefix.
func (s *Schema) NamespaceURI(short string) string {
	return s.Namespaces[short]
}

// Link resolves parents, property ranges, datatypes and inverses, computes the
// class hierarchy and validates the schema. It is idempotent.
func (s *Schema) Link() error {
	for _, c := range s.classes {
		c.Parent = nil
		c.Children = nil
		c.allProps = nil
		c.schema = s
	}

	for _, key := range s.classOrder {
		c := s.classes[key]
		if c.ParentName == "" {
			continue
		}
		parent := s.resolveClass(c.ParentNamespace, c.ParentName)
		if parent == nil {
			return shared.Wrap(shared.ErrInconsistent, "parent %q of class %q is not defined", c.ParentName, c.Name)
		}
		c.Parent = parent
		parent.Children = append(parent.Children, c)
	}
	for _, c := range s.classes {
		if err := c.checkCycle(); err != nil {
			return err
		}
	}

	if err := s.linkProperties(); err != nil {
		return err
	}
	s.buildHierarchy()

	for _, c := range s.hierarchy {
		if _, err := c.computeAllProps(); err != nil {
			return err
		}
	}
	s.linked = true
	return nil
}

func (s *Schema) linkProperties() error {
	for _, key := range s.classOrder {
		c := s.classes[key]
		kept := c.Props[:0]
		for _, p := range c.Props {
			if p.Inferred {
				continue
			}
			p.Class = c
			p.Range, p.RangeEnum, p.Inverse = nil, nil, nil
			if p.RangeName != "" {
				if rc := s.resolveClass(p.RangeNamespace, p.RangeName); rc != nil {
					p.Range = rc
				} else if e := s.resolveEnum(p.RangeNamespace, p.RangeName); e != nil {
					p.RangeEnum = e
				} else {
					// Range lives in a profile that was not loaded.
					c.Dropped = append(c.Dropped, p.Name)
					continue
				}
			}
			if p.DatatypeName != "" {
				p.Datatype = s.resolveDatatype(p.DatatypeNamespace, p.DatatypeName)
			}
			kept = append(kept, p)
		}
		c.Props = kept
	}

	for _, key := range s.classOrder {
		c := s.classes[key]
		for _, p := range c.Props {
			if p.InverseName == "" || p.Inverse != nil {
				continue
			}
			invClass := s.resolveClass(p.InverseNamespace, p.InverseClass)
			var inv *Property
			if invClass != nil {
				inv = invClass.nativeProp(p.InverseName)
			}
			if inv == nil {
				if p.Range == nil {
					continue
				}
				// The declared counterpart was not loaded, so this side has to store the association.
				p.Used = true
				inv = p.inferInverse()
				p.Range.Props = append(p.Range.Props, inv)
			}
			if inv.Inverse != nil && inv.Inverse != p {
				return shared.Wrap(shared.ErrInconsistent, "inverse of %s is %s, but %s declares %s",
					p.Tag(), inv.Tag(), inv.Tag(), inv.Inverse.Tag())
			}
			p.Inverse = inv
			inv.Inverse = p
		}
	}
	return nil
}

func (s *Schema) buildHierarchy() {
	roots := make([]*Class, 0)
	for _, key := range s.classOrder {
		if c := s.classes[key]; c.Parent == nil {
			roots = append(roots, c)
		}
	}
	sortClasses(roots)
	out := make([]*Class, 0, len(s.classes))
	queue := roots
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		out = append(out, c)
		sortClasses(c.Children)
		queue = append(queue, c.Children...)
	}
	s.hierarchy = out
}

func (s *Schema) resolveClass(namespace, name string) *Class {
	if namespace == "" {
		namespace = NamespaceCIM
	}
	if c, ok := s.classes[classKey(namespace, name)]; ok {
		return c
	}
	var found *Class
	for _, c := range s.classes {
		if c.Name == name {
			if found != nil {
				return nil
			}
			found = c
		}
	}
	return found
}

func (s *Schema) resolveEnum(namespace, name string) *Enum {
	if namespace == "" {
		namespace = NamespaceCIM
	}
	if e, ok := s.enums[elementKey(namespace, name)]; ok {
		return e
	}
	for _, e := range s.enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (s *Schema) resolveDatatype(namespace, name string) *Datatype {
	if namespace == "" {
		namespace = NamespaceCIM
	}
	if d, ok := s.datatypes[elementKey(namespace, name)]; ok {
		return d
	}
	for _, d := range s.datatypes {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func sortClasses(cs []*Class) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Key() < cs[j].Key() })
}

// classKey is the name instance documents use for a class: the bare name in
// the cim namespace, "<ns>_<name>" otherwise.
func classKey(namespace, name string) string {
	if namespace == "" || namespace == NamespaceCIM {
		return name
	}
	return namespace + "_" + name
}

func elementKey(namespace, name string) string {
	if namespace == "" {
		namespace = NamespaceCIM
	}
	return namespace + "_" + name
}

func mergeStrings(dst, src []string) []string {
	for _, v := range src {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(CIM%s, %d classes)", s.Version, len(s.classes))
}
