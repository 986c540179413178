package schema

import (
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// Class is a CIM class. Classes form single inheritance chains.
type Class struct {
	Name            string
	Namespace       string
	Package         string
	DefinedIn       string
	UsedIn          []string
	ParentName      string
	ParentNamespace string
	Props           []*Property

	// Dropped lists properties whose range is not part of the loaded schema.
	Dropped []string

	Parent   *Class
	Children []*Class

	allProps []*Property
	schema   *Schema
}

// Key is the name used by instance documents and lookups.
func (c *Class) Key() string {
	return classKey(c.Namespace, c.Name)
}

// FullName is the namespace-qualified name, also used as table name.
func (c *Class) FullName() string {
	return elementKey(c.Namespace, c.Name)
}

// Tag is the qualified XML element name, e.g. "cim:Terminal".
func (c *Class) Tag() string {
	ns := c.Namespace
	if ns == "" {
		ns = NamespaceCIM
	}
	return ns + ":" + c.Name
}

// Root returns the top of the inheritance chain.
func (c *Class) Root() *Class {
	root := c
	for root.Parent != nil {
		root = root.Parent
	}
	return root
}

// Chain returns the inheritance chain from the root down to c.
func (c *Class) Chain() []*Class {
	var chain []*Class
	for cur := c; cur != nil; cur = cur.Parent {
		chain = append([]*Class{cur}, chain...)
	}
	return chain
}

// IsA reports whether c is other or one of its descendants.
func (c *Class) IsA(other *Class) bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Descendants returns c and every class inheriting from it, breadth first.
func (c *Class) Descendants() []*Class {
	out := []*Class{c}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].Children...)
	}
	return out
}

// IsUsedIn reports whether the class is used in the given profile.
func (c *Class) IsUsedIn(profile string) bool {
	if c.DefinedIn == profile {
		return true
	}
	for _, p := range c.UsedIn {
		if p == profile {
			return true
		}
	}
	return false
}

// AllProps returns the inherited properties followed by the native ones.
// Call Link on the owning schema first.
func (c *Class) AllProps() []*Property {
	if c.allProps == nil {
		props, _ := c.computeAllProps()
		return props
	}
	return c.allProps
}

// Prop looks up a property of the class hierarchy by key.
func (c *Class) Prop(key string) (*Property, error) {
	for _, p := range c.AllProps() {
		if p.Key() == key {
			return p, nil
		}
	}
	return nil, shared.Wrap(shared.ErrNotFound, "property %q of class %q", key, c.Name)
}

// UsedProps returns all properties whose values are stored with this class hierarchy.
func (c *Class) UsedProps() []*Property {
	var out []*Property
	for _, p := range c.AllProps() {
		if p.Used {
			out = append(out, p)
		}
	}
	return out
}

// NativeUsedProps returns the stored properties declared on the class itself.
func (c *Class) NativeUsedProps() []*Property {
	var out []*Property
	for _, p := range c.Props {
		if p.Used {
			out = append(out, p)
		}
	}
	return out
}

func (c *Class) computeAllProps() ([]*Property, error) {
	var inherited []*Property
	if c.Parent != nil {
		var err error
		inherited, err = c.Parent.computeAllProps()
		if err != nil {
			return nil, err
		}
	}
	seen := make(map[string]struct{}, len(inherited)+len(c.Props))
	out := make([]*Property, 0, len(inherited)+len(c.Props))
	for _, p := range inherited {
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	for _, p := range c.Props {
		if _, ok := seen[p.Key()]; ok {
			return nil, shared.Wrap(shared.ErrInconsistent, "duplicate attribute %q in hierarchy of %s", p.Key(), c.Name)
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	c.allProps = out
	return out, nil
}

func (c *Class) nativeProp(name string) *Property {
	for _, p := range c.Props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (c *Class) checkCycle() error {
	seen := map[*Class]struct{}{}
	for cur := c; cur != nil; cur = cur.Parent {
		if _, ok := seen[cur]; ok {
			return shared.Wrap(shared.ErrInconsistent, "inheritance cycle at class %q", c.Name)
		}
		seen[cur] = struct{}{}
	}
	return nil
}

// merge folds another description of the same class into c.
func (c *Class) merge(other *Class) {
	if c.ParentName == "" {
		c.ParentName, c.ParentNamespace = other.ParentName, other.ParentNamespace
	}
	if c.Package == "" {
		c.Package = other.Package
	}
	if c.DefinedIn == "" {
		c.DefinedIn = other.DefinedIn
	}
	c.UsedIn = mergeStrings(c.UsedIn, other.UsedIn)
	if other.DefinedIn != "" {
		c.UsedIn = mergeStrings(c.UsedIn, []string{other.DefinedIn})
	}
	for _, p := range other.Props {
		if existing := c.nativeProp(p.Name); existing != nil && existing.Namespace == p.Namespace {
			existing.AllowedIn = mergeStrings(existing.AllowedIn, p.AllowedIn)
			continue
		}
		c.Props = append(c.Props, p)
	}
}
