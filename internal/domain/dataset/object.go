// Package dataset defines CIM instance objects, their provenance and the
// repository contract used to persist and navigate them.
package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// Object is one instance of a CIM class. Values hold primitive attributes
// (string, float64, int64, bool), Refs single references by target id,
// Enums enumeration value labels and Links many-to-many target ids.
type Object struct {
	ID       string              `json:"id" yaml:"id"`
	Class    string              `json:"class" yaml:"class"`
	SourceID uint                `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	Values   map[string]any      `json:"values,omitempty" yaml:"values,omitempty"`
	Refs     map[string]string   `json:"refs,omitempty" yaml:"refs,omitempty"`
	Enums    map[string]string   `json:"enums,omitempty" yaml:"enums,omitempty"`
	Links    map[string][]string `json:"links,omitempty" yaml:"links,omitempty"`
}

// NewObject creates an empty object of the given class key.
func NewObject(class, id string) *Object {
	return &Object{
		ID:     id,
		Class:  class,
		Values: make(map[string]any),
		Refs:   make(map[string]string),
		Enums:  make(map[string]string),
		Links:  make(map[string][]string),
	}
}

// SetValue sets a primitive attribute.
func (o *Object) SetValue(key string, v any) *Object {
	o.Values[key] = v
	return o
}

// SetRef sets a single reference.
func (o *Object) SetRef(key, id string) *Object {
	o.Refs[key] = id
	return o
}

// SetEnum sets an enumeration value label.
func (o *Object) SetEnum(key, label string) *Object {
	o.Enums[key] = label
	return o
}

// AddLink appends a many-to-many target unless it is already linked.
func (o *Object) AddLink(key, id string) *Object {
	for _, existing := range o.Links[key] {
		if existing == id {
			return o
		}
	}
	o.Links[key] = append(o.Links[key], id)
	return o
}

// Get returns the stored value of a property of any kind.
func (o *Object) Get(key string) (any, bool) {
	if v, ok := o.Values[key]; ok {
		return v, true
	}
	if v, ok := o.Refs[key]; ok {
		return v, true
	}
	if v, ok := o.Enums[key]; ok {
		return v, true
	}
	if v, ok := o.Links[key]; ok {
		return v, true
	}
	return nil, false
}

// Keys returns every set property key, sorted.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.Values)+len(o.Refs)+len(o.Enums)+len(o.Links))
	for k := range o.Values {
		keys = append(keys, k)
	}
	for k := range o.Refs {
		keys = append(keys, k)
	}
	for k := range o.Enums {
		keys = append(keys, k)
	}
	for k := range o.Links {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the object against its class: the class must exist, every
// set key must be a stored property of the matching kind and every value must
// fit the column type of its property. Floats must be finite.
func (o *Object) Validate(s *schema.Schema) (*schema.Class, error) {
	if o.ID == "" {
		return nil, shared.Wrap(shared.ErrInvalidInput, "object of class %s has no id", o.Class)
	}
	cls, err := s.Class(o.Class)
	if err != nil {
		return nil, err
	}
	check := func(key string, kinds ...schema.PropertyKind) (*schema.Property, error) {
		p, err := cls.Prop(key)
		if err != nil {
			return nil, shared.Wrap(shared.ErrInvalidInput, "%s has no property %q", cls.Name, key)
		}
		if !p.Used {
			return nil, shared.Wrap(shared.ErrInvalidInput, "%s.%s is stored on the inverse side", cls.Name, key)
		}
		for _, k := range kinds {
			if p.Kind() == k {
				return p, nil
			}
		}
		return nil, shared.Wrap(shared.ErrInvalidInput, "%s.%s is a %s property", cls.Name, key, p.Kind())
	}
	for key, v := range o.Values {
		p, err := check(key, schema.KindValue)
		if err != nil {
			return nil, err
		}
		if err := checkValue(p, v); err != nil {
			return nil, shared.Wrap(shared.ErrInvalidInput, "%s.%s: %v", cls.Name, key, err)
		}
	}
	for key := range o.Refs {
		p, err := check(key, schema.KindReference)
		if err != nil {
			return nil, err
		}
		if p.ManyRemote() {
			return nil, shared.Wrap(shared.ErrInvalidInput, "%s.%s holds several references, use links", cls.Name, key)
		}
	}
	for key := range o.Enums {
		if _, err := check(key, schema.KindEnumeration); err != nil {
			return nil, err
		}
	}
	for key := range o.Links {
		p, err := check(key, schema.KindReference)
		if err != nil {
			return nil, err
		}
		if !p.ManyRemote() {
			return nil, shared.Wrap(shared.ErrInvalidInput, "%s.%s holds a single reference", cls.Name, key)
		}
	}
	return cls, nil
}

// checkValue accepts nil (unset) and the Go types the column type of p is
// stored as.
func checkValue(p *schema.Property, v any) error {
	if v == nil {
		return nil
	}
	switch p.ColumnType() {
	case schema.ColumnFloat:
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case float32:
			f = float64(x)
		case int, int32, int64:
			return nil
		default:
			return fmt.Errorf("%T is not a %s value", v, p.MappedDatatype())
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%v is not a finite number", f)
		}
	case schema.ColumnInteger:
		switch v.(type) {
		case int, int32, int64:
		default:
			return fmt.Errorf("%T is not a %s value", v, p.MappedDatatype())
		}
	case schema.ColumnBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%T is not a %s value", v, p.MappedDatatype())
		}
	default:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%T is not a %s value", v, p.MappedDatatype())
		}
	}
	return nil
}
