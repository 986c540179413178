// Package lint checks persisted CIM objects against the multiplicity,
// reference and enumeration constraints of their schema.
package lint

import (
	"context"
	"fmt"
	"sort"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

// Store is the read access the linter needs.
type Store interface {
	Find(ctx context.Context, class *schema.Class, q dataset.Query) ([]*dataset.Object, error)
	IDs(ctx context.Context, class *schema.Class) (map[string]struct{}, error)
}

// Linter walks all persisted objects of a schema.
type Linter struct {
	schema *schema.Schema
	store  Store
}

// New creates a linter.
func New(s *schema.Schema, store Store) *Linter {
	return &Linter{schema: s, store: store}
}

// violationKey identifies a class by its namespace-qualified key, so that
// same-named classes of different namespaces are reported apart.
type violationKey struct {
	class, property string
	kind            Kind
}

type aggregate struct {
	total  int
	unique map[string]struct{}
}

// Run checks every object and aggregates violations per class, property and kind.
// Violations are never returned as errors; err is only set when reading fails.
func (l *Linter) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	found := make(map[violationKey]*aggregate)
	ids := make(map[*schema.Class]map[string]struct{})
	skipped := make(map[string]struct{})

	record := func(cls *schema.Class, p *schema.Property, kind Kind, value string) {
		key := violationKey{class: cls.Key(), property: p.Key(), kind: kind}
		agg, ok := found[key]
		if !ok {
			agg = &aggregate{unique: make(map[string]struct{})}
			found[key] = agg
		}
		agg.total++
		agg.unique[value] = struct{}{}
	}

	for _, cls := range l.schema.Classes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		objects, err := l.store.Find(ctx, cls, dataset.Query{Exact: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s objects: %w", cls.Name, err)
		}
		if len(objects) == 0 {
			continue
		}
		report.Objects += len(objects)

		for _, p := range cls.AllProps() {
			if !p.Used {
				continue
			}
			if p.Association() {
				name := cls.Key() + "." + p.Key()
				if _, ok := skipped[name]; !ok {
					skipped[name] = struct{}{}
					report.Skipped = append(report.Skipped, Skipped{
						Class: cls.Key(), Property: p.Key(), Reason: "many-to-many validation is not supported",
					})
				}
				continue
			}

			var targets map[string]struct{}
			if p.Kind() == schema.KindReference {
				set, ok := ids[p.Range]
				if !ok {
					set, err = l.store.IDs(ctx, p.Range)
					if err != nil {
						return nil, fmt.Errorf("failed to read %s identifiers: %w", p.Range.Name, err)
					}
					ids[p.Range] = set
				}
				targets = set
			}

			for _, obj := range objects {
				switch p.Kind() {
				case schema.KindValue:
					if _, ok := obj.Values[p.Key()]; !ok && !p.Optional() {
						record(cls, p, MissingValue, obj.ID)
					}
				case schema.KindEnumeration:
					label, ok := obj.Enums[p.Key()]
					switch {
					case !ok && !p.Optional():
						record(cls, p, MissingValue, obj.ID)
					case ok && !p.RangeEnum.Has(label):
						record(cls, p, InvalidEnum, label)
					}
				case schema.KindReference:
					target, ok := obj.Refs[p.Key()]
					switch {
					case !ok && !p.Optional():
						record(cls, p, MissingReference, obj.ID)
					case ok:
						if _, exists := targets[target]; !exists {
							record(cls, p, InvalidReference, target)
						}
					}
				}
			}
		}
	}

	for key, agg := range found {
		report.Violations = append(report.Violations, Violation{
			Class:    key.class,
			Property: key.property,
			Kind:     key.kind,
			Total:    agg.total,
			Unique:   len(agg.unique),
		})
	}
	sort.Slice(report.Violations, func(i, j int) bool {
		a, b := report.Violations[i], report.Violations[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Property != b.Property {
			return a.Property < b.Property
		}
		return a.Kind < b.Kind
	})
	return report, nil
}
