package schema

import (
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// Path returns the shortest chain of property keys leading from one class to
// another, following references in both directions. Properties inherited by
// a class are followed as well.
func (s *Schema) Path(from, to string) ([]string, error) {
	src, err := s.Class(from)
	if err != nil {
		return nil, err
	}
	dst, err := s.Class(to)
	if err != nil {
		return nil, err
	}
	if src == dst {
		return []string{}, nil
	}

	type step struct {
		class *Class
		via   string
		prev  *step
	}
	visited := map[*Class]struct{}{src: {}}
	queue := []*step{{class: src}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range cur.class.AllProps() {
			if p.Range == nil {
				continue
			}
			if _, ok := visited[p.Range]; ok {
				continue
			}
			next := &step{class: p.Range, via: p.Key(), prev: cur}
			if p.Range.IsA(dst) {
				var out []string
				for st := next; st.prev != nil; st = st.prev {
					out = append([]string{st.via}, out...)
				}
				return out, nil
			}
			visited[p.Range] = struct{}{}
			queue = append(queue, next)
		}
	}
	return nil, shared.Wrap(shared.ErrNotFound, "no path from %s to %s", src.Name, dst.Name)
}
