package dataset

import (
	"context"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

// Query restricts an object listing.
type Query struct {
	// Exact excludes objects of subclasses.
	Exact  bool
	Limit  int
	Offset int
}

// Repository persists and reads objects of a linked schema.
type Repository interface {
	// Insert stores objects. The caller owns the transaction.
	Insert(ctx context.Context, objects []*Object) error
	// Delete removes an object from every table of its class chain.
	Delete(ctx context.Context, obj *Object) error
	// Find lists objects of a class and, unless q.Exact, its subclasses.
	Find(ctx context.Context, class *schema.Class, q Query) ([]*Object, error)
	// Get loads one object of class (or a subclass) with all of its properties.
	Get(ctx context.Context, class *schema.Class, id string) (*Object, error)
	// Count counts objects of a class and its subclasses.
	Count(ctx context.Context, class *schema.Class) (int64, error)
	// IDs returns the identifiers of all objects of class and its subclasses.
	IDs(ctx context.Context, class *schema.Class) (map[string]struct{}, error)
	// Related follows property p from the object with the given id.
	Related(ctx context.Context, p *schema.Property, id string) ([]*Object, error)
}

// SourceRepository persists SourceInfo records.
type SourceRepository interface {
	SaveSources(ctx context.Context, sources []*SourceInfo) error
	Sources(ctx context.Context) ([]*SourceInfo, error)
}
