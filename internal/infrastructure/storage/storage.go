package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/serializer"
)

// ContentTypeXML is the content type of exported RDF/XML documents.
const ContentTypeXML = "application/rdf+xml"

// ObjectStorage stores exported documents.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	ObjectExists(ctx context.Context, key string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
	// Location returns where the object under key can be read from.
	Location(ctx context.Context, key string) (string, error)
}

// Key joins prefix and name into an object key.
func Key(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Store uploads every document below prefix and returns their locations in
// document order.
func Store(ctx context.Context, s ObjectStorage, prefix string, docs []serializer.Document) ([]string, error) {
	locations := make([]string, 0, len(docs))
	for _, doc := range docs {
		key := Key(prefix, doc.Filename())
		if err := s.Upload(ctx, key, doc.Data, ContentTypeXML); err != nil {
			return locations, fmt.Errorf("store %s: %w", doc.Name, err)
		}
		loc, err := s.Location(ctx, key)
		if err != nil {
			return locations, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
