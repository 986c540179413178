// Package serializer writes the objects of a dataset as CIM RDF/XML.
package serializer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// Mode selects how objects are split into documents.
type Mode string

const (
	// ModeSingle writes every object into one document.
	ModeSingle Mode = "single"
	// ModeMulti writes one document per profile.
	ModeMulti Mode = "multi"
)

// ParseMode converts a mode name. The empty string selects ModeSingle.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModeMulti:
		return ModeMulti, nil
	}
	return "", shared.Wrap(shared.ErrInvalidInput, "unknown export mode %q", s)
}

// DefaultModelingAuthoritySet is written when no authority is configured.
const DefaultModelingAuthoritySet = "CIMPyORM-Export"

// pageSize bounds the number of objects read per query.
const pageSize = 5000

// Default namespaces of exported documents. Namespaces of the schema take
// precedence.
var defaultNamespaces = map[string]string{
	schema.NamespaceCIM:    "http://iec.ch/TC57/2013/CIM-schema-cim16#",
	schema.NamespaceEntsoe: "http://entsoe.eu/CIM/SchemaExtension/3/1#",
	schema.NamespaceMD:     "http://iec.ch/TC57/61970-552/ModelDescription/1#",
	schema.NamespaceRDF:    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
}

// Store is the read access the serializer needs.
type Store interface {
	Find(ctx context.Context, class *schema.Class, q dataset.Query) ([]*dataset.Object, error)
}

// Document is one serialized RDF/XML document.
type Document struct {
	// Name is the profile's short name in ModeMulti and "dataset" otherwise.
	Name    string
	Profile string
	Objects int
	Data    []byte
}

// Filename is the document's name inside an archive.
func (d Document) Filename() string {
	return d.Name + ".xml"
}

// Serializer walks a dataset class by class and emits its objects.
type Serializer struct {
	schema *schema.Schema
	store  Store
	logger *zap.Logger

	mode         Mode
	profiles     []string
	authority    string
	scenarioTime string
	now          func() time.Time
	newID        func() string
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Serializer) {
		s.logger = logger
	}
}

// WithMode selects single or per-profile output.
func WithMode(m Mode) Option {
	return func(s *Serializer) {
		s.mode = m
	}
}

// WithProfiles restricts ModeMulti output to the given profiles (full or short names).
func WithProfiles(profiles ...string) Option {
	return func(s *Serializer) {
		s.profiles = profiles
	}
}

// WithModelingAuthoritySet sets md:Model.modelingAuthoritySet.
func WithModelingAuthoritySet(mas string) Option {
	return func(s *Serializer) {
		if mas != "" {
			s.authority = mas
		}
	}
}

// WithScenarioTime sets md:Model.scenarioTime.
func WithScenarioTime(t string) Option {
	return func(s *Serializer) {
		s.scenarioTime = t
	}
}

// WithClock replaces the clock used for md:Model.created.
func WithClock(now func() time.Time) Option {
	return func(s *Serializer) {
		s.now = now
	}
}

// WithModelID replaces the generator of FullModel identifiers.
func WithModelID(newID func() string) Option {
	return func(s *Serializer) {
		s.newID = newID
	}
}

// New creates a serializer for the objects of store.
func New(s *schema.Schema, store Store, opts ...Option) *Serializer {
	ser := &Serializer{
		schema:    s,
		store:     store,
		logger:    zap.NewNop(),
		mode:      ModeSingle,
		authority: DefaultModelingAuthoritySet,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(ser)
	}
	return ser
}

// Namespaces returns the namespace declarations of exported documents.
func (s *Serializer) Namespaces() map[string]string {
	out := make(map[string]string, len(defaultNamespaces))
	for prefix, uri := range defaultNamespaces {
		out[prefix] = uri
	}
	for prefix, uri := range s.schema.Namespaces {
		if prefix != "" && uri != "" {
			out[prefix] = uri
		}
	}
	return out
}

// Serialize writes all objects. ModeSingle returns one document, ModeMulti
// one document per selected profile.
func (s *Serializer) Serialize(ctx context.Context) ([]Document, error) {
	writers, err := s.writers()
	if err != nil {
		return nil, err
	}

	for _, c := range s.schema.Classes() {
		var targets []*writer
		for _, w := range writers {
			if w.accepts(c) {
				targets = append(targets, w)
			}
		}
		if len(targets) == 0 {
			continue
		}
		for offset := 0; ; offset += pageSize {
			objects, err := s.store.Find(ctx, c, dataset.Query{Exact: true, Limit: pageSize, Offset: offset})
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", c.Name, err)
			}
			for _, obj := range objects {
				for _, w := range targets {
					if err := w.object(c, obj); err != nil {
						return nil, err
					}
				}
			}
			if len(objects) < pageSize {
				break
			}
		}
	}

	docs := make([]Document, 0, len(writers))
	for _, w := range writers {
		doc, err := w.close()
		if err != nil {
			return nil, err
		}
		s.logger.Info("Serialized dataset",
			zap.String("document", doc.Name),
			zap.Int("objects", doc.Objects),
			zap.Int("bytes", len(doc.Data)))
		docs = append(docs, doc)
	}
	return docs, nil
}

// Bytes serializes the dataset into a single buffer. ModeMulti output is
// bundled into a zip archive.
func (s *Serializer) Bytes(ctx context.Context) (*bytes.Buffer, error) {
	docs, err := s.Serialize(ctx)
	if err != nil {
		return nil, err
	}
	if s.mode == ModeSingle {
		return bytes.NewBuffer(docs[0].Data), nil
	}
	return Zip(docs)
}

func (s *Serializer) writers() ([]*writer, error) {
	header := s.header()
	namespaces := s.Namespaces()
	if s.mode != ModeMulti {
		w, err := newWriter("dataset", nil, namespaces, header)
		if err != nil {
			return nil, err
		}
		return []*writer{w}, nil
	}

	profiles, err := s.selectedProfiles()
	if err != nil {
		return nil, err
	}
	writers := make([]*writer, 0, len(profiles))
	for _, p := range profiles {
		h := header
		h.profiles = p.URIs
		name := p.Short
		if name == "" {
			name = p.Name
		}
		w, err := newWriter(name, p, namespaces, h)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	return writers, nil
}

func (s *Serializer) selectedProfiles() ([]*schema.Profile, error) {
	if len(s.profiles) == 0 {
		return s.schema.Profiles(), nil
	}
	out := make([]*schema.Profile, 0, len(s.profiles))
	for _, name := range s.profiles {
		p, err := s.schema.Profile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Serializer) header() fullModel {
	return fullModel{
		about:        "urn:uuid:" + s.newID(),
		authority:    s.authority,
		scenarioTime: s.scenarioTime,
		created:      s.now().UTC().Format("2006-01-02T15:04:05Z"),
	}
}
