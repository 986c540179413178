package source

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfxml"
)

// Parser turns the elements of decoded sources into objects of a schema.
type Parser struct {
	schema   *schema.Schema
	prefixes map[string]string
	logger   *zap.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a parser for a linked schema and the dataset's namespace map.
func NewParser(s *schema.Schema, nsmap rdfxml.NSMap, opts ...ParserOption) *Parser {
	p := &Parser{
		schema:   s,
		prefixes: make(map[string]string, len(nsmap)),
		logger:   zap.NewNop(),
	}
	for prefix, uri := range nsmap {
		if prefix != "" {
			p.prefixes[uri] = prefix
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// element is one description of an object in one source.
type element struct {
	node     *rdfxml.Node
	class    string
	declared bool
	source   *Source
}

type entry struct {
	uuid     string
	elements []element
}

// Parse merges the descriptions of every object across all sources and
// converts them into objects. Elements of unknown classes are skipped;
// contradicting class declarations are errors.
func (p *Parser) Parse(sources []*Source) ([]*dataset.Object, error) {
	entries := p.merge(sources)

	skipped := make(map[string]int)
	objects := make([]*dataset.Object, 0, len(entries))
	for _, e := range entries {
		cls, err := p.resolveClass(e, skipped)
		if err != nil {
			return nil, err
		}
		if cls == nil {
			continue
		}
		objects = append(objects, p.object(cls, e))
	}

	names := make([]string, 0, len(skipped))
	for name := range skipped {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.logger.Warn(name+" not implemented. Skipping.", zap.Int("elements", skipped[name]))
	}
	return objects, nil
}

// merge groups the top-level elements of all sources by object uuid.
func (p *Parser) merge(sources []*Source) []*entry {
	index := make(map[string]*entry)
	var order []*entry
	for _, src := range sources {
		for _, n := range src.Doc.Root.Children {
			if n.Is(rdfxml.MD, "FullModel") {
				continue
			}
			uuid, declared := DetermineUUID(n)
			if uuid == "" {
				p.logger.Warn("Element without identifier skipped",
					zap.String("element", n.Name.Local),
					zap.String("file", src.Info.Filename))
				continue
			}
			e, ok := index[uuid]
			if !ok {
				e = &entry{uuid: uuid}
				index[uuid] = e
				order = append(order, e)
			}
			e.elements = append(e.elements, element{
				node:     n,
				class:    p.shorten(n),
				declared: declared,
				source:   src,
			})
		}
	}
	return order
}

// resolveClass picks the class of an object. The rdf:ID declaration fixes
// the class and rdf:about descriptions may use it or one of its ancestors.
// Without a declaration the most specific described class is used.
func (p *Parser) resolveClass(e *entry, skipped map[string]int) (*schema.Class, error) {
	var declared *schema.Class
	var described []*schema.Class
	for _, el := range e.elements {
		cls, err := p.schema.Class(el.class)
		if err != nil {
			skipped[el.class]++
			continue
		}
		if !el.declared {
			described = append(described, cls)
			continue
		}
		if declared != nil && declared != cls {
			return nil, shared.Wrap(shared.ErrAmbiguous, "object _%s is declared as %s and %s", e.uuid, declared.Name, cls.Name)
		}
		declared = cls
	}

	if declared != nil {
		for _, cls := range described {
			if declared.IsA(cls) {
				continue
			}
			if cls.IsA(declared) {
				return nil, shared.Wrap(shared.ErrInvalidInput,
					"declaration too generic: object _%s is declared as %s but described as %s", e.uuid, declared.Name, cls.Name)
			}
			return nil, shared.Wrap(shared.ErrAmbiguous,
				"object _%s is declared as %s but described as unrelated class %s", e.uuid, declared.Name, cls.Name)
		}
		return declared, nil
	}

	var best *schema.Class
	for _, cls := range described {
		switch {
		case best == nil || cls.IsA(best):
			best = cls
		case best.IsA(cls):
		default:
			return nil, shared.Wrap(shared.ErrAmbiguous, "object _%s is described as unrelated classes %s and %s", e.uuid, best.Name, cls.Name)
		}
	}
	return best, nil
}

func (p *Parser) object(cls *schema.Class, e *entry) *dataset.Object {
	obj := dataset.NewObject(cls.Key(), "_"+e.uuid)
	for _, el := range e.elements {
		if el.declared || obj.SourceID == 0 {
			obj.SourceID = el.source.Info.ID
		}
	}

	children := make(map[string][]*rdfxml.Node)
	for _, el := range e.elements {
		for _, child := range el.node.Children {
			prefix := p.prefixes[child.Name.Space]
			children[prefix+":"+child.Name.Local] = append(children[prefix+":"+child.Name.Local], child)
		}
	}

	for _, prop := range cls.UsedProps() {
		nodes := children[prop.Tag()]
		if len(nodes) == 0 {
			continue
		}
		switch {
		case prop.Association():
			for _, id := range p.links(nodes) {
				obj.AddLink(prop.Key(), id)
			}
		case prop.Kind() == schema.KindReference:
			if id, ok := p.single(obj, prop, references(nodes)); ok {
				obj.SetRef(prop.Key(), id)
			}
		case prop.Kind() == schema.KindEnumeration:
			labels := make([]string, 0, len(nodes))
			for _, n := range nodes {
				if r := n.Resource(); r != "" {
					labels = append(labels, schema.EnumLabel(r))
				} else if t := strings.TrimSpace(n.Text); t != "" {
					labels = append(labels, schema.EnumLabel(t))
				}
			}
			if label, ok := p.single(obj, prop, labels); ok {
				obj.SetEnum(prop.Key(), label)
			}
		default:
			texts := make([]string, 0, len(nodes))
			for _, n := range nodes {
				if t := strings.TrimSpace(n.Text); t != "" {
					texts = append(texts, t)
				}
			}
			text, ok := p.single(obj, prop, texts)
			if !ok {
				continue
			}
			if v, ok := p.convert(obj, prop, text); ok {
				obj.SetValue(prop.Key(), v)
			}
		}
	}
	return obj
}

// single reduces the values of a single-valued property. Several distinct
// values are reported and dropped.
func (p *Parser) single(obj *dataset.Object, prop *schema.Property, values []string) (string, bool) {
	values = distinct(values)
	switch len(values) {
	case 0:
		return "", false
	case 1:
		return values[0], true
	default:
		p.logger.Warn("Ambiguous data values (Skipped)",
			zap.String("object", obj.ID),
			zap.String("property", prop.Tag()),
			zap.Strings("values", values))
		return "", false
	}
}

func (p *Parser) convert(obj *dataset.Object, prop *schema.Property, text string) (any, bool) {
	invalid := func(err error) (any, bool) {
		p.logger.Warn("Invalid value skipped",
			zap.String("object", obj.ID),
			zap.String("property", prop.Tag()),
			zap.String("value", text),
			zap.Error(err))
		return nil, false
	}
	switch prop.ColumnType() {
	case schema.ColumnFloat:
		d, err := decimal.NewFromString(text)
		if err != nil {
			return invalid(err)
		}
		f, _ := d.Float64()
		return f, true
	case schema.ColumnInteger:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return invalid(err)
		}
		return i, true
	case schema.ColumnBoolean:
		return strings.EqualFold(text, "true"), true
	default:
		return text, true
	}
}

// links collects many-to-many targets. A single resource may hold several
// concatenated references such as "#_a#_b".
func (p *Parser) links(nodes []*rdfxml.Node) []string {
	var out []string
	for _, n := range nodes {
		r := n.Resource()
		if strings.HasPrefix(r, "urn:uuid:") {
			out = append(out, RefID(r))
			continue
		}
		for _, part := range strings.Split(r, "#") {
			if part != "" {
				out = append(out, RefID(part))
			}
		}
	}
	return distinct(out)
}

func (p *Parser) shorten(n *rdfxml.Node) string {
	prefix, ok := p.prefixes[n.Name.Space]
	if !ok || prefix == schema.NamespaceCIM {
		return n.Name.Local
	}
	return prefix + "_" + n.Name.Local
}

func references(nodes []*rdfxml.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if r := n.Resource(); r != "" {
			out = append(out, RefID(r))
		}
	}
	return out
}

// DetermineUUID returns the uuid of an element and whether the element
// declares the object (rdf:ID) rather than describing it (rdf:about).
func DetermineUUID(n *rdfxml.Node) (string, bool) {
	if id := n.ID(); id != "" {
		return strings.TrimPrefix(id, "_"), true
	}
	about := n.About()
	if about == "" {
		return "", false
	}
	return uuidOf(about), false
}

// RefID converts a reference ("#_abc", "urn:uuid:abc", "_abc") to an object id.
func RefID(ref string) string {
	return "_" + uuidOf(ref)
}

func uuidOf(ref string) string {
	if i := strings.Index(ref, "urn:uuid:"); i >= 0 {
		return ref[i+len("urn:uuid:"):]
	}
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.TrimPrefix(ref, "_")
}

func distinct(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
