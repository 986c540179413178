package serializer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

type fullModel struct {
	about        string
	authority    string
	scenarioTime string
	created      string
	profiles     []string
}

// writer streams one document. Element names carry their prefix in the local
// part, the namespaces are declared once on rdf:RDF.
type writer struct {
	name       string
	profile    *schema.Profile
	namespaces map[string]string
	buf        bytes.Buffer
	enc        *xml.Encoder
	objects    int
}

func newWriter(name string, profile *schema.Profile, namespaces map[string]string, h fullModel) (*writer, error) {
	w := &writer{name: name, profile: profile, namespaces: namespaces}
	w.buf.WriteString(xml.Header)
	w.enc = xml.NewEncoder(&w.buf)
	w.enc.Indent("", "  ")

	prefixes := make([]string, 0, len(namespaces))
	for p := range namespaces {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	root := xml.StartElement{Name: qname(schema.NamespaceRDF, "RDF")}
	for _, p := range prefixes {
		root.Attr = append(root.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + p}, Value: namespaces[p]})
	}
	if err := w.enc.EncodeToken(root); err != nil {
		return nil, err
	}

	model := xml.StartElement{
		Name: qname(schema.NamespaceMD, "FullModel"),
		Attr: []xml.Attr{{Name: qname(schema.NamespaceRDF, "about"), Value: h.about}},
	}
	if err := w.enc.EncodeToken(model); err != nil {
		return nil, err
	}
	fields := []struct{ name, value string }{
		{"Model.created", h.created},
		{"Model.scenarioTime", h.scenarioTime},
		{"Model.modelingAuthoritySet", h.authority},
	}
	for _, uri := range h.profiles {
		fields = append(fields, struct{ name, value string }{"Model.profile", uri})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.text(qname(schema.NamespaceMD, f.name), f.value); err != nil {
			return nil, err
		}
	}
	if err := w.enc.EncodeToken(model.End()); err != nil {
		return nil, err
	}
	return w, nil
}

// accepts reports whether objects of class c belong into the document.
func (w *writer) accepts(c *schema.Class) bool {
	return w.profile == nil || c.IsUsedIn(w.profile.Name)
}

type element struct {
	name     xml.Name
	text     string
	resource string
}

// object writes one object. In a profile document the object is declared
// (rdf:ID) where its class is defined and described (rdf:about) elsewhere;
// descriptions without properties are left out.
func (w *writer) object(c *schema.Class, obj *dataset.Object) error {
	var elements []element
	for _, p := range c.AllProps() {
		if !p.Used || (w.profile != nil && !p.IsAllowedIn(w.profile.Name)) {
			continue
		}
		elements = append(elements, w.propElements(p, obj)...)
	}

	start := xml.StartElement{Name: xml.Name{Local: c.Tag()}}
	if w.profile == nil || c.DefinedIn == w.profile.Name {
		start.Attr = []xml.Attr{{Name: qname(schema.NamespaceRDF, "ID"), Value: obj.ID}}
	} else {
		if len(elements) == 0 {
			return nil
		}
		start.Attr = []xml.Attr{{Name: qname(schema.NamespaceRDF, "about"), Value: "#" + obj.ID}}
	}

	if err := w.enc.EncodeToken(start); err != nil {
		return fmt.Errorf("failed to write %s: %w", obj.ID, err)
	}
	for _, e := range elements {
		var err error
		if e.resource != "" {
			err = w.resource(e.name, e.resource)
		} else {
			err = w.text(e.name, e.text)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", obj.ID, err)
		}
	}
	if err := w.enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("failed to write %s: %w", obj.ID, err)
	}
	w.objects++
	return nil
}

func (w *writer) propElements(p *schema.Property, obj *dataset.Object) []element {
	name := xml.Name{Local: p.Tag()}
	key := p.Key()
	switch p.Kind() {
	case schema.KindReference:
		if p.ManyRemote() {
			out := make([]element, 0, len(obj.Links[key]))
			for _, id := range obj.Links[key] {
				out = append(out, element{name: name, resource: "#" + id})
			}
			return out
		}
		if id, ok := obj.Refs[key]; ok {
			return []element{{name: name, resource: "#" + id}}
		}
	case schema.KindEnumeration:
		if label, ok := obj.Enums[key]; ok {
			e := p.RangeEnum
			ns := e.Namespace
			if ns == "" {
				ns = schema.NamespaceCIM
			}
			return []element{{name: name, resource: e.ValueURI(w.namespaces[ns], label)}}
		}
	default:
		if v, ok := obj.Values[key]; ok && v != nil {
			return []element{{name: name, text: formatValue(v)}}
		}
	}
	return nil
}

func (w *writer) text(name xml.Name, value string) error {
	start := xml.StartElement{Name: name}
	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}
	if err := w.enc.EncodeToken(xml.CharData(value)); err != nil {
		return err
	}
	return w.enc.EncodeToken(start.End())
}

func (w *writer) resource(name xml.Name, ref string) error {
	start := xml.StartElement{
		Name: name,
		Attr: []xml.Attr{{Name: qname(schema.NamespaceRDF, "resource"), Value: ref}},
	}
	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}
	return w.enc.EncodeToken(start.End())
}

func (w *writer) close() (Document, error) {
	if err := w.enc.EncodeToken(xml.EndElement{Name: qname(schema.NamespaceRDF, "RDF")}); err != nil {
		return Document{}, err
	}
	if err := w.enc.Flush(); err != nil {
		return Document{}, err
	}
	w.buf.WriteByte('\n')
	doc := Document{Name: w.name, Objects: w.objects, Data: w.buf.Bytes()}
	if w.profile != nil {
		doc.Profile = w.profile.Name
	}
	return doc, nil
}

func qname(prefix, local string) xml.Name {
	return xml.Name{Local: prefix + ":" + local}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
		return decimal.NewFromFloat(x).String()
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return strconv.FormatFloat(float64(x), 'f', -1, 32)
		}
		return decimal.NewFromFloat32(x).String()
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(v)
	}
}
