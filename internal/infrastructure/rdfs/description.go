package rdfs

import (
	"strings"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfxml"
)

// description collects everything an RDFS file says about one element.
// Descriptions of the same element from several files are merged.
type description struct {
	about    string
	profiles []string

	labels          []string
	types           []string
	stereoTexts     []string
	stereoResources []string
	subClassOf      []string
	domains         []string
	ranges          []string
	dataTypes       []string
	multiplicities  []string
	inverses        []string
	associationUsed []string
	categories      []string
	fixed           []string
}

func newDescription(n *rdfxml.Node, profile string) *description {
	d := &description{
		about:           n.About(),
		profiles:        []string{profile},
		labels:          n.Texts(rdfxml.RDFS, "label"),
		types:           n.Resources(rdfxml.RDF, "type"),
		stereoTexts:     n.Texts(rdfxml.CIMS, "stereotype"),
		stereoResources: n.Resources(rdfxml.CIMS, "stereotype"),
		subClassOf:      n.Resources(rdfxml.RDFS, "subClassOf"),
		domains:         n.Resources(rdfxml.RDFS, "domain"),
		ranges:          n.Resources(rdfxml.RDFS, "range"),
		dataTypes:       n.Resources(rdfxml.CIMS, "dataType"),
		multiplicities:  n.Resources(rdfxml.CIMS, "multiplicity"),
		inverses:        n.Resources(rdfxml.CIMS, "inverseRoleName"),
		associationUsed: n.Texts(rdfxml.CIMS, "AssociationUsed"),
		categories:      n.Resources(rdfxml.CIMS, "belongsToCategory"),
	}
	if d.about == "" {
		d.about = n.ID()
		if d.about != "" && !strings.HasPrefix(d.about, "#") {
			d.about = "#" + d.about
		}
	}
	for _, f := range n.Find(rdfxml.CIMS, "isFixed") {
		v := f.AttrValue(rdfxml.RDFS, "Literal")
		if v == "" {
			v = strings.TrimSpace(f.Text)
		}
		if v != "" {
			d.fixed = append(d.fixed, v)
		}
	}
	d.dedupe()
	return d
}

func (d *description) merge(other *description) {
	d.profiles = append(d.profiles, other.profiles...)
	d.labels = append(d.labels, other.labels...)
	d.types = append(d.types, other.types...)
	d.stereoTexts = append(d.stereoTexts, other.stereoTexts...)
	d.stereoResources = append(d.stereoResources, other.stereoResources...)
	d.subClassOf = append(d.subClassOf, other.subClassOf...)
	d.domains = append(d.domains, other.domains...)
	d.ranges = append(d.ranges, other.ranges...)
	d.dataTypes = append(d.dataTypes, other.dataTypes...)
	d.multiplicities = append(d.multiplicities, other.multiplicities...)
	d.inverses = append(d.inverses, other.inverses...)
	d.associationUsed = append(d.associationUsed, other.associationUsed...)
	d.categories = append(d.categories, other.categories...)
	d.fixed = append(d.fixed, other.fixed...)
	d.dedupe()
}

func (d *description) dedupe() {
	for _, s := range []*[]string{
		&d.profiles, &d.labels, &d.types, &d.stereoTexts, &d.stereoResources, &d.subClassOf,
		&d.domains, &d.ranges, &d.dataTypes, &d.multiplicities, &d.inverses,
		&d.associationUsed, &d.categories, &d.fixed,
	} {
		*s = unique(*s)
	}
}

func (d *description) hasType(suffix string) bool {
	for _, t := range d.types {
		if strings.HasSuffix(t, suffix) {
			return true
		}
	}
	return false
}

func (d *description) hasStereotypeText(values ...string) bool {
	for _, s := range d.stereoTexts {
		for _, v := range values {
			if s == v {
				return true
			}
		}
	}
	return false
}

func (d *description) hasStereotypeResource(suffix string) bool {
	for _, s := range d.stereoResources {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func unique(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
