// Package rdfxml decodes RDF/XML documents into a lightweight element tree
// and resolves element names against the document's namespace map.
package rdfxml

import (
	"encoding/xml"
	"strings"
)

// Namespace URIs used by CIM RDF/XML and RDFS documents.
const (
	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
	CIMS = "http://iec.ch/TC57/1999/rdf-schema-extensions-19990926#"
	MD   = "http://iec.ch/TC57/61970-552/ModelDescription/1#"
)

// Node is one XML element with its attributes, direct children and character data.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	Text     string
}

// AttrValue returns the value of the attribute in the given namespace.
func (n *Node) AttrValue(space, local string) string {
	for _, a := range n.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// ID returns the rdf:ID attribute.
func (n *Node) ID() string {
	return n.AttrValue(RDF, "ID")
}

// About returns the rdf:about attribute.
func (n *Node) About() string {
	return n.AttrValue(RDF, "about")
}

// Resource returns the rdf:resource attribute.
func (n *Node) Resource() string {
	return n.AttrValue(RDF, "resource")
}

// Is reports whether the node has the given qualified name.
func (n *Node) Is(space, local string) bool {
	return n.Name.Space == space && n.Name.Local == local
}

// Find returns all direct children with the given qualified name.
func (n *Node) Find(space, local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Is(space, local) {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first direct child with the given qualified name.
func (n *Node) First(space, local string) *Node {
	for _, c := range n.Children {
		if c.Is(space, local) {
			return c
		}
	}
	return nil
}

// Texts returns the trimmed character data of the matching children.
func (n *Node) Texts(space, local string) []string {
	var out []string
	for _, c := range n.Find(space, local) {
		if t := strings.TrimSpace(c.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Resources returns the rdf:resource attributes of the matching children.
func (n *Node) Resources(space, local string) []string {
	var out []string
	for _, c := range n.Find(space, local) {
		if r := c.Resource(); r != "" {
			out = append(out, r)
		}
	}
	return out
}
