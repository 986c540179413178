package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// Format selects how descriptions and reports are rendered.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat validates a format name. An empty name selects the table format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatMarkdown, FormatJSON, FormatYAML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", shared.Wrap(shared.ErrInvalidInput, "unknown format %q", s)
	}
}

var (
	hierarchyHeaders = []string{"Hierarchy", "Number of native properties"}
	propertyHeaders  = []string{"Attribute", "Attribute type", "Native", "Defined in", "Optional", "Multiplicity", "Datatype", "Base type"}
)

// HierarchyRow is one level of a class's inheritance chain.
type HierarchyRow struct {
	Class            string `json:"class" yaml:"class"`
	NativeProperties int    `json:"native_properties" yaml:"native_properties"`
}

// PropertyRow describes one property of a class hierarchy.
type PropertyRow struct {
	Attribute    string `json:"attribute" yaml:"attribute"`
	Type         string `json:"type" yaml:"type"`
	Native       bool   `json:"native" yaml:"native"`
	DefinedIn    string `json:"defined_in" yaml:"defined_in"`
	Optional     bool   `json:"optional" yaml:"optional"`
	Multiplicity string `json:"multiplicity" yaml:"multiplicity"`
	Datatype     string `json:"datatype" yaml:"datatype"`
	BaseType     string `json:"base_type,omitempty" yaml:"base_type,omitempty"`
	Inferred     bool   `json:"inferred,omitempty" yaml:"inferred,omitempty"`
}

// ClassDescription is the structured description of a class.
type ClassDescription struct {
	Class      string         `json:"class" yaml:"class"`
	Hierarchy  []HierarchyRow `json:"hierarchy" yaml:"hierarchy"`
	Properties []PropertyRow  `json:"properties" yaml:"properties"`
}

// EnumDescription lists the values of an enumeration.
type EnumDescription struct {
	Enum   string   `json:"enum" yaml:"enum"`
	Values []string `json:"values" yaml:"values"`
}

// DatatypeDescription summarizes a datatype.
type DatatypeDescription struct {
	Datatype   string `json:"datatype" yaml:"datatype"`
	Stereotype string `json:"stereotype,omitempty" yaml:"stereotype,omitempty"`
	Base       string `json:"base,omitempty" yaml:"base,omitempty"`
	Unit       string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Multiplier string `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// Describe returns the class's hierarchy (root first) and all its properties.
func (c *Class) Describe() ClassDescription {
	d := ClassDescription{Class: c.Name}
	for _, cls := range c.Chain() {
		d.Hierarchy = append(d.Hierarchy, HierarchyRow{Class: cls.Name, NativeProperties: len(cls.Props)})
	}
	for _, p := range c.AllProps() {
		var base string
		if p.Kind() == KindValue {
			base = p.MappedDatatype()
		}
		d.Properties = append(d.Properties, PropertyRow{
			Attribute:    p.Key(),
			Type:         string(p.Kind()),
			Native:       p.Used,
			DefinedIn:    p.domainName(),
			Optional:     p.Optional(),
			Multiplicity: p.Multiplicity,
			Datatype:     p.RangeLabel(),
			BaseType:     base,
			Inferred:     p.Inferred,
		})
	}
	return d
}

// Describe lists the enumeration's values.
func (e *Enum) Describe() EnumDescription {
	d := EnumDescription{Enum: e.Name, Values: make([]string, 0, len(e.Values))}
	for _, v := range e.Values {
		d.Values = append(d.Values, v.Name)
	}
	return d
}

// Describe summarizes the datatype.
func (d *Datatype) Describe() DatatypeDescription {
	return DatatypeDescription{
		Datatype:   d.Name,
		Stereotype: d.Stereotype,
		Base:       d.BaseDatatype,
		Unit:       d.Unit,
		Multiplier: d.Multiplier,
	}
}

// Describe renders the description of a class, enumeration or datatype.
func (s *Schema) Describe(element string, format Format) (string, error) {
	if c, err := s.Class(element); err == nil {
		return c.Describe().Render(format)
	}
	if e, err := s.Enum(element); err == nil {
		return e.Describe().Render(format)
	}
	if d, err := s.Datatype(element); err == nil {
		return d.Describe().Render(format)
	}
	return "", shared.Wrap(shared.ErrNotFound, "schema element %q", element)
}

// Render formats the class description.
func (d ClassDescription) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		return renderJSON(d)
	case FormatYAML:
		return renderYAML(d)
	}
	hierarchy := make([][]string, 0, len(d.Hierarchy))
	for _, h := range d.Hierarchy {
		hierarchy = append(hierarchy, []string{h.Class, strconv.Itoa(h.NativeProperties)})
	}
	props := make([][]string, 0, len(d.Properties))
	for _, p := range d.Properties {
		props = append(props, []string{
			p.Attribute, p.Type, strconv.FormatBool(p.Native), p.DefinedIn,
			strconv.FormatBool(p.Optional), p.Multiplicity, p.Datatype, p.BaseType,
		})
	}
	if format == FormatMarkdown {
		return MarkdownTable(hierarchyHeaders, hierarchy) + "\n" + MarkdownTable(propertyHeaders, props), nil
	}
	return Table(hierarchyHeaders, hierarchy) + "\n" + Table(propertyHeaders, props), nil
}

// Render formats the enumeration description.
func (d EnumDescription) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		return renderJSON(d)
	case FormatYAML:
		return renderYAML(d)
	}
	rows := make([][]string, 0, len(d.Values))
	for _, v := range d.Values {
		rows = append(rows, []string{v})
	}
	if format == FormatMarkdown {
		return MarkdownTable([]string{"Value"}, rows), nil
	}
	return Table([]string{"Value"}, rows), nil
}

// Render formats the datatype description.
func (d DatatypeDescription) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		return renderJSON(d)
	case FormatYAML:
		return renderYAML(d)
	}
	line := d.Datatype
	if d.Base != "" {
		line += fmt.Sprintf(" (%s", d.Base)
		if d.Unit != "" {
			line += ", unit " + d.Unit
		}
		if d.Multiplier != "" {
			line += ", multiplier " + d.Multiplier
		}
		line += ")"
	} else if d.Stereotype != "" {
		line += " <" + d.Stereotype + ">"
	}
	return line + "\n", nil
}

// Table renders rows as a bordered terminal table.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			return style
		})
	return t.String() + "\n"
}

// MarkdownTable renders rows as a GitHub flavored markdown table.
func MarkdownTable(headers []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	sb.WriteString("| " + strings.Join(seps, " | ") + " |\n")
	for _, row := range rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return sb.String()
}

func renderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal description: %w", err)
	}
	return string(data) + "\n", nil
}

func renderYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal description: %w", err)
	}
	return string(data), nil
}
