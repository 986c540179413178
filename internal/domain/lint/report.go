package lint

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

// Kind is the category of a constraint violation.
type Kind string

const (
	MissingValue     Kind = "missing value"
	MissingReference Kind = "missing reference"
	InvalidReference Kind = "invalid reference"
	InvalidEnum      Kind = "invalid enumeration value"
)

// Violation aggregates all objects of a class that violate one constraint of
// one property. Total counts violating objects, Unique distinct offending
// values (dangling target ids, unknown enumeration labels or object ids).
// Class is the class key, prefixed with the namespace outside cim.
type Violation struct {
	Class    string `json:"class" yaml:"class"`
	Property string `json:"property" yaml:"property"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Total    int    `json:"total" yaml:"total"`
	Unique   int    `json:"unique" yaml:"unique"`
}

// Skipped names a property the linter could not check.
type Skipped struct {
	Class    string `json:"class" yaml:"class"`
	Property string `json:"property" yaml:"property"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Report is the result of a lint run.
type Report struct {
	Objects    int         `json:"objects" yaml:"objects"`
	Violations []Violation `json:"violations" yaml:"violations"`
	Skipped    []Skipped   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Clean reports whether no violation was found.
func (r *Report) Clean() bool {
	return len(r.Violations) == 0
}

// Find returns the violation of a class property, if any.
func (r *Report) Find(class, property string, kind Kind) (Violation, bool) {
	for _, v := range r.Violations {
		if v.Class == class && v.Property == property && v.Kind == kind {
			return v, true
		}
	}
	return Violation{}, false
}

// Render formats the report as a table, markdown, JSON or YAML.
func (r *Report) Render(format schema.Format) (string, error) {
	switch format {
	case schema.FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
		return string(data) + "\n", nil
	case schema.FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
		return string(data), nil
	}

	title := cases.Title(language.English)
	headers := []string{"Class", "Property", "Violation", "Total", "Unique"}
	rows := make([][]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		rows = append(rows, []string{v.Class, v.Property, title.String(string(v.Kind)), strconv.Itoa(v.Total), strconv.Itoa(v.Unique)})
	}
	skippedHeaders := []string{"Class", "Property", "Reason"}
	skipped := make([][]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		skipped = append(skipped, []string{s.Class, s.Property, s.Reason})
	}

	render := schema.Table
	if format == schema.FormatMarkdown {
		render = schema.MarkdownTable
	}
	out := fmt.Sprintf("Checked %d objects, %d violations\n", r.Objects, len(r.Violations))
	if len(rows) > 0 {
		out += render(headers, rows)
	}
	if len(skipped) > 0 {
		out += "Skipped\n" + render(skippedHeaders, skipped)
	}
	return out, nil
}
