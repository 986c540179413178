package dto

import (
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
)

// ClassResponse summarizes a schema class.
type ClassResponse struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Namespace  string   `json:"namespace"`
	Parent     string   `json:"parent,omitempty"`
	Package    string   `json:"package,omitempty"`
	Profiles   []string `json:"profiles,omitempty"`
	Properties int      `json:"properties"`
}

// NewClassResponse converts a schema class.
func NewClassResponse(c *schema.Class) ClassResponse {
	resp := ClassResponse{
		Key:        c.Key(),
		Name:       c.Name,
		Namespace:  c.Namespace,
		Package:    c.Package,
		Profiles:   c.UsedIn,
		Properties: len(c.Props),
	}
	if c.Parent != nil {
		resp.Parent = c.Parent.Key()
	}
	return resp
}

// SourceResponse describes a parsed instance file.
type SourceResponse struct {
	ID         uint     `json:"id"`
	Filename   string   `json:"filename"`
	UUID       string   `json:"uuid,omitempty"`
	CIMVersion string   `json:"cim_version,omitempty"`
	Profiles   []string `json:"profiles,omitempty"`
}

// NewSourceResponse converts a source record.
func NewSourceResponse(s *dataset.SourceInfo) SourceResponse {
	return SourceResponse{
		ID:         s.ID,
		Filename:   s.Filename,
		UUID:       s.UUID,
		CIMVersion: s.CIMVersion(),
		Profiles:   s.Profiles(),
	}
}

// DescribeResponse carries a rendered schema element.
type DescribeResponse struct {
	Element string `json:"element"`
	Format  string `json:"format"`
	Text    string `json:"text"`
}

// HealthResponse reports the state of the served dataset.
type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Version  string `json:"cim_version"`
	Database string `json:"database"`
}
