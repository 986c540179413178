package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/lint"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/serializer"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/storage"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/dto"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/middleware"
)

// Dataset is the read side of a stored CIM dataset served by the API.
type Dataset interface {
	Schema() *schema.Schema
	Backend() persistence.Backend
	Ping(ctx context.Context) error
	Sources(ctx context.Context) ([]*dataset.SourceInfo, error)
	Get(ctx context.Context, class, id string) (*dataset.Object, error)
	Objects(ctx context.Context, class string, q dataset.Query) ([]*dataset.Object, error)
	Count(ctx context.Context, class string) (int64, error)
	Describe(element, format string) (string, error)
	Lint(ctx context.Context) (*lint.Report, error)
	Export(ctx context.Context, opts ...serializer.Option) ([]serializer.Document, error)
}

// DatasetHandler serves schema, objects, lint reports and exports of one
// dataset.
type DatasetHandler struct {
	BaseHandler
	ds     Dataset
	export config.ExportConfig
}

// NewDatasetHandler creates a handler. export supplies the FullModel header
// defaults of exported documents.
func NewDatasetHandler(ds Dataset, export config.ExportConfig) *DatasetHandler {
	return &DatasetHandler{ds: ds, export: export}
}

// ListSources godoc
// @ID           listSources
// @Summary      List dataset sources
// @Description  Returns the parsed source files with their FullModel metadata
// @Tags         dataset
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.SourceResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sources [get]
func (h *DatasetHandler) ListSources(c *gin.Context) {
	sources, err := h.ds.Sources(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, dto.NewSourceResponse(s))
	}
	h.Success(c, out)
}

// ListClasses godoc
// @ID           listClasses
// @Summary      List schema classes
// @Description  Returns every class of the dataset schema in hierarchy order
// @Tags         classes
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.ClassResponse}
// @Router       /classes [get]
func (h *DatasetHandler) ListClasses(c *gin.Context) {
	classes := h.ds.Schema().Classes()
	out := make([]dto.ClassResponse, 0, len(classes))
	for _, cls := range classes {
		out = append(out, dto.NewClassResponse(cls))
	}
	h.Success(c, out)
}

// DescribeClass handles GET /classes/:name. Enumerations and datatypes are
// described as well. JSON descriptions are embedded, other formats are
// returned as text.
// @ID           describeClass
// @Summary      Describe a schema element
// @Description  Describes a class, enumeration or datatype with its properties
// @Tags         classes
// @Produce      json
// @Param        name   path  string true  "Class key"
// @Param        format query string false "Output format" Enums(table, markdown, json, yaml)
// @Success      200 {object} dto.Response{data=dto.DescribeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /classes/{name} [get]
func (h *DatasetHandler) DescribeClass(c *gin.Context) {
	var req dto.DescribeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if req.Format == "" {
		req.Format = "json"
	}
	name := c.Param("name")
	text, err := h.ds.Describe(name, req.Format)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if req.Format == "json" {
		h.Success(c, json.RawMessage(text))
		return
	}
	h.Success(c, dto.DescribeResponse{Element: name, Format: req.Format, Text: text})
}

// ListObjects handles GET /classes/:name/objects. Objects of subclasses are
// included.
// @ID           listObjects
// @Summary      List objects of a class
// @Tags         classes
// @Produce      json
// @Param        name   path  string true  "Class key"
// @Param        limit  query int    false "Page size" minimum(1) maximum(1000) default(100)
// @Param        offset query int    false "Objects to skip" minimum(0) default(0)
// @Success      200 {object} dto.Response{data=[]dataset.Object,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /classes/{name}/objects [get]
func (h *DatasetHandler) ListObjects(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	ctx := c.Request.Context()
	class := c.Param("name")

	total, err := h.ds.Count(ctx, class)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	objects, err := h.ds.Objects(ctx, class, dataset.Query{Limit: req.Limit, Offset: req.Offset})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, objects, total, req.Limit, req.Offset)
}

// GetObject godoc
// @ID           getObject
// @Summary      Get an object
// @Description  Loads one object with its values, references, enumerations and links
// @Tags         objects
// @Produce      json
// @Param        class path string true "Class key"
// @Param        id    path string true "Object id"
// @Success      200 {object} dto.Response{data=dataset.Object}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /objects/{class}/{id} [get]
func (h *DatasetHandler) GetObject(c *gin.Context) {
	obj, err := h.ds.Get(c.Request.Context(), c.Param("class"), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, obj)
}

// Lint godoc
// @ID           lintDataset
// @Summary      Lint the dataset
// @Description  Checks multiplicities, references and enumerations of all stored objects
// @Tags         dataset
// @Produce      json
// @Success      200 {object} dto.Response{data=lint.Report}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /lint [get]
func (h *DatasetHandler) Lint(c *gin.Context) {
	report, err := h.ds.Lint(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Export handles GET /export. Single mode answers with the RDF/XML document,
// multi mode with a zip archive of one document per profile.
// @ID           exportDataset
// @Summary      Export the dataset
// @Tags         export
// @Produce      application/rdf+xml,application/zip
// @Param        mode     query string false "Serialization mode" Enums(single, multi)
// @Param        profiles query string false "Comma separated profile names"
// @Success      200 {file} file
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /export [get]
func (h *DatasetHandler) Export(c *gin.Context) {
	req := dto.ExportRequest{Mode: h.export.Mode}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	mode, err := serializer.ParseMode(req.Mode)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	opts := []serializer.Option{serializer.WithMode(mode)}
	if profiles := splitList(req.Profiles); len(profiles) > 0 {
		opts = append(opts, serializer.WithProfiles(profiles...))
	}
	if h.export.ModelingAuthoritySet != "" {
		opts = append(opts, serializer.WithModelingAuthoritySet(h.export.ModelingAuthoritySet))
	}
	if h.export.ScenarioTime != "" {
		opts = append(opts, serializer.WithScenarioTime(h.export.ScenarioTime))
	}

	docs, err := h.ds.Export(c.Request.Context(), opts...)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if mode == serializer.ModeSingle && len(docs) == 1 {
		attachment(c, docs[0].Filename())
		c.Data(http.StatusOK, storage.ContentTypeXML, docs[0].Data)
		return
	}
	buf, err := serializer.Zip(docs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	attachment(c, "dataset.zip")
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
