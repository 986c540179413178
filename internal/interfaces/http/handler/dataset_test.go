package handler_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWTH-IAEW/cimpyorm/internal/application/cimorm"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/dto"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/handler"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/middleware"
	"github.com/RWTH-IAEW/cimpyorm/internal/testutil"
)

func parseGrid(t *testing.T) *cimorm.Dataset {
	t.Helper()
	ds, err := cimorm.Parse(context.Background(), []string{testutil.Dataset("grid")},
		cimorm.WithBackend(persistence.InMemory{}),
		cimorm.WithSchemaRoot(testutil.SchemaRoot()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func newEngine(ds handler.Dataset) *gin.Engine {
	middleware.SetupValidator()
	h := handler.NewDatasetHandler(ds, config.ExportConfig{ModelingAuthoritySet: "http://grid.example/api"})
	sys := handler.NewSystemHandler(ds, "test")

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/health", sys.Health)
	r.GET("/info", sys.Info)
	r.GET("/sources", h.ListSources)
	r.GET("/classes", h.ListClasses)
	r.GET("/classes/:name", h.DescribeClass)
	r.GET("/classes/:name/objects", h.ListObjects)
	r.GET("/objects/:class/:id", h.GetObject)
	r.GET("/lint", h.Lint)
	r.GET("/export", h.Export)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	resp := dto.Response{Data: data}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestDatasetHandler(t *testing.T) {
	r := newEngine(parseGrid(t))

	t.Run("sources", func(t *testing.T) {
		w := get(r, "/sources")
		require.Equal(t, http.StatusOK, w.Code)
		var sources []dto.SourceResponse
		decode(t, w, &sources)
		require.Len(t, sources, 3)
		assert.Equal(t, uint(1), sources[0].ID)
		assert.Equal(t, "16", sources[0].CIMVersion)
	})

	t.Run("classes", func(t *testing.T) {
		w := get(r, "/classes")
		require.Equal(t, http.StatusOK, w.Code)
		var classes []dto.ClassResponse
		decode(t, w, &classes)
		keys := make([]string, 0, len(classes))
		for _, c := range classes {
			keys = append(keys, c.Key)
		}
		assert.Contains(t, keys, "Terminal")
		assert.Contains(t, keys, "entsoe_EnergySchedulingType")
	})

	t.Run("describe as json", func(t *testing.T) {
		w := get(r, "/classes/Terminal")
		require.Equal(t, http.StatusOK, w.Code)
		var described map[string]any
		resp := decode(t, w, &described)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, described)
		assert.Contains(t, w.Body.String(), "ConductingEquipment")
	})

	t.Run("describe as markdown", func(t *testing.T) {
		w := get(r, "/classes/Terminal?format=markdown")
		require.Equal(t, http.StatusOK, w.Code)
		var described dto.DescribeResponse
		decode(t, w, &described)
		assert.Equal(t, "Terminal", described.Element)
		assert.Contains(t, described.Text, "|")
	})

	t.Run("describe rejects unknown format", func(t *testing.T) {
		w := get(r, "/classes/Terminal?format=html")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("describe unknown class", func(t *testing.T) {
		w := get(r, "/classes/Breaker")
		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("objects are paged", func(t *testing.T) {
		w := get(r, "/classes/Terminal/objects?limit=2")
		require.Equal(t, http.StatusOK, w.Code)
		var objects []map[string]any
		resp := decode(t, w, &objects)
		assert.Len(t, objects, 2)
		assert.Equal(t, &dto.Meta{Total: 3, Limit: 2, Offset: 0}, resp.Meta)

		w = get(r, "/classes/Terminal/objects?limit=2&offset=2")
		decode(t, w, &objects)
		assert.Len(t, objects, 1)
	})

	t.Run("objects of unknown class", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(r, "/classes/Breaker/objects").Code)
		assert.Equal(t, http.StatusBadRequest, get(r, "/classes/Terminal/objects?limit=5000").Code)
	})

	t.Run("object", func(t *testing.T) {
		w := get(r, "/objects/Terminal/_t1")
		require.Equal(t, http.StatusOK, w.Code)
		var obj struct {
			ID    string            `json:"id"`
			Refs  map[string]string `json:"refs"`
			Enums map[string]string `json:"enums"`
		}
		decode(t, w, &obj)
		assert.Equal(t, "_t1", obj.ID)
		assert.Equal(t, "_tn1", obj.Refs["TopologicalNode"])
		assert.Equal(t, "ABC", obj.Enums["phases"])

		assert.Equal(t, http.StatusNotFound, get(r, "/objects/Terminal/_nope").Code)
	})

	t.Run("lint", func(t *testing.T) {
		w := get(r, "/lint")
		require.Equal(t, http.StatusOK, w.Code)
		var report struct {
			Objects    int `json:"objects"`
			Violations []struct {
				Class    string `json:"class"`
				Property string `json:"property"`
				Kind     string `json:"kind"`
			} `json:"violations"`
		}
		decode(t, w, &report)
		assert.Equal(t, 10, report.Objects)
		assert.Len(t, report.Violations, 2)
	})

	t.Run("export single", func(t *testing.T) {
		w := get(r, "/export")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/rdf+xml", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="dataset.xml"`, w.Header().Get("Content-Disposition"))
		assert.Contains(t, w.Body.String(), `rdf:ID="_t1"`)
		assert.Contains(t, w.Body.String(), "http://grid.example/api")
	})

	t.Run("export multi", func(t *testing.T) {
		w := get(r, "/export?mode=multi&profiles=EQ,%20TP")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

		body := w.Body.Bytes()
		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		require.NoError(t, err)
		names := make([]string, 0, len(zr.File))
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		assert.ElementsMatch(t, []string{"EQ.xml", "TP.xml"}, names)
	})

	t.Run("export rejects unknown mode", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(r, "/export?mode=per-class").Code)
	})
}

func TestSystemHandler(t *testing.T) {
	ds := parseGrid(t)
	r := newEngine(ds)

	w := get(r, "/info")
	require.Equal(t, http.StatusOK, w.Code)
	var info handler.SystemInfoResponse
	decode(t, w, &info)
	assert.Equal(t, "test", info.Version)

	w = get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health dto.HealthResponse
	decode(t, w, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "sqlite::memory:", health.Backend)
	assert.Equal(t, "16", health.Version)

	require.NoError(t, ds.Close())
	w = get(r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w, &health)
	assert.False(t, resp.Success)
	assert.Equal(t, "unhealthy", health.Status)
}
