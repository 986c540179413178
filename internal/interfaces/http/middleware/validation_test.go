package middleware

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/dto"
)

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	r := gin.New()
	r.Use(RequestID())
	r.GET("/objects", func(c *gin.Context) {
		req := dto.DefaultListRequest()
		if err := c.ShouldBindQuery(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req.Limit))
	})

	t.Run("valid", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/objects?limit=10&offset=5", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("out of range", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/objects?limit=5000", map[string]string{RequestIDHeader: "req-1"})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "limit", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be at most 1000", resp.Error.Details[0].Message)
	})

	t.Run("not a number", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/objects?offset=ten", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})
}
