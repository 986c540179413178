package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/dto"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/middleware"
	"github.com/RWTH-IAEW/cimpyorm/internal/testutil"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "not found",
			err:     shared.Wrap(shared.ErrNotFound, "class %q", "Breaker"),
			status:  http.StatusNotFound,
			code:    dto.ErrCodeNotFound,
			message: `Resource not found: class "Breaker"`,
		},
		{
			name:    "wrapped invalid input",
			err:     fmt.Errorf("export: %w", shared.Wrap(shared.ErrInvalidInput, "unknown mode")),
			status:  http.StatusBadRequest,
			code:    dto.ErrCodeInvalidInput,
			message: "export: Invalid input provided: unknown mode",
		},
		{
			name:    "other domain error",
			err:     shared.Wrap(shared.ErrAmbiguous, "two FullModel headers"),
			status:  http.StatusInternalServerError,
			code:    dto.ErrCodeAmbiguous,
			message: "An unexpected error occurred",
		},
		{
			name:    "plain error",
			err:     errors.New("database is locked"),
			status:  http.StatusInternalServerError,
			code:    dto.ErrCodeInternal,
			message: "An unexpected error occurred",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t, "/")
			c := tc.Context
			c.Set(middleware.RequestIDKey, "req-1")

			h := &BaseHandler{}
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, tc.ResponseCode())
			resp := decode(t, tc.Recorder)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestHandleNilError(t *testing.T) {
	tc := testutil.NewTestContext(t, "/")
	(&BaseHandler{}).HandleError(tc.Context, nil)
	assert.Empty(t, tc.Context.Errors)
	assert.Empty(t, tc.ResponseBody())
}
