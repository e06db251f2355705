package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(metrics.RequestIDHeader, "req-1")

	JSON(w, http.StatusOK, map[string]string{"pair": "usdjpy"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Data)
	assert.False(t, resp.Meta.Timestamp.IsZero())
	assert.Equal(t, "req-1", resp.Meta.RequestID)
	assert.NotContains(t, w.Body.String(), `"total"`)
}

func TestPage(t *testing.T) {
	w := httptest.NewRecorder()

	Page(w, []string{"a", "b"}, Paging{Total: 7, Limit: 2, Offset: 4})

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta.Paging)
	assert.Equal(t, 7, resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Limit)
	assert.Equal(t, 4, resp.Meta.Offset)
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, errors.New("bad limit")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIG_INVALID", resp.Error.Code)
	assert.Equal(t, "bad limit", resp.Error.Cause)
}

func TestError_WithStandardError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, errors.New("disk on fire"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Empty(t, resp.Error.Cause)
}
