package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]int{"vehicles": 2})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"vehicles": float64(2)}, resp.Data)
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.NewNotFoundError("vehicle", "A100"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", errors.NewValidationError("identity", "", "is empty"), http.StatusBadRequest, "BAD_REQUEST"},
		{"unstable", fmt.Errorf("identity 1-2: %w: %w", errors.ErrUnstableIdentity, errors.ErrInvalidInput), http.StatusUnprocessableEntity, "UNPROCESSABLE"},
		{"read only", fmt.Errorf("put: %w", errors.ErrReadOnly), http.StatusConflict, "READ_ONLY"},
		{"ingest", errors.NewIngestError([]string{"main"}, errors.NewFetchError("main", "u", 503, "down")), http.StatusBadGateway, "FEED_UNAVAILABLE"},
		{"store", errors.NewStoreError("redis", "get", "A100", errors.New("refused")), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"canceled", fmt.Errorf("resolve: %w", errors.ErrCanceled), http.StatusGatewayTimeout, "TIMEOUT"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorFromType(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("password=hunter2"))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}
