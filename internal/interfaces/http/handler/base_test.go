package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	erpdomain "github.com/storefront/backend/internal/domain/erp"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func handleErrorResponse(t *testing.T, err error) (int, dto.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var h BaseHandler
	h.HandleError(c, err)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHandleErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"order not found", store.ErrOrderNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"already synced", store.ErrOrderAlreadySynced, http.StatusConflict, dto.ErrCodeConflict},
		{"no items", store.ErrOrderNoItems, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unmapped products", fmt.Errorf("%w: X900", erpdomain.ErrUnmappedProducts), http.StatusUnprocessableEntity, dto.ErrCodeUnmappedProducts},
		{"partial validation", erpdomain.ErrPartialRemoteValidation, http.StatusUnprocessableEntity, dto.ErrCodeBusinessRule},
		{"locked out", erpdomain.ErrLockedOut, http.StatusServiceUnavailable, dto.ErrCodeUpstreamLocked},
		{"circuit open", erpdomain.ErrCircuitOpen, http.StatusServiceUnavailable, dto.ErrCodeUpstreamUnavailable},
		{"rate limited", erpdomain.ErrRateLimited, http.StatusServiceUnavailable, dto.ErrCodeRateLimited},
		{"price book down", erpdomain.ErrMappingSourceUnavailable, http.StatusServiceUnavailable, dto.ErrCodeUpstreamUnavailable},
		{"unclassified", errors.New("something odd"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := handleErrorResponse(t, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestHandleErrorUnmappedCodesAreReported(t *testing.T) {
	err := fmt.Errorf("%w: X900, Y901", erpdomain.ErrUnmappedProducts)
	_, resp := handleErrorResponse(t, err)

	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "X900")
	assert.Contains(t, resp.Error.Message, "Y901")
}

func TestHandleErrorRemoteErrorsNeverLeakDetail(t *testing.T) {
	remoteErr := erpdomain.NewRemoteError(500, "stack trace from the remote", erpdomain.ErrRequestFailed)
	status, resp := handleErrorResponse(t, remoteErr)

	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeUpstreamUnavailable, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "stack trace")
}
