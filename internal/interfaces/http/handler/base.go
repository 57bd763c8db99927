package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	erpdomain "github.com/storefront/backend/internal/domain/erp"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError sends a 400 for a failed request bind, translating
// validator failures into per-field messages instead of the raw
// validator output
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]string, len(validationErrs))
		for i, fe := range validationErrs {
			details[i] = fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, strings.Join(details, "; "))
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
}

// HandleError maps domain and integration errors to HTTP responses.
// Integration failures never leak protocol detail; the storefront
// client only sees that the upstream is unavailable or throttling.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := dto.ErrCodeInternal
	message := "An unexpected error occurred"

	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		code, message = dto.ErrCodeNotFound, "order not found"
	case errors.Is(err, store.ErrOrderAlreadySynced):
		code, message = dto.ErrCodeConflict, "order already synced"
	case errors.Is(err, store.ErrOrderNoItems), errors.Is(err, store.ErrOrderInvalidItem):
		code, message = dto.ErrCodeValidation, err.Error()
	case errors.Is(err, erpdomain.ErrUnmappedProducts):
		code, message = dto.ErrCodeUnmappedProducts, err.Error()
	case errors.Is(err, erpdomain.ErrPartialRemoteValidation):
		code, message = dto.ErrCodeBusinessRule, err.Error()
	case errors.Is(err, erpdomain.ErrLockedOut):
		code, message = dto.ErrCodeUpstreamLocked, "integration temporarily locked"
	case errors.Is(err, erpdomain.ErrCircuitOpen):
		code, message = dto.ErrCodeUpstreamUnavailable, "integration temporarily unavailable"
	case errors.Is(err, erpdomain.ErrRateLimited):
		code, message = dto.ErrCodeRateLimited, "upstream is throttling requests"
	case errors.Is(err, erpdomain.ErrMappingSourceUnavailable):
		code, message = dto.ErrCodeUpstreamUnavailable, "price book unavailable"
	}

	var remoteErr *erpdomain.RemoteError
	if code == dto.ErrCodeInternal && errors.As(err, &remoteErr) {
		code, message = dto.ErrCodeUpstreamUnavailable, "integration request failed"
	}

	c.JSON(dto.HTTPStatusForCode(code), dto.NewErrorResponse(code, message))
}
