package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/interfaces/http/dto"
	"github.com/clinicore/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides the response and error helpers shared by all HTTP
// handlers.
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{logger: logger}
}

// Success sends a 200 response with the given payload
func (h *BaseHandler) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination metadata
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response with the given payload
func (h *BaseHandler) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status and code
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// HandleError translates an application error into an HTTP response. Domain
// errors map to their transport code and status; anything else becomes a 500
// with the detail kept out of the response body.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(string(domainErr.Code))
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, middleware.GetRequestID(c)))
		return
	}

	h.logger.Error("unhandled error",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "internal server error", middleware.GetRequestID(c)))
}

// BindJSON binds the request body and reports validation failures. Returns
// false when the request has already been answered.
func (h *BaseHandler) BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters and reports validation failures
func (h *BaseHandler) BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// UUIDParam parses a UUID path parameter. Returns false when the request has
// already been answered with a validation error.
func (h *BaseHandler) UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

// Scope extracts the caller's access scope set by the auth middleware.
// Returns false when the request has already been answered with a 401.
func (h *BaseHandler) Scope(c *gin.Context) (shared.AccessScope, bool) {
	scope, ok := middleware.GetAccessScope(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "authentication required")
		return shared.AccessScope{}, false
	}
	return scope, true
}
