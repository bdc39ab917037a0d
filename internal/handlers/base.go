package handlers

import (
	"errors"
	"log"
	"net/http"

	"booklog/internal/middleware"
	"booklog/internal/models"
	"booklog/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError 把领域错误映射为 HTTP 状态码
func respondError(c *gin.Context, err error) {
	code, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		code, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrForbidden):
		code, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrNotFound):
		code, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrValidation):
		code, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, services.ErrConflictExhausted):
		code, kind = http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrStoreUnavailable), errors.Is(err, services.ErrUpstream):
		code, kind = http.StatusServiceUnavailable, "unavailable"
	}

	message := err.Error()
	if code >= http.StatusInternalServerError {
		log.Printf("[api] %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "temporarily unavailable, please retry"
	}

	c.AbortWithStatusJSON(code, middleware.ErrorResponse{
		Error:   kind,
		Message: message,
		Code:    code,
	})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorResponse{
		Error:   "validation",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}

// identity 未登录时返回零值，由 service 层判定 Unauthorized
func identity(c *gin.Context) models.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}
