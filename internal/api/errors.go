package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"story-server/internal/llm"
	"story-server/internal/models"
)

const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidStory  = "invalid_story"
	ErrCodeModelFailed   = "model_failed"
	ErrCodeUnavailable   = "unavailable"
	ErrCodeInternalError = "internal_error"
)

func (h *Handler) handleError(c *gin.Context, err error) {
	var status int
	var resp ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
		resp = ErrorResponse{Code: ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrStore):
		// may wrap ErrNotFound from a failed update inside the transaction
		status = http.StatusInternalServerError
		resp = ErrorResponse{Code: ErrCodeInternalError, Message: "Failed to store the story"}
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		resp = ErrorResponse{Code: ErrCodeNotFound, Message: "Story not found"}
	case errors.Is(err, models.ErrSchemaValidation), errors.Is(err, models.ErrTreeLimit):
		status = http.StatusBadGateway
		resp = ErrorResponse{Code: ErrCodeInvalidStory, Message: "The model returned an invalid story"}
	case errors.Is(err, llm.ErrModelFailed):
		status = http.StatusBadGateway
		resp = ErrorResponse{Code: ErrCodeModelFailed, Message: "The model request failed"}
	case errors.Is(err, models.ErrConfiguration):
		status = http.StatusServiceUnavailable
		resp = ErrorResponse{Code: ErrCodeUnavailable, Message: "Story generation is not configured"}
	default:
		status = http.StatusInternalServerError
		resp = ErrorResponse{Code: ErrCodeInternalError, Message: "An unexpected internal error occurred"}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, resp)
}
