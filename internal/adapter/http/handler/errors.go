package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spamguardian/spam-guardian/internal/pipeline"
	"github.com/spamguardian/spam-guardian/internal/usecase"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapUsecaseError maps usecase and pipeline errors to HTTP error responses.
func MapUsecaseError(err error) ErrorResponse {
	switch {
	case errors.Is(err, usecase.ErrEmptyText):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_REQUEST",
			Message:    err.Error(),
		}
	case errors.Is(err, usecase.ErrBatchTooLarge):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "BATCH_TOO_LARGE",
			Message:    err.Error(),
		}
	case errors.Is(err, usecase.ErrInvalidRequest):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_REQUEST",
			Message:    "invalid request",
		}
	case errors.Is(err, usecase.ErrVerdictNotFound):
		return ErrorResponse{
			StatusCode: http.StatusNotFound,
			Code:       "NOT_FOUND",
			Message:    "verdict not found",
		}
	case errors.Is(err, usecase.ErrHistoryDisabled):
		return ErrorResponse{
			StatusCode: http.StatusNotFound,
			Code:       "HISTORY_DISABLED",
			Message:    "verdict history is not enabled",
		}
	case errors.Is(err, usecase.ErrModelNotReady):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "MODEL_NOT_READY",
			Message:    "model is still loading",
		}
	case errors.Is(err, pipeline.ErrClassification):
		return ErrorResponse{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       "CLASSIFICATION_FAILED",
			Message:    err.Error(),
		}
	case errors.Is(err, pipeline.ErrLoad):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "MODEL_UNAVAILABLE",
			Message:    "model artifacts could not be loaded",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       "INTERNAL_ERROR",
			Message:    "internal server error",
		}
	}
}

// HandleUsecaseError handles a usecase error by sending an appropriate HTTP response.
func HandleUsecaseError(c *gin.Context, err error) {
	errResp := MapUsecaseError(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}

// HandleInvalidUUID handles an invalid UUID parameter error.
func HandleInvalidUUID(c *gin.Context, paramName string) {
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid "+paramName)
}

// HandleInvalidRequest handles a generic invalid request error.
func HandleInvalidRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", message)
}
