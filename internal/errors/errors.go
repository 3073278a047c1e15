// Package errors defines the structured error type shared by the HTTP layer
// and the job pipeline, plus constructors for the error classes the pipeline
// distinguishes: resolution, acquisition, and merge failures.
package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/muxfetch/muxfetch/internal/logger"
)

// ServiceError represents a structured error with HTTP context
type ServiceError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// ToGinResponse sends the error as a standardized JSON response
func (e *ServiceError) ToGinResponse(c *gin.Context) {
	statusCode := e.HTTPStatus
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	response := gin.H{
		"status":  "error",
		"error":   e.Message,
		"message": e.Error(),
		"code":    e.Code,
	}

	if len(e.Context) > 0 {
		response["details"] = e.Context
	}

	logger.Error("HTTP error response",
		"status", statusCode,
		"code", e.Code,
		"message", e.Message,
		"path", c.Request.URL.Path,
		"method", c.Request.Method)

	c.JSON(statusCode, response)
}

// Common error constructors

func NewValidationError(message string, field string) *ServiceError {
	return &ServiceError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Context:    map[string]interface{}{"field": field},
	}
}

func NewNotFoundError(resource string, id string) *ServiceError {
	return &ServiceError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
		Context:    map[string]interface{}{"resource": resource, "id": id},
	}
}

func NewInternalError(message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewResolutionError wraps a failure to inspect a media URL. Surfaced to the
// analyze caller; no job is created for these.
func NewResolutionError(url string, cause error) *ServiceError {
	return &ServiceError{
		Code:       "RESOLUTION_ERROR",
		Message:    "failed to analyze media URL",
		HTTPStatus: http.StatusInternalServerError,
		Context:    map[string]interface{}{"url": url},
		Cause:      cause,
	}
}

// NewAcquisitionError wraps a stream fetch failure. Fatal for video streams,
// recoverable (logged and skipped) for individual audio languages.
func NewAcquisitionError(stream string, cause error) *ServiceError {
	return &ServiceError{
		Code:       "ACQUISITION_ERROR",
		Message:    "failed to download " + stream + " stream",
		HTTPStatus: http.StatusInternalServerError,
		Context:    map[string]interface{}{"stream": stream},
		Cause:      cause,
	}
}

// NewMergeError wraps a transcoder invocation failure; always fatal to the job.
func NewMergeError(cause error) *ServiceError {
	return &ServiceError{
		Code:       "MERGE_ERROR",
		Message:    "failed to merge streams",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// HTTP helpers to eliminate duplicate error handling

// HandleValidationError sends a validation error response
func HandleValidationError(c *gin.Context, message string, field string) {
	NewValidationError(message, field).ToGinResponse(c)
}

// HandleNotFound sends a not found error response
func HandleNotFound(c *gin.Context, resource string, id string) {
	NewNotFoundError(resource, id).ToGinResponse(c)
}

// HandleInternalError sends an internal server error response
func HandleInternalError(c *gin.Context, message string, err error) {
	NewInternalError(message, err).ToGinResponse(c)
}
