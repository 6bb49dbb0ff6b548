package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Message: message,
	})
}

// KindErrorResponse carries the machine-readable error kind next to the message.
func KindErrorResponse(c *gin.Context, statusCode int, kind string, message string, fields map[string]string) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Kind:    kind,
	}
	if len(fields) > 0 {
		resp.Errors = fields
	}
	c.JSON(statusCode, resp)
}

func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}

func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}

// Parse UUID from string
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// Get current organiser ID from context (set by auth middleware)
func GetCurrentOrganiserID(c *gin.Context) uuid.UUID {
	organiserID, exists := c.Get("organiser_id")
	if !exists {
		return uuid.Nil
	}
	id, ok := organiserID.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
