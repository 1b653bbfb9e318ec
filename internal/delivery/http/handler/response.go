package handler

import (
	"errors"
	"net/http"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// PageQuery binds ?limit=&offset=
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// PageResponse wraps one page of a list endpoint
type PageResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func currentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
		return "", false
	}
	return id, true
}

// writeDomainError maps sentinel errors to status codes; anything else is a 500 with fallback.
func writeDomainError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidSelfReference):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrInvalidSelfReference.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrUserNotFound.Error()})
	case errors.Is(err, domain.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrMatchNotFound.Error()})
	case errors.Is(err, domain.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrNotificationNotFound.Error()})
	case errors.Is(err, domain.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrConversationNotFound.Error()})
	case errors.Is(err, domain.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: domain.ErrNotParticipant.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}
