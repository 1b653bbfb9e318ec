package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenIssuer mints bearer credentials for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type AuthHandler struct {
	tokens TokenIssuer
}

func NewAuthHandler(tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		tokens: tokens,
	}
}

// TokenResponse represents a freshly issued credential
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Refresh handles POST /auth/refresh
// @Summary Rotate the bearer credential
// @Description Exchanges a still-valid token for a new one. Push clients call this before reconnecting after an auth failure.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	token, exp, err := h.tokens.Issue(userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		ExpiresAt:   exp,
	})
}

// Me handles GET /auth/me
// @Summary Current user id
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
	})
}
