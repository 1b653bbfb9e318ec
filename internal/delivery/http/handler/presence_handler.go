package handler

import (
	"net/http"

	"github.com/gdugdh24/matchcore/internal/usecase/presence"
	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	presenceUseCase *presence.PresenceUseCase
}

func NewPresenceHandler(presenceUseCase *presence.PresenceUseCase) *PresenceHandler {
	return &PresenceHandler{
		presenceUseCase: presenceUseCase,
	}
}

// GetOnline handles GET /users/:user_id/online
// @Summary Whether a user has a live push session
// @Tags presence
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "User id"
// @Router /users/{user_id}/online [get]
func (h *PresenceHandler) GetOnline(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	targetID := c.Param("user_id")
	online, err := h.presenceUseCase.IsOnline(c.Request.Context(), targetID)
	if err != nil {
		writeDomainError(c, err, "failed to get presence")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   targetID,
		"is_online": online,
	})
}
