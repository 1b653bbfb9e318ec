package handler

import (
	"context"
	"net/http"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/usecase/likes"
	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	likeUseCase *likes.LikeUseCase
}

func NewLikeHandler(likeUseCase *likes.LikeUseCase) *LikeHandler {
	return &LikeHandler{
		likeUseCase: likeUseCase,
	}
}

// Like handles POST /likes/:user_id
// @Summary Like a user
// @Description Idempotent. Liking someone who already likes you makes the pair mutual.
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Target user id"
// @Success 200 {object} likes.LikeResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /likes/{user_id} [post]
func (h *LikeHandler) Like(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.likeUseCase.Like(c.Request.Context(), userID, c.Param("user_id"))
	if err != nil {
		writeDomainError(c, err, "failed to like user")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Unlike handles DELETE /likes/:user_id
// @Summary Withdraw a like
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Target user id"
// @Success 200 {object} likes.UnlikeResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /likes/{user_id} [delete]
func (h *LikeHandler) Unlike(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.likeUseCase.Unlike(c.Request.Context(), userID, c.Param("user_id"))
	if err != nil {
		writeDomainError(c, err, "failed to unlike user")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Unmatch handles POST /likes/:user_id/unmatch
// @Summary End a mutual match
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Matched user id"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /likes/{user_id}/unmatch [post]
func (h *LikeHandler) Unmatch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.likeUseCase.Unmatch(c.Request.Context(), userID, c.Param("user_id")); err != nil {
		writeDomainError(c, err, "failed to unmatch")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "unmatched"})
}

// CheckStatus handles GET /likes/check/:user_id
// @Summary Pairwise like status
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Other user id"
// @Success 200 {object} domain.PairStatus
// @Router /likes/check/{user_id} [get]
func (h *LikeHandler) CheckStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.likeUseCase.GetStatus(c.Request.Context(), userID, c.Param("user_id"))
	if err != nil {
		writeDomainError(c, err, "failed to get like status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListSent handles GET /likes/sent
// @Summary Users I liked
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Param limit query int false "1..100, default 50"
// @Param offset query int false "offset"
// @Success 200 {object} PageResponse
// @Router /likes/sent [get]
func (h *LikeHandler) ListSent(c *gin.Context) {
	h.list(c, h.likeUseCase.ListSent, "failed to list sent likes")
}

// ListReceived handles GET /likes/received
// @Summary Users who liked me
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Success 200 {object} PageResponse
// @Router /likes/received [get]
func (h *LikeHandler) ListReceived(c *gin.Context) {
	h.list(c, h.likeUseCase.ListReceived, "failed to list received likes")
}

// ListMutual handles GET /likes/mutual
// @Summary Mutual matches
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Success 200 {object} PageResponse
// @Router /likes/mutual [get]
func (h *LikeHandler) ListMutual(c *gin.Context) {
	h.list(c, h.likeUseCase.ListMutual, "failed to list mutual matches")
}

type listFunc func(ctx context.Context, userID string, limit, offset int) ([]*domain.RelationshipItem, int, error)

func (h *LikeHandler) list(c *gin.Context, fn listFunc, fallback string) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid pagination parameters",
		})
		return
	}
	limit, offset := likes.NormalizePage(q.Limit, q.Offset)

	items, total, err := fn(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(c, err, fallback)
		return
	}

	c.JSON(http.StatusOK, PageResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Stats handles GET /likes/stats
// @Summary Aggregate like stats
// @Tags likes
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.LikeStats
// @Router /likes/stats [get]
func (h *LikeHandler) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.likeUseCase.Stats(c.Request.Context(), userID)
	if err != nil {
		writeDomainError(c, err, "failed to get like stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}
