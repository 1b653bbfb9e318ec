package handler

import (
	"net/http"

	"github.com/gdugdh24/matchcore/internal/usecase/conversation"
	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	conversationUseCase *conversation.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *conversation.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

// OpenConversationRequest registers the participants of a chat
type OpenConversationRequest struct {
	ChatID         string   `json:"chat_id" binding:"required,max=128"`
	ParticipantIDs []string `json:"participant_ids" binding:"required,min=1,dive,required"`
}

// NotifyMessageRequest is sent by the chat service after a message is stored.
// Without recipient_ids every other participant is notified.
type NotifyMessageRequest struct {
	MessageID    string   `json:"message_id" binding:"required"`
	Text         string   `json:"text"`
	RecipientIDs []string `json:"recipient_ids" binding:"omitempty,dive,required"`
}

// Open handles POST /conversations
// @Summary Register a conversation
// @Description Stores the participant list of a chat; the caller is always a participant.
// @Tags conversations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body OpenConversationRequest true "Participants"
// @Success 201 {object} domain.Conversation
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /conversations [post]
func (h *ConversationHandler) Open(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req OpenConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
		})
		return
	}

	conv, err := h.conversationUseCase.Open(c.Request.Context(), userID, req.ChatID, req.ParticipantIDs)
	if err != nil {
		writeDomainError(c, err, "failed to open conversation")
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// NotifyMessage handles POST /conversations/:chat_id/notify
// @Summary Fan out a new-message event
// @Description Pushes NewMessage to the conversation topic and to every recipient's personal channel.
// @Tags conversations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param chat_id path string true "Conversation id"
// @Param request body NotifyMessageRequest true "Message event"
// @Success 202 {object} map[string]int
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /conversations/{chat_id}/notify [post]
func (h *ConversationHandler) NotifyMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req NotifyMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
		})
		return
	}

	n, err := h.conversationUseCase.NotifyNewMessage(c.Request.Context(), conversation.MessageEvent{
		ChatID:       c.Param("chat_id"),
		SenderID:     userID,
		MessageID:    req.MessageID,
		Text:         req.Text,
		RecipientIDs: req.RecipientIDs,
	})
	if err != nil {
		writeDomainError(c, err, "failed to notify conversation")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"recipients": n})
}
