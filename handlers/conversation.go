package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"slotline/services/conversation"
	"slotline/utils"
)

// ChatRequest is one inbound message. SessionID is optional on the first
// turn; the reply always carries the id to use from then on.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}

type ConversationHandler struct {
	Svc conversation.ConversationService
}

func NewConversationHandler(svc conversation.ConversationService) *ConversationHandler {
	return &ConversationHandler{Svc: svc}
}

func (h *ConversationHandler) HandleChat(c *gin.Context) {
	logger := utils.GetLogger()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debug("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	reply, err := h.Svc.HandleMessage(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		logger.Error("chat handling failed",
			zap.String("sessionId", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{SessionID: req.SessionID, Reply: reply})
}
