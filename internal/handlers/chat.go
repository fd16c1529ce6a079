package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/services"
)

type ChatHandler struct {
	log     *logger.Logger
	chatSvc services.ChatService
}

func NewChatHandler(log *logger.Logger, chatSvc services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:     log.With("handler", "ChatHandler"),
		chatSvc: chatSvc,
	}
}

type chatRequest struct {
	UserID  string         `json:"user_id"`
	Message string         `json:"message" binding:"required"`
	Context map[string]any `json:"context"`
}

// POST /api/v1/chat
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	uid := req.UserID
	if uid == "" {
		resolved, err := userID(c)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "missing_user", err)
			return
		}
		uid = resolved
	}

	result, err := h.chatSvc.ProcessMessage(c.Request.Context(), uid, req.Message, req.Context)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			RespondError(c, http.StatusRequestTimeout, "request_cancelled", err)
			return
		}
		h.log.Error("Chat processing failed", "user_id", uid, "error", err)
		RespondError(c, http.StatusBadGateway, "chat_failed", err)
		return
	}
	RespondOK(c, result)
}
