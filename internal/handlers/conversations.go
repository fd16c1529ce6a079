package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/services"
)

type ConversationHandler struct {
	log     *logger.Logger
	convSvc services.ConversationService
}

func NewConversationHandler(log *logger.Logger, convSvc services.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		log:     log.With("handler", "ConversationHandler"),
		convSvc: convSvc,
	}
}

// GET /api/v1/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_user", err)
		return
	}

	offset := queryInt(c, "offset", 0)
	limit := queryInt(c, "limit", 50)

	page, err := h.convSvc.ListMessages(c.Request.Context(), uid, offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "conversation_list_failed", err)
		return
	}
	RespondOK(c, page)
}

// GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	message, err := h.convSvc.GetMessage(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "conversation_load_failed", err)
		return
	}
	if message == nil {
		RespondError(c, http.StatusNotFound, "message_not_found", errors.New("message not found"))
		return
	}
	RespondOK(c, message)
}
