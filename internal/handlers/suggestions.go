package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/services"
	"github.com/yungbote/othello-backend/internal/types"
)

type SuggestionHandler struct {
	log     *logger.Logger
	suggSvc services.SuggestionService
}

func NewSuggestionHandler(log *logger.Logger, suggSvc services.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{
		log:     log.With("handler", "SuggestionHandler"),
		suggSvc: suggSvc,
	}
}

type suggestionResponseRequest struct {
	UserResponse string `json:"user_response"`
}

// GET /api/v1/suggestions
func (h *SuggestionHandler) List(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_user", err)
		return
	}

	status := c.Query("status")
	offset := queryInt(c, "offset", 0)
	limit := queryInt(c, "limit", 50)

	list, err := h.suggSvc.List(c.Request.Context(), uid, status, offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "suggestion_list_failed", err)
		return
	}
	RespondOK(c, list)
}

// GET /api/v1/suggestions/:id
func (h *SuggestionHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	suggestion, err := h.suggSvc.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "suggestion_load_failed", err)
		return
	}
	if suggestion == nil {
		RespondError(c, http.StatusNotFound, "suggestion_not_found", errors.New("suggestion not found"))
		return
	}
	RespondOK(c, suggestion)
}

// POST /api/v1/suggestions/:id/approve
func (h *SuggestionHandler) Approve(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, userResponse string) (*types.Suggestion, error) {
		return h.suggSvc.Approve(c.Request.Context(), id, userResponse)
	})
}

// POST /api/v1/suggestions/:id/deny
func (h *SuggestionHandler) Deny(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, userResponse string) (*types.Suggestion, error) {
		return h.suggSvc.Deny(c.Request.Context(), id, userResponse)
	})
}

// POST /api/v1/suggestions/:id/expire
func (h *SuggestionHandler) Expire(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, _ string) (*types.Suggestion, error) {
		return h.suggSvc.Expire(c.Request.Context(), id)
	})
}

func (h *SuggestionHandler) transition(c *gin.Context, act func(uuid.UUID, string) (*types.Suggestion, error)) {
	id, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	var req suggestionResponseRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	suggestion, err := act(id, req.UserResponse)
	if err != nil {
		var conflict *types.StateConflictError
		if errors.As(err, &conflict) {
			RespondError(c, http.StatusConflict, "suggestion_state_conflict", err)
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "suggestion_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "suggestion_transition_failed", err)
		return
	}
	RespondOK(c, suggestion)
}

func pathUUID(c *gin.Context, param string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(param))
}

func queryInt(c *gin.Context, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return defaultVal
	}
	return parsed
}
