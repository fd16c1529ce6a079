package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/services"
)

type ProfileHandler struct {
	log        *logger.Logger
	profileSvc services.ProfileService
}

func NewProfileHandler(log *logger.Logger, profileSvc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		log:        log.With("handler", "ProfileHandler"),
		profileSvc: profileSvc,
	}
}

// GET /api/v1/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_user", err)
		return
	}

	profile, err := h.profileSvc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_load_failed", err)
		return
	}
	RespondOK(c, profile)
}

// GET /api/v1/profile/summary
func (h *ProfileHandler) GetSummary(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_user", err)
		return
	}

	summary, err := h.profileSvc.GetSummary(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_load_failed", err)
		return
	}
	RespondOK(c, summary)
}

// PATCH /api/v1/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_user", err)
		return
	}

	var update services.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	profile, err := h.profileSvc.UpdateProfile(c.Request.Context(), uid, update)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			RespondError(c, http.StatusUnprocessableEntity, "invalid_consent_tier", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "profile_update_failed", err)
		return
	}
	RespondOK(c, profile)
}

// DELETE /api/v1/profile
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_user", err)
		return
	}

	if err := h.profileSvc.DeleteProfile(c.Request.Context(), uid); err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
