package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// userID resolves the caller identity from the X-User-ID header, falling
// back to the user_id query parameter.
func userID(c *gin.Context) (string, error) {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id, nil
	}
	if id := c.Query("user_id"); id != "" {
		return id, nil
	}
	return "", errors.New("missing user identity: set X-User-ID header or user_id query parameter")
}
