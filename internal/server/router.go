package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/othello-backend/internal/handlers"
	"github.com/yungbote/othello-backend/internal/middleware"
)

type RouterConfig struct {
	HealthCheckHandler  *handlers.HealthCheckHandler
	ChatHandler         *handlers.ChatHandler
	ProfileHandler      *handlers.ProfileHandler
	SuggestionHandler   *handlers.SuggestionHandler
	ConversationHandler *handlers.ConversationHandler
	RequestLog          *middleware.RequestLog
	AllowedOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.RequestLog != nil {
		router.Use(cfg.RequestLog.Handler())
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID", "X-Correlation-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthCheckHandler.HealthCheck)

	api := router.Group("/api/v1")
	{
		// Chat
		api.POST("/chat", cfg.ChatHandler.SendMessage)
		// Profile
		api.GET("/profile", cfg.ProfileHandler.GetProfile)
		api.GET("/profile/summary", cfg.ProfileHandler.GetSummary)
		api.PATCH("/profile", cfg.ProfileHandler.UpdateProfile)
		api.DELETE("/profile", cfg.ProfileHandler.DeleteProfile)
		// Suggestions
		api.GET("/suggestions", cfg.SuggestionHandler.List)
		api.GET("/suggestions/:id", cfg.SuggestionHandler.Get)
		api.POST("/suggestions/:id/approve", cfg.SuggestionHandler.Approve)
		api.POST("/suggestions/:id/deny", cfg.SuggestionHandler.Deny)
		api.POST("/suggestions/:id/expire", cfg.SuggestionHandler.Expire)
		// Conversations
		api.GET("/conversations", cfg.ConversationHandler.List)
		api.GET("/conversations/:id", cfg.ConversationHandler.Get)
	}

	return router
}

// ParseOrigins splits a comma separated origin list from the environment.
func ParseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
