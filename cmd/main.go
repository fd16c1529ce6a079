package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/othello-backend/internal/clients/redis"
	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/db"
	"github.com/yungbote/othello-backend/internal/handlers"
	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/middleware"
	"github.com/yungbote/othello-backend/internal/repos"
	"github.com/yungbote/othello-backend/internal/server"
	"github.com/yungbote/othello-backend/internal/services"
	"github.com/yungbote/othello-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// DB
	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Database auto migration failed", "error", err)
	}
	gormDB := dbService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	profileRepo := repos.NewUserProfileRepo(gormDB, log)
	convRepo := repos.NewConversationRepo(gormDB, log)
	suggRepo := repos.NewSuggestionRepo(gormDB, log)

	// Seed default profile so a fresh install answers immediately
	seedUserID := utils.GetEnv("DEFAULT_USER_ID", "default_user", log)
	if _, err := profileRepo.GetOrCreateDefault(context.Background(), nil, seedUserID); err != nil {
		log.Warn("Default profile seed failed", "user_id", seedUserID, "error", err)
	}

	// Audit bus (optional)
	var auditSink consent.AuditSink
	auditBus, err := redis.NewAuditBus(log)
	if err != nil {
		log.Warn("Audit bus unavailable, gate decisions will not be published", "error", err)
	} else {
		auditSink = auditBus
		defer auditBus.Close()
	}

	// Consent engine
	engine := consent.NewEngine(log, auditSink)

	// AI client
	aiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Fatal("OpenAI client init failed", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	chatService := services.NewChatService(log, profileRepo, convRepo, suggRepo, engine, aiClient)
	profileService := services.NewProfileService(log, profileRepo)
	suggestionService := services.NewSuggestionService(log, profileRepo, suggRepo)
	conversationService := services.NewConversationService(log, profileRepo, convRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	healthCheckHandler := handlers.NewHealthCheckHandler(dbService)
	chatHandler := handlers.NewChatHandler(log, chatService)
	profileHandler := handlers.NewProfileHandler(log, profileService)
	suggestionHandler := handlers.NewSuggestionHandler(log, suggestionService)
	conversationHandler := handlers.NewConversationHandler(log, conversationService)

	// Middleware
	requestLog := middleware.NewRequestLog(log)

	// Router
	log.Info("Setting up router from main...")
	if utils.GetEnvAsBool("GIN_RELEASE_MODE", false, log) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.RouterConfig{
		HealthCheckHandler:  healthCheckHandler,
		ChatHandler:         chatHandler,
		ProfileHandler:      profileHandler,
		SuggestionHandler:   suggestionHandler,
		ConversationHandler: conversationHandler,
		RequestLog:          requestLog,
		AllowedOrigins:      server.ParseOrigins(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", log)),
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), utils.GetEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second, log))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	log.Info("Server stopped")
}
