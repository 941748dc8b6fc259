// Package main is the entry point of the copro-smart-go API server.
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

	"copro-smart-go/internal/config"
	"copro-smart-go/internal/handler"
	"copro-smart-go/internal/middleware"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/pipeline"
	"copro-smart-go/internal/repository"
	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/database"
	"copro-smart-go/pkg/embedding"
	"copro-smart-go/pkg/es"
	"copro-smart-go/pkg/kafka"
	"copro-smart-go/pkg/llm"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/storage"
	"copro-smart-go/pkg/tika"
	"copro-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// credentialRateLimit bounds sign-in attempts per client IP.
const (
	credentialRateWindow = time.Minute
	credentialRateLimit  = 10
)

func main() {
	configPath := os.Getenv("COPRO_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialised")

	database.InitDB(cfg.Database, model.AllModels()...)
	database.InitRedis(cfg.Redis)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.New(startCtx, cfg.Storage, cfg.MinIO)
	if err != nil {
		log.Fatal("failed to initialise storage", err)
	}
	index, err := es.InitIndex(startCtx, cfg.Elasticsearch)
	if err != nil {
		log.Fatal("failed to initialise vector index", err)
	}
	cancelStart()

	// repositories
	userRepo := repository.NewUserRepository(database.DB)
	refreshRepo := repository.NewRefreshTokenRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB)
	coproprieteRepo := repository.NewCoproprieteRepository(database.DB)
	residentRepo := repository.NewResidentRepository(database.DB)
	incidentRepo := repository.NewIncidentRepository(database.DB)
	assemblyRepo := repository.NewAssemblyRepository(database.DB)
	metadataRepo := repository.NewMetadataRepository(database.DB)
	chunkRepo := repository.NewDocumentChunkRepository(database.DB)
	blacklist := repository.NewTokenBlacklist(database.RDB)
	summaryLocker := repository.NewLocker(database.RDB, "copro:summary:")

	// clients
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireMinutes, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	processor := pipeline.NewProcessor(store, tikaClient, embeddingClient, index, metadataRepo, chunkRepo, cfg.Upload)

	var (
		publisher service.TaskPublisher
		producer  *kafka.Producer
		consumer  *kafka.Consumer
	)
	if cfg.Upload.IngestionMode == service.IngestionKafka {
		producer = kafka.NewProducer(cfg.Kafka)
		consumer = kafka.NewConsumer(cfg.Kafka, database.RDB, processor)
		publisher = producer
	}

	// services
	summarizer := service.NewSummarizer(conversationRepo, llmClient, summaryLocker, cfg.Chat)
	conversationService := service.NewConversationService(conversationRepo, summarizer, cfg.Chat)
	retrievalService := service.NewRetrievalService(embeddingClient, index)
	chatService := service.NewChatService(conversationService, retrievalService, llmClient, cfg.Chat)
	authService := service.NewAuthService(userRepo, refreshRepo, blacklist, jwtManager, cfg.Google, nil)
	userService := service.NewUserService(userRepo)
	adminService := service.NewAdminService(userRepo, conversationService)
	coproprieteService := service.NewCoproprieteService(coproprieteRepo)
	residentService := service.NewResidentService(residentRepo, coproprieteRepo)
	incidentService := service.NewIncidentService(incidentRepo, residentRepo, store)
	assemblyService := service.NewAssemblyService(assemblyRepo, llmClient, cfg.Chat)
	uploadService := service.NewUploadService(store, metadataRepo, processor, publisher, cfg.Upload)
	fileService := service.NewFileService(store, metadataRepo, chunkRepo, index)

	scheduler, err := service.StartTokenCleanup(cfg.JWT.CleanupCron, authService)
	if err != nil {
		log.Fatal("failed to schedule token cleanup", err)
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	if consumer != nil {
		go func() {
			defer close(consumerDone)
			consumer.Run(consumerCtx)
		}()
	} else {
		close(consumerDone)
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.CORS))
	r.MaxMultipartMemory = int64(cfg.Upload.MaxSizeMB+1) << 20
	if cfg.Storage.Backend == "" || cfg.Storage.Backend == "local" {
		r.Static("/uploads", cfg.Storage.LocalRoot)
	}

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	coproprieteHandler := handler.NewCoproprieteHandler(coproprieteService)
	residentHandler := handler.NewResidentHandler(residentService)
	incidentHandler := handler.NewIncidentHandler(incidentService)
	assemblyHandler := handler.NewAssemblyHandler(assemblyService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	messageHandler := handler.NewMessageHandler(chatService, conversationService, time.Duration(cfg.Chat.KeepAliveSeconds)*time.Second)
	chatHandler := handler.NewChatHandler(chatService, userService, jwtManager)
	uploadHandler := handler.NewUploadHandler(uploadService)
	documentHandler := handler.NewDocumentHandler(fileService)
	searchHandler := handler.NewSearchHandler(retrievalService)
	adminHandler := handler.NewAdminHandler(adminService)

	requireAuth := middleware.AuthMiddleware(jwtManager, blacklist, userService)
	limitCredentials := middleware.RateLimit(credentialRateWindow, credentialRateLimit)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", limitCredentials, authHandler.Signup)
			auth.POST("/login", limitCredentials, authHandler.Login)
			auth.POST("/google", limitCredentials, authHandler.Google)
			auth.POST("/refresh", limitCredentials, authHandler.Refresh)
			auth.POST("/token", limitCredentials, authHandler.Token)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		authed := api.Group("")
		authed.Use(requireAuth)

		users := authed.Group("/users")
		{
			users.GET("", userHandler.List)
			users.GET("/email/:email", userHandler.GetByEmail)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.POST("/:id/password", userHandler.ChangePassword)
		}

		coproprietes := authed.Group("/coproprietes")
		{
			coproprietes.GET("", coproprieteHandler.List)
			coproprietes.POST("", coproprieteHandler.Create)
			coproprietes.GET("/:id", coproprieteHandler.Get)
			coproprietes.PUT("/:id", coproprieteHandler.Update)
			coproprietes.DELETE("/:id", coproprieteHandler.Delete)
		}

		residents := authed.Group("/residents")
		{
			residents.GET("", residentHandler.List)
			residents.POST("", residentHandler.Create)
			residents.GET("/copropriete/:id", residentHandler.ListByCopropriete)
			residents.GET("/:id", residentHandler.Get)
			residents.PUT("/:id", residentHandler.Update)
			residents.DELETE("/:id", residentHandler.Delete)
		}

		incidents := authed.Group("/incidents")
		{
			incidents.GET("", incidentHandler.List)
			incidents.POST("", incidentHandler.Create)
			incidents.GET("/copropriete/:id", incidentHandler.ListByCopropriete)
			incidents.GET("/resident/:residentId", incidentHandler.ListByResident)
			incidents.GET("/:id", incidentHandler.Get)
			incidents.PUT("/:id", incidentHandler.Update)
			incidents.DELETE("/:id", incidentHandler.Delete)
		}

		assemblies := authed.Group("/assemblies")
		{
			assemblies.GET("", assemblyHandler.List)
			assemblies.POST("", assemblyHandler.Create)
			assemblies.GET("/copropriete/:id", assemblyHandler.ListByCopropriete)
			assemblies.GET("/:id", assemblyHandler.Get)
			assemblies.PATCH("/:id", assemblyHandler.Update)
			assemblies.DELETE("/:id", assemblyHandler.Delete)
			assemblies.POST("/:id/agenda", assemblyHandler.AddAgendaItem)
			assemblies.PATCH("/:id/agenda/:itemId", assemblyHandler.UpdateAgendaItem)
			assemblies.DELETE("/:id/agenda/:itemId", assemblyHandler.DeleteAgendaItem)
			assemblies.POST("/:id/decisions", assemblyHandler.AddDecision)
			assemblies.POST("/:id/attendees", assemblyHandler.AddAttendee)
			assemblies.POST("/:id/documents", assemblyHandler.AddDocument)
			assemblies.POST("/:id/generate-minutes", assemblyHandler.GenerateMinutes)
			assemblies.GET("/:id/statistics", assemblyHandler.Statistics)
		}

		conversations := authed.Group("/conversations")
		{
			conversations.GET("", conversationHandler.List)
			conversations.POST("", conversationHandler.Create)
			conversations.GET("/recent", conversationHandler.Recent)
			conversations.GET("/details/:id", conversationHandler.Details)
			conversations.PUT("/:id", conversationHandler.Update)
			conversations.DELETE("/:id", conversationHandler.Delete)
		}

		messages := authed.Group("/messages")
		{
			messages.POST("/ask", messageHandler.Ask)
			messages.POST("/ask/stream", messageHandler.AskStream)
			messages.GET("/conversations", messageHandler.Conversation)
		}

		authed.POST("/upload", uploadHandler.Upload)

		files := authed.Group("/files")
		{
			files.GET("", documentHandler.List)
			files.GET("/metadata/:docId", documentHandler.Metadata)
			files.GET("/:docId", documentHandler.Download)
			files.DELETE("/:docId", documentHandler.Delete)
		}

		authed.GET("/search", searchHandler.Search)
		authed.GET("/chat/websocket-token", chatHandler.GetWebsocketStopToken)

		admin := authed.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/role", adminHandler.SetUserRole)
			admin.GET("/conversations", adminHandler.Conversations)
		}
	}
	// The browser WebSocket API cannot set headers, so the token is in the path.
	r.GET("/chat/:token", chatHandler.Handle)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}

	<-scheduler.Stop().Done()
	summarizer.Stop()
	stopConsumer()
	<-consumerDone
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("failed to close kafka producer: %v", err)
		}
	}
	log.Info("server stopped")
}
