package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/interview-panel/internal/config"
	"alfredoptarigan/interview-panel/internal/handlers"
	"alfredoptarigan/interview-panel/internal/interview"
	"alfredoptarigan/interview-panel/internal/repositories"
	"alfredoptarigan/interview-panel/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	phases, err := config.LoadPhaseConfigs(cfg.Interview.PhasesFile)
	if err != nil {
		log.Fatalf("❌ Invalid phase layout: %v", err)
	}

	rotation, err := interview.ParseRotationPolicy(cfg.Interview.Rotation)
	if err != nil {
		log.Fatalf("❌ Invalid rotation policy: %v", err)
	}

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	docRepo := repositories.NewDocumentRepository(db)
	buildRepo := repositories.NewKnowledgeBuildRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	log.Println("✅ Repositories initialized successfully")

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.EmbeddingModel)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Alias,
		cfg.Qdrant.VectorSize,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}
	log.Println("✅ Qdrant initialized successfully")

	retriever := services.NewKnowledgeRetriever(geminiService, qdrantService)

	interviewService, err := services.NewInterviewService(geminiService, retriever, sessionRepo, services.PanelSettings{
		Models:          cfg.PersonaModels(),
		ComparisonModel: cfg.Gemini.ComparisonModel,
		Rotation:        rotation,
		Phases:          phases,
		DegradedRetries: cfg.Interview.DegradedRetries,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize interview panel: %v", err)
	}
	log.Println("✅ Interview service initialized")

	indexer := services.NewKnowledgeIndexer(
		services.NewPDFParserService(),
		services.NewTextChunker(),
		geminiService,
		qdrantService,
		cfg.Worker.EmbedConcurrency,
	)
	knowledgeService := services.NewKnowledgeService(buildRepo, docRepo, indexer)

	worker := services.NewWorker(
		buildRepo,
		knowledgeService,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	// Initialize Handlers
	sessionHandler := handlers.NewSessionHandler(interviewService, rotation, cfg.Interview.StreamTimeout)
	compareHandler := handlers.NewCompareHandler(interviewService)
	uploadHandler := handlers.NewUploadHandler(docRepo, storageService, cfg.Storage.MaxFileSize)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeService, worker)
	log.Println("✅ Handlers initialized")

	app := fiber.New(fiber.Config{
		AppName:      "Interview Panel API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	sessions := api.Group("/sessions")
	sessions.Post("/", sessionHandler.HandleStart)
	sessions.Get("/:id", sessionHandler.HandleTranscript)
	sessions.Delete("/:id", sessionHandler.HandleEnd)
	sessions.Post("/:id/questions", sessionHandler.HandleNextQuestion)
	sessions.Get("/:id/questions/stream", sessionHandler.HandleQuestionStream)
	sessions.Post("/:id/answers", sessionHandler.HandleSubmitAnswer)
	sessions.Get("/:id/progress", sessionHandler.HandleProgress)

	api.Post("/compare", compareHandler.HandleCompare)

	api.Post("/knowledge/upload", uploadHandler.HandleUpload)
	api.Get("/knowledge/documents/:id", uploadHandler.HandleGetDocument)
	api.Post("/knowledge/rebuild", knowledgeHandler.HandleRebuild)
	api.Get("/knowledge/rebuild/:id", knowledgeHandler.HandleGetBuild)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Interview Panel API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/sessions",
				"GET /api/v1/sessions/:id",
				"DELETE /api/v1/sessions/:id",
				"POST /api/v1/sessions/:id/questions",
				"GET /api/v1/sessions/:id/questions/stream",
				"POST /api/v1/sessions/:id/answers",
				"GET /api/v1/sessions/:id/progress",
				"POST /api/v1/compare",
				"POST /api/v1/knowledge/upload",
				"GET /api/v1/knowledge/documents/:id",
				"POST /api/v1/knowledge/rebuild",
				"GET /api/v1/knowledge/rebuild/:id",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		cancel()
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := handlers.StatusFor(err)

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
