package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"eventpilot/config"
	"eventpilot/database"
	"eventpilot/httpServices/resend"
	"eventpilot/logger"
	"eventpilot/routes"
	aiService "eventpilot/services/ai"
	"eventpilot/services/faces"
	galleryService "eventpilot/services/gallery"
	"eventpilot/services/mailer"
	regService "eventpilot/services/registration"
	"eventpilot/services/storage"
	valetService "eventpilot/services/valet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load configuration:", err)
		os.Exit(1)
	}
	if err := logger.Init(filepath.Join("log", "app")); err != nil {
		fmt.Println("Failed to open log files:", err)
	}
	defer logger.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to the database", err)
	}

	asyncLogger := logger.NewAsyncLogger(db)
	go asyncLogger.ProcessLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sender mailer.Sender
	if cfg.EmailConfigured() {
		sender = mailer.ResendSender{Client: resend.NewClient(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.FromEmail)}
	} else {
		logger.Warning("RESEND_API_KEY or FROM_EMAIL missing, emails are disabled")
	}
	mail := mailer.New(db, sender, cfg.BaseURL)
	if mail.Configured() {
		go mail.RunRetryLoop(ctx, time.Minute)
	}

	var store storage.Store
	if cfg.StorageConfigured() {
		s3Store, err := storage.NewS3(ctx, storage.Options{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.AWSEndpointURL,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.CloudFrontURL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize S3", err)
		}
		store = s3Store
	} else {
		logger.Warning("AWS_S3_BUCKET missing, uploads use in-memory storage")
		store = storage.NewMemory("local")
	}

	var (
		galleryStore storage.Store
		processor    *galleryService.Processor
	)
	if cfg.GalleryConfigured() {
		processor, galleryStore = setupGallery(ctx, cfg, db)
	}

	var gen aiService.Generator
	if cfg.AIConfigured() {
		gemini, err := aiService.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini, AI features disabled", err)
		} else {
			gen = gemini
		}
	}

	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768,
		WriteBufferSize: 32768,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       50 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.FrontendURL != "*",
	}))

	routes.SetupRoutes(app, routes.Deps{
		DB:           db,
		Config:       cfg,
		Logger:       asyncLogger,
		Mailer:       mail,
		Registration: regService.NewService(db, mail),
		Valet:        valetService.NewService(db, mail, cfg.BaseURL),
		AI:           aiService.NewService(db, gen),
		Store:        store,
		GalleryStore: galleryStore,
		Processor:    processor,
	})

	go func() {
		logger.Success("Server is running", zap.String("addr", cfg.ListenAddr()))
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			logger.Error("Server stopped", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Failed to shut down server", err)
	}
	if processor != nil {
		if err := processor.Shutdown(shutdownCtx); err != nil {
			logger.Error("Gallery workers did not stop in time", err)
		}
	}
	asyncLogger.Close()
}

// setupGallery returns nil values when the gallery cannot start so the
// gallery routes answer 503 instead of failing at request time.
func setupGallery(ctx context.Context, cfg *config.Config, db *gorm.DB) (*galleryService.Processor, storage.Store) {
	galleryStore, err := storage.NewS3(ctx, storage.Options{
		Region:    cfg.AWSRegion,
		Endpoint:  cfg.AWSEndpointURL,
		Bucket:    cfg.GalleryBucket,
		PublicURL: cfg.GalleryCloudFrontURL,
	})
	if err != nil {
		logger.Error("Failed to initialize gallery storage", err)
		return nil, nil
	}
	indexer, err := faces.NewRekognition(ctx, cfg.RekognitionRegion)
	if err != nil {
		logger.Error("Failed to initialize Rekognition", err)
		return nil, nil
	}
	processor := galleryService.NewProcessor(db, galleryStore, indexer, galleryService.HTTPFetcher{Timeout: 10 * time.Second}, galleryService.Options{
		Workers:          cfg.GalleryWorkers,
		ClusterThreshold: cfg.GalleryClusterThreshold,
		MatchThreshold:   cfg.GalleryMatchThreshold,
	})
	return processor, galleryStore
}
