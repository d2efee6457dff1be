package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postwave/postwave/configs"
	"github.com/postwave/postwave/internal/api/handlers"
	"github.com/postwave/postwave/internal/api/middleware"
	job "github.com/postwave/postwave/internal/jobs"
	"github.com/postwave/postwave/internal/notify"
	"github.com/postwave/postwave/internal/publisher"
	"github.com/postwave/postwave/internal/queue"
	"github.com/postwave/postwave/internal/repository"
	"github.com/postwave/postwave/internal/scheduler"
	"github.com/postwave/postwave/internal/service"
	"github.com/postwave/postwave/internal/worker"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	publishQueue := queue.New(redisConn, queue.Hooks{
		OnJobCompleted: func(jobID, taskType string) {
			log.Printf("Job completed: %s (%s)", jobID, taskType)
		},
		OnJobFailed: func(jobID, taskType string, err error) {
			log.Printf("Job failed: %s (%s): %v", jobID, taskType, err)
		},
	})
	defer publishQueue.Shutdown()

	sched := scheduler.New(publishQueue)

	var notifier notify.Notifier
	if cfg.SlackToken != "" && cfg.SlackAlertChannel != "" {
		notifier = notify.NewSlackNotifier(cfg.SlackToken, cfg.SlackAlertChannel)
	} else {
		notifier = notify.NewLogNotifier()
	}

	registry := publisher.NewRegistry(*cfg)
	publishWorker := worker.New(postRepo, targetRepo, socialAccountRepo, userRepo, registry, notifier)

	userService := service.NewUserService(userRepo)
	postService := service.NewPostService(db, postRepo, targetRepo, socialAccountRepo, sched)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/targets", post.ListTargets)
	api.Post("/posts/cancel", post.CancelPost)
	api.Post("/posts/reschedule", post.ReschedulePost)
	api.Post("/posts/publish_now", post.PublishNow)
	api.Post("/posts/remove", post.RemovePost)

	account := handlers.NewAccountHandler(socialAccountRepo)
	api.Get("/accounts", account.ListSocialAccounts)
	api.Post("/accounts/remove", account.DeleteSocialAccount)

	// cron jobs
	reconcileJob := job.NewReconcileJob(postRepo, publishQueue, sched)

	c := cron.New()
	c.AddFunc("@every 00h05m00s", reconcileJob.Run)
	c.Start()
	defer c.Stop()

	if err := publishQueue.Start(publishWorker.HandlePublishPostTask); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
