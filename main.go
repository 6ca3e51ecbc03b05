package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	api "github.com/MuazAsif-Dev/tasker/cmd/api"
	authdomain "github.com/MuazAsif-Dev/tasker/internal/auth/domain"
	authRepo "github.com/MuazAsif-Dev/tasker/internal/auth/repository"
	authUsecase "github.com/MuazAsif-Dev/tasker/internal/auth/usecase"
	"github.com/MuazAsif-Dev/tasker/internal/notification"
	taskdomain "github.com/MuazAsif-Dev/tasker/internal/task/domain"
	taskRepo "github.com/MuazAsif-Dev/tasker/internal/task/repository"
	taskUsecase "github.com/MuazAsif-Dev/tasker/internal/task/usecase"
	"github.com/MuazAsif-Dev/tasker/pkg/config"
	"github.com/MuazAsif-Dev/tasker/pkg/database"
	"github.com/MuazAsif-Dev/tasker/pkg/fcm"
	"github.com/MuazAsif-Dev/tasker/pkg/jobqueue"
	"github.com/MuazAsif-Dev/tasker/pkg/pubsub"
	"github.com/MuazAsif-Dev/tasker/pkg/sse"
)

// loopbackPublisher short-circuits change events to the local bus for
// single-process deployments where Pub/Sub is not configured.
type loopbackPublisher struct {
	bus *notification.ChangeBus
}

func (p *loopbackPublisher) Publish(ctx context.Context, data []byte) error {
	p.bus.HandleMessage(ctx, data)
	return nil
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{}, &taskdomain.Task{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	taskRepository := taskRepo.NewGormTaskRepository(db)

	jobStore := jobqueue.NewGormStore(db)
	if err := jobStore.Migrate(); err != nil {
		log.Fatal("Failed to migrate job queue:", err)
	}

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()

	// Background workers stop when the process receives SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the change bus. With Pub/Sub configured every process
	// sees every change event; without it events stay in-process.
	var changeBus *notification.ChangeBus
	if cfg.GoogleProjectID != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GoogleProjectID, cfg.PubSubTopic, cfg.PubSubSubscription, cfg.GoogleCredentials)
		if err != nil {
			log.Fatal("Failed to initialize Pub/Sub client:", err)
		}
		changeBus = notification.NewChangeBus(psClient, taskRepository, sseManager)
		go func() {
			if err := psClient.Receive(ctx, changeBus.HandleMessage); err != nil {
				log.Printf("[ChangeBus] Pub/Sub receive stopped: %v", err)
			}
		}()
	} else {
		log.Printf("[WARN] GOOGLE_PROJECT_ID not configured, change events stay in-process")
		loopback := &loopbackPublisher{}
		changeBus = notification.NewChangeBus(loopback, taskRepository, sseManager)
		loopback.bus = changeBus
	}

	// Initialize the reminder scheduler and its dispatch worker. Without
	// Firebase credentials jobs still queue up but nothing drains them.
	scheduler := notification.NewReminderScheduler(jobStore)
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			worker := notification.NewDispatchWorker(jobStore, fcmClient, fcmTokenRepo, cfg.WorkerPollInterval)
			go worker.Start(ctx)
		}
	} else {
		log.Printf("[WARN] No Firebase credentials configured, push notifications disabled")
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg)
	taskUsecaseInstance := taskUsecase.NewTaskUsecase(taskRepository, fcmTokenRepo, scheduler, changeBus)

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, taskUsecaseInstance, sseManager, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
