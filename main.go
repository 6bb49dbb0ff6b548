package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"topper-backend/config"
	"topper-backend/database"
	"topper-backend/handlers"
	"topper-backend/middleware"
	"topper-backend/services"
	"topper-backend/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db := database.Connect()

	// Connect to Redis (optional, won't crash if unavailable)
	cache := services.NewBundleCache(database.ConnectRedis(), cfg.BundleCacheTTL)

	// External collaborators
	blobs, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to set up media storage:", err)
	}
	pusher, err := services.NewFirebasePusher(ctx, cfg.FirebaseCredPath)
	if err != nil {
		log.Println("⚠️  Push notifications disabled:", err)
		pusher = services.LogPusher{}
	}
	notifier := services.NewSendGridNotifier(cfg)

	h := &handlers.Handler{
		Organisers:    services.NewOrganiserService(db, cache),
		Senders:       services.NewSenderService(db, cache),
		Stories:       services.NewStoryService(db, cache),
		Invitations:   services.NewInvitationService(db, notifier, cache),
		Contributions: services.NewContributionService(db, blobs, pusher, cache),
		Reveal:        services.NewRevealService(db, cache),
		InvitationTTL: cfg.InvitationTTL,
	}

	// Setup router
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	handlers.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("🚀 %s server starting on %s", cfg.AppName, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down gracefully, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	if database.Redis != nil {
		database.Redis.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Server exiting")
}
