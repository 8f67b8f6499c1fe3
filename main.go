package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"home-services-server/cache"
	"home-services-server/config"
	"home-services-server/database"
	"home-services-server/jobs"
	"home-services-server/media"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/payment"
	"home-services-server/routes"
	"home-services-server/services"
	"home-services-server/store"
	"home-services-server/store/memstore"
	"home-services-server/utils"
	ws "home-services-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer closeStore()

	if err := ensureAdmin(ctx, dataStore, cfg.Admin); err != nil {
		log.Fatalf("❌ Failed to bootstrap admin account: %v", err)
	}

	serviceCache := openCache(ctx, cfg.Cache)
	if closer, ok := serviceCache.(io.Closer); ok {
		defer closer.Close()
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifier := services.NewNotifier(hub, services.NewMailer(cfg.Mail))

	uploader, err := media.NewUploader(cfg.Cloudinary)
	if err != nil {
		log.Fatalf("❌ Failed to configure image uploads: %v", err)
	}

	var gateway payment.Gateway = payment.DisabledGateway{}
	if cfg.Payment.KeyID != "" && cfg.Payment.KeySecret != "" {
		gateway = payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret)
	} else {
		log.Println("⚠️ Razorpay keys not set, payments are disabled")
	}

	limiter := middleware.NewRateLimiter(clock.WallClock)
	go limiter.RunCleanup(ctx, 10*time.Minute)

	reminders := jobs.NewReminderJob(dataStore, notifier, clock.WallClock)
	if err := reminders.Start(cfg.Jobs.ReminderSchedule); err != nil {
		log.Fatalf("❌ Failed to start reminder job: %v", err)
	}

	router := routes.NewRouter(routes.Dependencies{
		Store:    dataStore,
		Tokens:   services.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour),
		Notifier: notifier,
		Cache:    serviceCache,
		Uploader: uploader,
		Gateway:  gateway,
		Hub:      hub,
		Limiter:  limiter,
		Config:   cfg,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Home services server starting on port %s (%s)", cfg.Server.Port, cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	reminders.Stop()
	notifier.Wait()
	log.Println("👋 Server stopped")
}

// openStore picks the persistence backend from STORE_DRIVER
func openStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		log.Println("⚠️ Using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	case "postgres":
		db, err := database.Open(cfg.Store, cfg.IsDevelopment())
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		log.Println("✅ Database connected and migrated")
		return db, func() {
			if err := db.Close(); err != nil {
				log.Printf("⚠️ Closing database: %v", err)
			}
		}, nil
	default:
		return nil, nil, errors.NotSupportedf("store driver %q", cfg.Store.Driver)
	}
}

// openCache connects to redis when configured, falling back to no caching
func openCache(ctx context.Context, cfg config.CacheConfig) cache.ServiceCache {
	if cfg.RedisAddr == "" {
		return cache.Noop{}
	}
	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.TTL)
	if err != nil {
		log.Printf("⚠️ Service cache disabled: %v", err)
		return cache.Noop{}
	}
	log.Printf("✅ Service cache connected to %s", cfg.RedisAddr)
	return redisCache
}

// ensureAdmin creates the configured admin account on first start
func ensureAdmin(ctx context.Context, accounts store.Accounts, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}
	_, err := accounts.AccountByEmail(ctx, models.NormalizeEmail(cfg.Email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, errors.NotFound) {
		return errors.Trace(err)
	}

	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return errors.Trace(err)
	}
	admin := &models.Account{
		Name:         "Administrator",
		Email:        models.NormalizeEmail(cfg.Email),
		PasswordHash: hash,
		Phone:        "-",
		Role:         models.RoleAdmin,
	}
	if err := accounts.CreateAccount(ctx, admin); err != nil {
		return errors.Annotate(err, "creating admin")
	}
	log.Printf("✅ Admin account %s created", admin.Email)
	return nil
}
