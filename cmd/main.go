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

	"github.com/didip/tollbooth/v7"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"freight-service/internal/admin"
	"freight-service/internal/ads"
	"freight-service/internal/bids"
	"freight-service/internal/bookings"
	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/httpx"
	"freight-service/internal/notifications"
	"freight-service/internal/profiles"
	"freight-service/internal/storage"
	"freight-service/internal/storage/memory"
	"freight-service/internal/storage/postgres"
	"freight-service/internal/tracking"
	"freight-service/internal/users"
	"freight-service/internal/vehicles"
	"freight-service/migrations"
	"freight-service/pkg/config"
	"freight-service/pkg/db"
	"freight-service/pkg/filestore"
	"freight-service/pkg/jwt"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logger"
	"freight-service/pkg/metrics"
	rredis "freight-service/pkg/redis"
	"freight-service/pkg/response"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. Config & logger ──
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.IsDevelopment())
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		fatal(log, "invalid configuration", err)
	}

	// ── 2. JWT secret ──
	if err := jwt.Init(cfg.JWTSecret, cfg.JWTTTL); err != nil {
		fatal(log, "jwt init", err)
	}

	// ── 3. Storage ──
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		fatal(log, "storage", err)
	}
	defer store.Close()

	// ── 4. Redis ──
	var tokens users.TokenRevoker
	if cfg.RedisAddr != "" {
		redisClient, err := rredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, log)
		if err != nil {
			fatal(log, "redis", err)
		}
		defer redisClient.Close()
		jwt.SetRevoker(redisClient)
		tokens = redisClient
	} else {
		log.Warning("REDIS_ADDR is empty, logout will not revoke tokens")
	}

	// ── 5. Kafka ──
	var bus events.Bus
	if cfg.KafkaEnabled {
		kafkaClient := kafka.NewClient(cfg.KafkaBrokers, log)
		defer kafkaClient.Close()
		if err := kafkaClient.EnsureTopics(ctx, kafka.Topics...); err != nil {
			fatal(log, "kafka topics", err)
		}
		bus = kafkaClient
	} else {
		log.Info("kafka disabled, events stay in process")
		bus = events.NewLocal()
	}

	// ── 6. Document store ──
	var files filestore.Store
	switch cfg.DocumentStore {
	case config.DocumentStoreGridFS:
		gfs, err := filestore.ConnectGridFS(ctx, cfg.MongoURI, cfg.MongoDB, log)
		if err != nil {
			fatal(log, "gridfs", err)
		}
		defer func() { _ = gfs.Close(context.Background()) }()
		files = gfs
	default:
		disk, err := filestore.NewDisk(cfg.DocumentDir)
		if err != nil {
			fatal(log, "document dir", err)
		}
		files = disk
	}

	// ── 7. Services ──
	wsHub := tracking.NewHub(log)

	profileSvc := profiles.NewService(store, files, bus, log)
	notificationSvc := notifications.NewService(store, log)
	userSvc := users.NewService(store, profileSvc, notificationSvc, tokens, log)
	vehicleSvc := vehicles.NewService(store, log)
	adSvc := ads.NewService(store, log)
	bidSvc := bids.NewService(store, bus, log)
	bookingSvc := bookings.NewService(store, bus, wsHub, log)
	adminSvc := admin.NewService(store, profileSvc, log)

	if cfg.StorageDriver == config.StorageDriverMemory {
		if err := vehicleSvc.EnsureCategories(ctx, vehicles.DefaultCategories); err != nil {
			fatal(log, "seed categories", err)
		}
	}

	// ── 8. Background consumers ──
	notifications.NewConsumer(notificationSvc, log).Start(ctx, bus)

	// ── 9. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(httpx.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)
	r.Use(jwt.OptionalAuth)

	lmt := tollbooth.NewLimiter(cfg.RateLimitPerMinute/60.0, nil)
	lmt.SetBurst(int(cfg.RateLimitPerMinute))
	lmt.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
	authLimit := func(next http.Handler) http.Handler { return tollbooth.LimitHandler(lmt, next) }

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": cfg.ServiceName})
	})
	r.Handle("/metrics", metrics.Handler())

	userHandler := users.NewHandler(userSvc, log)
	profileHandler := profiles.NewHandler(profileSvc, log)
	vehicleHandler := vehicles.NewHandler(vehicleSvc, log)
	bidHandler := bids.NewHandler(bidSvc, log)
	bookingHandler := bookings.NewHandler(bookingSvc, log)

	r.Mount("/auth", userHandler.AuthRoutes(authLimit))
	r.Mount("/users/me/verification", profileHandler.Routes())
	r.Mount("/users", userHandler.Routes())
	r.Mount("/drivers", profileHandler.RoleRoutes(domain.RoleDriver))
	r.Mount("/customers", profileHandler.RoleRoutes(domain.RoleCustomer))
	r.Mount("/vehicle-categories", vehicleHandler.CategoryRoutes())
	r.Mount("/vehicles", vehicleHandler.Routes())
	r.Mount("/ads", ads.NewHandler(adSvc, log).Routes(bidHandler.AdRoutes(bookingHandler.Accept)))
	r.Mount("/bids", bidHandler.Routes())
	r.Mount("/bookings", bookingHandler.Routes())
	r.Mount("/notifications", notifications.NewHandler(notificationSvc, log).Routes())
	r.Mount("/admin", admin.NewHandler(adminSvc, log).Routes())
	r.Mount("/ws", wsHub.Routes(bookingSvc.Authorize))

	// ── 10. Start server ──
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("freight-service listening", logger.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "http server", err)
		}
	}()

	// ── 11. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("http shutdown", logger.Error(err))
	}
	cancel() // stop consumers
}

func openStorage(ctx context.Context, cfg config.Config, log logger.ILogger) (storage.IStorage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warning("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if cfg.MigrationsEnabled {
		if err := database.RunMigrations(migrations.FS); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	return postgres.New(database.Pool, log), nil
}

func fatal(log logger.ILogger, msg string, err error) {
	log.Error(msg, logger.Error(err))
	_ = log.Sync()
	os.Exit(1)
}
