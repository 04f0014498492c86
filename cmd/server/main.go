package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/bolt-backend/internal/catalog"
	"github.com/AnshRaj112/bolt-backend/internal/config"
	"github.com/AnshRaj112/bolt-backend/internal/database"
	"github.com/AnshRaj112/bolt-backend/internal/handlers"
	"github.com/AnshRaj112/bolt-backend/internal/ledger"
	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/middleware"
	"github.com/AnshRaj112/bolt-backend/internal/routes"
	"github.com/AnshRaj112/bolt-backend/internal/services"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logg.Fatal("failed to load catalog", "path", cfg.CatalogPath, "error", err)
	}
	logg.Info("✅ catalog loaded", "games", len(cat.Games()), "items", len(cat.Items()), "tasks", len(cat.Tasks()))

	// Account store
	var accounts store.AccountStore
	switch cfg.Store {
	case config.StoreMemory:
		logg.Warn("⚠️  using in-memory store; accounts are lost on restart")
		accounts = store.NewMemoryStore()
	default:
		logg.Info("Connecting to MongoDB...", "uri", database.MaskURI(cfg.MongoURI))
		if err := database.Connect(cfg.MongoURI); err != nil {
			logg.Fatal("failed to connect to MongoDB", "error", err)
		}
		defer database.Disconnect()

		ms := store.NewMongoStore(database.DB)
		if err := ms.EnsureIndexes(ctx); err != nil {
			logg.Warn("⚠️  failed to ensure MongoDB indexes", "error", err)
		} else {
			logg.Info("✅ MongoDB indexes ensured")
		}
		accounts = ms
	}

	// Redis is optional: without it leaderboard ranks come from the store and
	// events stay in process.
	if cfg.RedisURI != "" {
		logg.Info("Connecting to Redis...")
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			logg.Fatal("failed to connect to Redis", "error", err)
		}
		defer database.DisconnectRedis()
	} else {
		logg.Warn("⚠️  REDIS_URI not set; running without Redis")
	}
	rdb := database.RedisClient

	board := services.NewLeaderboard(rdb, accounts, logg)
	events := services.NewEventHub(rdb, logg)
	events.Start(ctx)
	progression := services.NewProgressionService(accounts, ledger.New(cat), board, events, logg)
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, rdb, logg)
	auth := services.NewAuthService(accounts, tokens, progression, logg)

	if rdb != nil {
		sched, err := services.StartLeaderboardSync(ctx, board, cfg.LeaderboardSync, logg)
		if err != nil {
			logg.Warn("⚠️  leaderboard sync not scheduled", "error", err)
		} else {
			defer sched.Shutdown()
		}
	}

	// Cloudinary is optional; avatar uploads return 503 without it.
	var avatars services.AvatarUploader
	if cfg.CloudinaryEnabled() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logg.Warn("⚠️  failed to initialize Cloudinary; avatar uploads disabled", "error", err)
		} else {
			avatars = cld
			logg.Info("✅ Cloudinary service initialized")
		}
	} else {
		logg.Warn("Cloudinary credentials not found. Avatar uploads will not be available")
	}

	h := handlers.New(handlers.Deps{
		Auth:           auth,
		Progression:    progression,
		Store:          accounts,
		Catalog:        cat,
		Leaderboard:    board,
		Events:         events,
		Avatars:        avatars,
		SecureCookie:   cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            logg,
	})

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logg))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		logg.Info("✅ production security enabled", "allowedHost", cfg.AllowedHost)
	} else {
		r.Use(middleware.NewRedisRateLimiter(rdb, logg).Handler)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","message":"Bolt server is running!"}`))
	})

	routes.SetupRoutes(r, h, middleware.NewAuthenticator(tokens, accounts, logg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info("🚀 Bolt backend running", "port", cfg.Port, "env", cfg.Environment, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logg.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logg.Error("server stopped with error", "error", err)
	}
}
