package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/api"
	"github.com/recipe-studio/catalogue/internal/api/handlers"
	"github.com/recipe-studio/catalogue/internal/api/types"
	"github.com/recipe-studio/catalogue/internal/api/validators"
	"github.com/recipe-studio/catalogue/internal/repository"
	"github.com/recipe-studio/catalogue/internal/services"
	"github.com/recipe-studio/catalogue/internal/storage"
	"github.com/recipe-studio/catalogue/pkg/config"
	"github.com/recipe-studio/catalogue/pkg/database"
	"github.com/recipe-studio/catalogue/pkg/logger"

	_ "github.com/recipe-studio/catalogue/docs"
)

// @title           Recipe Catalogue API
// @version         1.0
// @description     Recipes, tags and ingredients per user.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting recipe catalogue",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{Verbose: cfg.IsDevelopment()})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Image placeholders are computed by the worker; the API only enqueues.
	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer queue.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)

	// Initialize services
	authSvc := services.NewAuthService(userRepo, jwtSecret, cfg.TokenTTL)
	recipeSvc := services.NewRecipeService(
		repository.NewTransactor(db),
		recipeRepo,
		services.NewReconciler(tagRepo, ingredientRepo),
	)
	imageSvc := services.NewImageService(recipeRepo, store, queue)

	// Initialize handlers
	v := validators.New()
	deps := api.Dependencies{
		HMACSecret:         jwtSecret,
		Users:              authSvc,
		HealthHandler:      handlers.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, db) }),
		AuthHandler:        handlers.NewAuthHandler(authSvc, v),
		RecipesHandler:     handlers.NewRecipesHandler(recipeSvc, imageSvc, v, cfg.MaxUploadBytes),
		TagsHandler:        handlers.NewLabelsHandler(services.NewLabelService(tagRepo), v, types.NewTagResponse),
		IngredientsHandler: handlers.NewLabelsHandler(services.NewLabelService(ingredientRepo), v, types.NewIngredientResponse),
		CORSOrigins:        cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	if local, ok := store.(*storage.LocalStore); ok {
		deps.MediaRoot = local.Root()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
