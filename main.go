package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/address-audit/app/config"
	"github.com/address-audit/app/controllers"
	"github.com/address-audit/app/services"
	"github.com/address-audit/internal/alias"
	"github.com/address-audit/internal/parser"
	"github.com/address-audit/internal/search"
	"github.com/address-audit/internal/store"
	"github.com/address-audit/routes"
)

func main() {
	// 1. Logger
	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting Address Audit Service")

	// 2. Configuration
	cfgPath := getEnv("CONFIG_PATH", "./data/config.default.json")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}

	// 3. MongoDB repository
	repo, err := store.NewMongo(context.Background(), cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			logger.Error("Error disconnecting MongoDB", zap.Error(err))
		}
	}()

	// 4. Alias maps
	dataDir := getEnv("DATA_DIR", "./data")
	canon := loadCanonicalizer(dataDir, logger)

	// 5. Optional Meilisearch POI index
	var poiIndex *search.POIIndex
	if cfg.MeiliHost != "" {
		poiIndex, err = search.NewPOIIndex(cfg.MeiliHost, cfg.MeiliAPIKey, logger)
		if err != nil {
			logger.Warn("Meilisearch unavailable, POI search disabled", zap.Error(err))
			poiIndex = nil
		}
	}

	// 6. Optional Redis for the parse cache
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unavailable, parse cache degrades to in-process only", zap.Error(err))
			rdb = nil
		}
	}
	parseCache, err := services.NewParseCacheService(rdb, logger)
	if err != nil {
		logger.Fatal("Failed to initialize parse cache", zap.Error(err))
	}

	// 7. LLM parser and arbitrator (degrade silently when unconfigured)
	llm := parser.NewOpenAIClient(logger)
	arbiter := parser.NewArbiter(llm)

	// 8. Services
	pipeline := services.NewPipelineService(cfg, repo, llm, canon, arbiter, parseCache, logger)
	seeder := services.NewSeedService(repo, poiIndex, logger)
	evaluator := services.NewEvaluateService(cfg, repo, logger)

	// 9. Controllers and router
	compareController := controllers.NewCompareController(pipeline, logger)
	adminController := controllers.NewAdminController(seeder, pipeline, evaluator, poiIndex, logger)

	router := gin.New()
	routes.SetupAllRoutes(router, compareController, adminController)

	// 10. Serve
	port := getEnv("APP_PORT", "8080")
	logger.Info("Address Audit Service starting", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// initLogger builds a structured logger for the current environment.
func initLogger() *zap.Logger {
	env := getEnv("APP_ENV", "development")

	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	logger, err := config.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	return logger
}

// loadCanonicalizer reads the alias maps from the data directory. Missing or
// malformed maps are fatal: resolution quality silently collapses without
// them.
func loadCanonicalizer(dataDir string, logger *zap.Logger) *alias.Canonicalizer {
	aoiMap, err := alias.LoadMap(filepath.Join(dataDir, "alias_aoi.json"))
	if err != nil {
		logger.Fatal("Failed to load AOI alias map", zap.Error(err))
	}
	roadMap, err := alias.LoadMap(filepath.Join(dataDir, "alias_road.json"))
	if err != nil {
		logger.Fatal("Failed to load road alias map", zap.Error(err))
	}
	return alias.NewCanonicalizer(aoiMap, roadMap)
}

// getEnv reads an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
