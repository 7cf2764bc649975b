// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/averyls/mingle/internal/auth"
	"github.com/averyls/mingle/internal/cache"
	"github.com/averyls/mingle/internal/database"
	"github.com/averyls/mingle/internal/friends"
	"github.com/averyls/mingle/internal/handlers"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init failed: %v", err)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx)
	if err != nil {
		logger.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("schema migration failed: %v", err)
	}

	// Redis is optional: without it recommendations are recomputed per call.
	var recCache friends.RecommendationCache
	if rdb, err := cache.ConnectRedis(); err != nil {
		logger.Warnf("running without recommendation cache: %v", err)
	} else {
		recCache = cache.NewRecommendations(rdb, cache.DefaultTTL, logger)
	}

	store := database.NewStore(pool)
	directory := database.NewDirectory(pool)

	srv := &handlers.Server{
		Logger:      logger,
		Accounts:    directory,
		Friends:     friends.NewService(store, directory, recCache),
		Recommender: friends.NewRecommender(store, directory, recCache, friends.DefaultRecommendationLimit),
		Profiles:    friends.NewProfiles(store, directory),
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
