package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amalg/dci-bomberman/internal/api"
	"github.com/amalg/dci-bomberman/internal/archive"
	"github.com/amalg/dci-bomberman/internal/config"
	"github.com/amalg/dci-bomberman/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.LeaderboardPort, "HTTP port of the leaderboard API")
	flag.Parse()

	logger := config.NewLogger("LEADERBOARD", config.ColorBlue, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	board := stats.NewLeaderboard(logger)
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = board.Load(loadCtx, rdb)
	cancel()
	if err != nil {
		logger.Fatalf("Failed to load statistics: %v", err)
	}
	go func() {
		if err := board.Listen(ctx, rdb); err != nil && ctx.Err() == nil {
			logger.Printf("Stopped following updates: %v", err)
		}
	}()

	controllers := []api.Controller{stats.NewController(board)}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	mongoClient, err := archive.Connect(connectCtx, cfg.MongoURI)
	cancel()
	if err != nil {
		logger.Printf("Match history disabled: %v", err)
	} else {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		repo := archive.NewMongoRepo(mongoClient, cfg.MongoDB, "matches")
		controllers = append(controllers, archive.NewController(repo))
	}

	router := api.NewRouter(api.Config{
		Addr:        fmt.Sprintf(":%d", *port),
		BaseURL:     "/api/v1",
		Mode:        cfg.GinMode,
		Controllers: controllers,
	})
	go func() {
		<-ctx.Done()
		logger.Println("Shutting down")
		_ = router.Close()
	}()

	logger.Printf("Listening on :%d", *port)
	if err := router.Run(); err != nil {
		logger.Fatalf("HTTP server failed: %v", err)
	}
}
