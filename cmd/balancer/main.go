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
	"github.com/amalg/dci-bomberman/internal/balancer"
	"github.com/amalg/dci-bomberman/internal/config"
	"github.com/amalg/dci-bomberman/internal/discovery"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.BalancerPort, "HTTP port of the balancer API")
	memory := flag.Bool("memory", false, "Keep the server registry in memory instead of Redis")
	listen := flag.Bool("discover", true, "Register servers found by LAN discovery")
	flag.Parse()

	logger := config.NewLogger("BALANCER", config.ColorYellow, os.Stderr)

	var (
		store  balancer.Store
		locker balancer.Locker
	)
	if !*memory {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Printf("Redis unavailable, using the in-memory registry: %v", err)
			_ = rdb.Close()
		} else {
			defer rdb.Close()
			store = balancer.NewRedisStore(rdb)
			locker = balancer.NewRedsyncLocker(rdb)
			logger.Printf("Connected to Redis at %s", cfg.RedisAddr)
		}
	}
	if store == nil {
		store = balancer.NewMemoryStore()
		locker = &balancer.LocalLocker{}
	}

	b := balancer.New(store, locker, logger)

	if *listen {
		l := discovery.NewListener(0, config.NewLogger("DISCOVERY", config.ColorMagenta, os.Stderr))
		l.OnServer = func(info balancer.ServerInfo) {
			if err := b.Observe(context.Background(), info); err != nil {
				logger.Printf("Observe %s: %v", info.URL, err)
			}
		}
		l.OnExpire = func(url string) {
			if err := b.Disconnect(context.Background(), url); err != nil {
				logger.Printf("Expire %s: %v", url, err)
			}
		}
		if err := l.Start(); err != nil {
			logger.Printf("Discovery disabled: %v", err)
		} else {
			defer l.Stop()
		}
	}

	router := api.NewRouter(api.Config{
		Addr:        fmt.Sprintf(":%d", *port),
		Mode:        cfg.GinMode,
		Controllers: []api.Controller{balancer.NewController(b)},
	})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Println("Shutting down")
		_ = router.Close()
	}()

	logger.Printf("Listening on :%d", *port)
	if err := router.Run(); err != nil {
		logger.Fatalf("HTTP server failed: %v", err)
	}
}
