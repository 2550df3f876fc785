package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/amalg/dci-bomberman/internal/balancer"
	"github.com/amalg/dci-bomberman/internal/bot"
	"github.com/amalg/dci-bomberman/internal/config"
	"github.com/amalg/dci-bomberman/internal/network"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", "", "Game server address (default: ask the load balancer)")
	roomID := flag.String("room", "", "Room to join (default: any open room)")
	count := flag.Int("count", 1, "Number of bots to start")
	interval := flag.Duration("interval", bot.DefaultInterval, "Delay between two decisions")
	flag.Parse()

	logger := config.NewLogger("BOT", config.ColorCyan, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *addr == "" {
		lookup, cancel := context.WithTimeout(ctx, 5*time.Second)
		url, err := balancer.NewClient(cfg.BalancerURL(), logger).JoinGame(lookup)
		cancel()
		if err != nil {
			logger.Fatalf("No game server: %v", err)
		}
		*addr = url
	}

	var wg sync.WaitGroup
	for i := 0; i < *count; i++ {
		id := bot.NewID()
		client, err := network.NewClient(*addr, network.JoinMsg{PlayerID: id, IsPlaying: true, RoomID: *roomID})
		if err != nil {
			logger.Printf("%s could not join: %v", id, err)
			continue
		}
		logger.Printf("%s joined room %s", id, client.RoomID())

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer client.Close()
			runBot(ctx, client, bot.New(id, client.SendActions, bot.WithInterval(*interval)))
			logger.Printf("%s left", id)
		}()
	}
	wg.Wait()
}

// runBot plays until the game ends, the connection drops or ctx is done.
func runBot(ctx context.Context, client *network.Client, b *bot.Bot) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-client.GameOver():
				cancel()
				return
			case <-client.Done():
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	_ = b.Run(ctx)
}
