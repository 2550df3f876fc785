package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"github.com/amalg/dci-bomberman/internal/api"
	"github.com/amalg/dci-bomberman/internal/archive"
	"github.com/amalg/dci-bomberman/internal/balancer"
	"github.com/amalg/dci-bomberman/internal/config"
	"github.com/amalg/dci-bomberman/internal/discovery"
	"github.com/amalg/dci-bomberman/internal/game"
	"github.com/amalg/dci-bomberman/internal/network"
	"github.com/amalg/dci-bomberman/internal/room"
	"github.com/amalg/dci-bomberman/internal/stats"
	"github.com/amalg/dci-bomberman/internal/token"
	"github.com/amalg/dci-bomberman/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.ServerPort, "TCP port for game clients")
	wsPort := flag.Int("ws-port", cfg.WSPort, "HTTP port for WebSocket clients and /info")
	maxPlayers := flag.Int("max-players", cfg.MaxPlayers, "Player slots per room")
	mapFile := flag.String("map", "", "Map descriptor JSON (default: built-in 15x15 arena)")
	logFile := flag.String("log", "", "Log file path (default: stderr, discarded with -play)")
	noBalancer := flag.Bool("no-balancer", false, "Do not register with the load balancer")
	noDiscovery := flag.Bool("no-discovery", false, "Do not advertise on the LAN")
	play := flag.Bool("play", false, "Join your own server and play in this terminal")
	name := flag.String("name", "host", "Your player id with -play")
	flag.Parse()

	cfg.ServerPort = *port

	// Redirect log output before any server code runs. With -play, stderr
	// output would corrupt Bubbletea's terminal rendering.
	var logOut io.Writer = os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	} else if *play {
		logOut = io.Discard
	}
	log.SetOutput(logOut)
	logger := config.NewLogger("SERVER", config.ColorGreen, logOut)

	gameCfg := game.DefaultConfig()
	gameCfg.MaxPlayers = *maxPlayers
	gameCfg.TickRate = cfg.TickRate

	mapSource := game.DefaultDescriptor
	if *mapFile != "" {
		desc, err := game.LoadDescriptor(*mapFile)
		if err != nil {
			logger.Fatalf("Failed to load map: %v", err)
		}
		mapSource = func() *game.MapDescriptor { return desc }
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks, closeSinks := resultSinks(ctx, cfg, logger)
	defer closeSinks()

	rooms := room.NewManager(room.Options{
		Game:   gameCfg,
		Map:    mapSource,
		Sinks:  sinks,
		Logger: config.NewLogger("ROOM", config.ColorCyan, logOut),
	})
	defer rooms.Close()

	admin := token.NewJwtService(adminSecret(cfg, logger), "bomberman")
	if operatorToken, err := admin.AdminToken("operator", 24*time.Hour); err == nil {
		logger.Printf("Admin token (valid 24h): %s", operatorToken)
	}

	server := network.NewServer(fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort), rooms, admin, logger)
	if err := server.Start(); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	url := cfg.ServerURL()
	info := func() balancer.ServerInfo { return rooms.Info(url) }

	router := api.NewRouter(api.Config{
		Addr:        fmt.Sprintf(":%d", *wsPort),
		Mode:        cfg.GinMode,
		Controllers: []api.Controller{network.NewWSHandler(rooms, url, admin, logger)},
	})
	go func() {
		if err := router.Run(); err != nil {
			logger.Printf("HTTP server stopped: %v", err)
		}
	}()
	defer router.Close()

	if !*noBalancer {
		client := balancer.NewClient(cfg.BalancerURL(), config.NewLogger("BALANCER", config.ColorYellow, logOut))
		go client.Report(ctx, time.Second, info)
	}

	if !*noDiscovery {
		b := discovery.NewBroadcaster(0, info, config.NewLogger("DISCOVERY", config.ColorMagenta, logOut))
		if err := b.Start(); err != nil {
			logger.Printf("Discovery disabled: %v", err)
		} else {
			defer b.Stop()
		}
	}

	if *play {
		if err := playLocal(server.Addr(), *name, admin); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Println("Shutting down")
}

// adminSecret returns the configured signing key, or a random one that
// lives as long as the process.
func adminSecret(cfg config.Config, logger *log.Logger) string {
	if cfg.AdminSecret != "" {
		return cfg.AdminSecret
	}
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		logger.Fatalf("Failed to generate admin secret: %v", err)
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// resultSinks wires the stats recorder and the match archive. Missing
// backends are logged and skipped; the archive falls back to memory.
func resultSinks(ctx context.Context, cfg config.Config, logger *log.Logger) ([]room.ResultSink, func()) {
	var sinks []room.ResultSink
	var closers []func()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Printf("Redis unavailable, stats disabled: %v", err)
		_ = rdb.Close()
	} else {
		sinks = append(sinks, stats.NewRecorder(rdb, logger))
		closers = append(closers, func() { _ = rdb.Close() })
	}

	mongoClient, err := archive.Connect(pingCtx, cfg.MongoURI)
	if err != nil {
		logger.Printf("MongoDB unavailable, keeping matches in memory: %v", err)
		sinks = append(sinks, archive.NewArchiver(archive.NewMemoryRepo()))
	} else {
		repo := archive.NewMongoRepo(mongoClient, cfg.MongoDB, "matches")
		sinks = append(sinks, archive.NewArchiver(repo))
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(ctx)
		})
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

// playLocal joins the server over loopback as its admin and runs the
// console.
func playLocal(addr, name string, admin *token.JwtService) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	adminToken, err := admin.AdminToken(name, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("issue host token: %w", err)
	}
	client, err := network.NewClient("127.0.0.1:"+port, network.JoinMsg{
		PlayerID:   name,
		IsPlaying:  true,
		AdminToken: adminToken,
	})
	if err != nil {
		return fmt.Errorf("connect as host: %w", err)
	}
	defer client.Close()

	p := tea.NewProgram(ui.NewModel(client), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
