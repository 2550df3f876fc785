package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amalg/dci-bomberman/internal/balancer"
	"github.com/amalg/dci-bomberman/internal/config"
	"github.com/amalg/dci-bomberman/internal/network"
	"github.com/amalg/dci-bomberman/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", "", "Server address (e.g., 192.168.1.5:9999); default: ask the load balancer")
	name := flag.String("name", "", "Your player id (default: assigned by the server)")
	roomID := flag.String("room", "", "Room to join (default: any open room)")
	watch := flag.Bool("watch", false, "Spectate instead of playing")
	adminToken := flag.String("admin-token", "", "Token printed by the server; enables start, pause, resume and bots")
	flag.Parse()

	if *addr == "" {
		fmt.Printf("Asking the load balancer at %s for a server...\n", cfg.BalancerURL())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		url, err := balancer.NewClient(cfg.BalancerURL(), nil).JoinGame(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "No game server available: %v\n", err)
			fmt.Fprintln(os.Stderr, "Usage: console [--addr <host:port>] [--name <id>] [--room <id>] [--watch]")
			os.Exit(1)
		}
		*addr = url
	}

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := network.NewClient(*addr, network.JoinMsg{
		PlayerID:   *name,
		IsPlaying:  !*watch,
		RoomID:     *roomID,
		AdminToken: *adminToken,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Printf("Connected! Player ID: %s, room %s\n", client.PlayerID(), client.RoomID())
	fmt.Println("Starting TUI...")
	time.Sleep(500 * time.Millisecond)

	// Start the TUI
	model := ui.NewModel(client)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
