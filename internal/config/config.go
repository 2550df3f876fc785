package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process configuration shared by every binary.
type Config struct {
	RedisAddr       string // Redis address for stats and the balancer registry
	MongoURI        string // MongoDB connection string for the match archive
	MongoDB         string // MongoDB database name
	ServerHost      string // Host the game server advertises
	ServerPort      int    // TCP port of the game server
	WSPort          int    // HTTP/WebSocket port of the game server
	LeaderboardPort int    // HTTP port of the leaderboard API
	BalancerHost    string // Hostname or IP address of the load balancer
	BalancerPort    int    // HTTP port of the load balancer
	GinMode         string // Mode for the Gin framework (e.g., release, debug, test)
	TickRate        int    // Simulation ticks per second
	MaxPlayers      int    // Player slots per room
	AdminSecret     string // Key signing admin tokens; random per process when empty
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[CONFIG] .env file not found or could not be loaded: %v", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvAsInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := Config{
		RedisAddr:       getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		MongoURI:        getEnvWithDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnvWithDefault("MONGO_DB", "bomberman"),
		ServerHost:      getEnvWithDefault("SERVER_HOST", "localhost"),
		ServerPort:      intVar("SERVER_PORT", 9999),
		WSPort:          intVar("WS_PORT", 8000),
		LeaderboardPort: intVar("LEADERBOARD_PORT", 8001),
		BalancerHost:    getEnvWithDefault("BALANCER_HOST", "localhost"),
		BalancerPort:    intVar("BALANCER_PORT", 8080),
		GinMode:         getEnvWithDefault("GIN_MODE", "release"),
		TickRate:        intVar("TICK_RATE", 30),
		MaxPlayers:      intVar("MAX_PLAYERS", 4),
		AdminSecret:     getEnvWithDefault("ADMIN_SECRET", ""),
	}
	if len(errs) > 0 {
		return Config{}, errs[0]
	}
	return cfg, nil
}

// BalancerURL is the base URL of the load balancer API.
func (c Config) BalancerURL() string {
	return fmt.Sprintf("http://%s:%d", c.BalancerHost, c.BalancerPort)
}

// ServerURL is the address clients use to reach this game server.
func (c Config) ServerURL() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// getEnvAsInt retrieves an integer environment variable, or def when unset.
func getEnvAsInt(key string, def int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return def, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return value, nil
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// NewLogger returns a logger tagged with a coloured component prefix.
func NewLogger(component, color string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.New(w, fmt.Sprintf("%s[%s]%s ", color, component, ColorReset), log.LstdFlags)
}
