package balancer

// GameInfo describes one room of a game server.
type GameInfo struct {
	ID      string   `json:"id"`
	Players []string `json:"players"`
	Viewers int      `json:"viewers"`
}

// ServerInfo is what a game server reports about itself.
type ServerInfo struct {
	URL         string     `json:"url" binding:"required"`
	PlayerCount int        `json:"playerCount"`
	GameCount   int        `json:"gameCount"`
	ViewerCount int        `json:"viewerCount"`
	Games       []GameInfo `json:"games"`
}

// less orders servers by load: fewest games, then fewest players, then URL.
func less(a, b ServerInfo) bool {
	if a.GameCount != b.GameCount {
		return a.GameCount < b.GameCount
	}
	if a.PlayerCount != b.PlayerCount {
		return a.PlayerCount < b.PlayerCount
	}
	return a.URL < b.URL
}
