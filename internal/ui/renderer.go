package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/amalg/dci-bomberman/internal/game"
)

// Color palette
var (
	// Tile styles
	wallStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#3a3a3a")).
			Foreground(lipgloss.Color("#555555"))

	breakableStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B6914")).
			Foreground(lipgloss.Color("#A0772B"))

	emptyStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#1a1a2e"))

	bombStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#ff4444")).
			Bold(true)

	fireStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#ff6600")).
			Foreground(lipgloss.Color("#ffcc00")).
			Bold(true)

	upgradeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#44ffff")).
			Bold(true)

	// Player colors, by join order
	playerColors = []lipgloss.Color{
		lipgloss.Color("#00ff88"), // Green
		lipgloss.Color("#4488ff"), // Blue
		lipgloss.Color("#ff44ff"), // Magenta
		lipgloss.Color("#ffff44"), // Yellow
	}

	deadPlayerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Strikethrough(true)

	// HUD styles
	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff8844")).
			Bold(true)

	lobbyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#44aaff")).
			Bold(true)

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true).
			Blink(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func playerColor(p game.Player) lipgloss.Color {
	return playerColors[(max(p.JoinOrder, 1)-1)%len(playerColors)]
}

// RenderBoard converts a snapshot into a styled terminal string.
func RenderBoard(snap *game.Snapshot, myID string) string {
	if snap == nil || snap.Map == nil || snap.Map.Height() == 0 {
		return "Waiting for game state..."
	}

	// Every tile covered by a living player's footprint
	occupant := make(map[game.Position]game.Player)
	for _, p := range snap.PlayersInJoinOrder() {
		if !p.Alive {
			continue
		}
		for dy := 0; dy < p.Height; dy++ {
			for dx := 0; dx < p.Width; dx++ {
				occupant[p.Pos.Add(game.Position{X: dx, Y: dy})] = p
			}
		}
	}

	tiles := snap.Map.Tiles()
	rows := make([]string, 0, len(tiles))
	for y, row := range tiles {
		var cells []string
		for x, tile := range row {
			p, ok := occupant[game.Position{X: x, Y: y}]
			var pp *game.Player
			if ok {
				pp = &p
			}
			cells = append(cells, renderCell(tile, pp, myID))
		}
		rows = append(rows, strings.Join(cells, ""))
	}

	return strings.Join(rows, "\n")
}

// renderCell renders a single board cell with the appropriate style.
// Each cell is 2 characters wide for a square-ish appearance.
func renderCell(tile game.Tile, p *game.Player, myID string) string {
	// Priority: Player > Fire > Bomb > Upgrade > Tile
	if p != nil {
		color := playerColor(*p)
		style := lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(color).
			Bold(true)

		label := fmt.Sprintf("P%d", p.JoinOrder)
		if p.ID == myID {
			label = "██"
			style = style.Background(color)
		}
		return style.Render(label)
	}

	if tile.OnFire {
		return fireStyle.Render("░░")
	}

	if len(tile.Bombs) > 0 {
		return bombStyle.Render("()")
	}

	if tile.Collectible != nil {
		return upgradeStyle.Render(upgradeLabel(tile.Collectible.Kind))
	}

	switch tile.Terrain {
	case game.Wall:
		return wallStyle.Render("██")
	case game.Breakable:
		return breakableStyle.Render("▒▒")
	default:
		return emptyStyle.Render("  ")
	}
}

func upgradeLabel(kind game.UpgradeKind) string {
	switch kind {
	case game.PowerUp:
		return "+P"
	case game.BombUp:
		return "+B"
	case game.SpeedUp:
		return "+S"
	default:
		return "??"
	}
}

// nameWidth is the display width of the player column in the HUD.
const nameWidth = 14

// padName fits a player id into the HUD column by display width, so ids with
// wide runes keep the stats aligned.
func padName(id string) string {
	return runewidth.FillRight(runewidth.Truncate(id, nameWidth, "…"), nameWidth)
}

// RenderHUD renders the heads-up display showing player info and game status.
func RenderHUD(snap *game.Snapshot, myID string) string {
	if snap == nil {
		return ""
	}

	var parts []string

	parts = append(parts, titleStyle.Render("💣 BOMBERMAN"))
	parts = append(parts, "")

	// Game status
	switch {
	case !snap.HasStarted:
		parts = append(parts, lobbyStyle.Render(fmt.Sprintf("⏳ LOBBY %d/%d, waiting for players...",
			len(snap.Players), snap.MaxPlayerCount)))
		parts = append(parts, "   [Enter] start, [B] fill with bots")
	case snap.IsOver:
		if snap.Winner != "" {
			parts = append(parts, winnerStyle.Render(fmt.Sprintf("🏆 %s WINS!", snap.Winner)))
		} else {
			parts = append(parts, dimStyle.Render("💀 DRAW, nobody survived"))
		}
	case snap.Paused:
		parts = append(parts, lobbyStyle.Render("⏸  PAUSED, [R] to resume"))
	default:
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Render("🔥 GAME IN PROGRESS"))
	}
	parts = append(parts, "")

	parts = append(parts, dimStyle.Render("Players:"))
	for _, p := range snap.PlayersInJoinOrder() {
		nameStyle := lipgloss.NewStyle().Foreground(playerColor(p))

		status := "❤️ "
		if !p.Alive {
			status = "💀"
			nameStyle = deadPlayerStyle
		}

		marker := "  "
		if p.ID == myID {
			marker = "→ "
		}

		line := fmt.Sprintf("%s%s %s [💣×%d 🔥%d ☠%d]",
			marker,
			status,
			nameStyle.Render(padName(p.ID)),
			p.MaxBombs-len(p.ActiveBombs),
			p.BombPower,
			p.Kills,
		)
		if !p.Connected {
			line += dimStyle.Render(" (offline)")
		}
		parts = append(parts, line)
	}

	parts = append(parts, "")
	parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).
		Render("WASD/Arrows: Move | Space: Bomb | P/R: Pause/Resume | Q: Quit"))

	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}
