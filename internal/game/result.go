package game

import "time"

// Result summarises a finished game for stats and archiving.
type Result struct {
	GameID    string           `json:"gameId"`
	Winner    PlayerID         `json:"winner"` // empty on a draw
	Players   []PlayerID       `json:"players"`
	Kills     map[PlayerID]int `json:"kills"`
	StartedAt time.Time        `json:"startedAt"`
	EndedAt   time.Time        `json:"endedAt"`
}

// Result extracts the outcome of the game from a final snapshot.
func (s Snapshot) Result() Result {
	r := Result{
		GameID:    s.GameID,
		Winner:    s.Winner,
		Kills:     make(map[PlayerID]int),
		StartedAt: s.StartedAt,
		EndedAt:   s.Time,
	}
	for _, p := range s.PlayersInJoinOrder() {
		r.Players = append(r.Players, p.ID)
		if p.Kills > 0 {
			r.Kills[p.ID] = p.Kills
		}
	}
	return r
}
