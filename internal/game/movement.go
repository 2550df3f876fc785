package game

// Direction displacements, in the order movement intent is evaluated.
var (
	DirUp    = Position{X: 0, Y: -1}
	DirDown  = Position{X: 0, Y: 1}
	DirLeft  = Position{X: -1, Y: 0}
	DirRight = Position{X: 1, Y: 0}
)

// Directions lists the four cardinal displacements.
var Directions = []Position{DirUp, DirDown, DirLeft, DirRight}

// Step converts the movement flags into a single-axis displacement of one
// tile. First match wins: up, down, left, right.
func (a Actions) Step() (Position, bool) {
	switch {
	case a.MoveUp:
		return DirUp, true
	case a.MoveDown:
		return DirDown, true
	case a.MoveLeft:
		return DirLeft, true
	case a.MoveRight:
		return DirRight, true
	}
	return Position{}, false
}

// AttemptMove moves the player to desired when all four corners of its
// footprint land on in-bound Walkable tiles. Otherwise the player is left
// untouched and false is returned.
//
// Bombs do not block movement; only terrain does.
func AttemptMove(m *Map, p *Player, desired Position) bool {
	w, h := max(p.Width, 1), max(p.Height, 1)
	corners := [4]Position{
		{X: desired.X, Y: desired.Y},                 // top-left
		{X: desired.X + w - 1, Y: desired.Y},         // top-right
		{X: desired.X, Y: desired.Y + h - 1},         // bottom-left
		{X: desired.X + w - 1, Y: desired.Y + h - 1}, // bottom-right
	}

	for _, c := range corners {
		tile := m.At(c)
		if tile == nil || tile.Terrain != Walkable {
			return false
		}
	}

	p.Pos = desired
	return true
}
