package game

// Counts tallies chips per player and the remaining empty cells.
type Counts struct {
	Player0 int
	Player1 int
	Empty   int
}

func (c Counts) Of(p Player) int {
	if p == Player0 {
		return c.Player0
	}
	return c.Player1
}

func (c Counts) Occupied() int {
	return c.Player0 + c.Player1
}

// Winner reports the player holding more chips, or false on a draw.
func (c Counts) Winner() (Player, bool) {
	switch {
	case c.Player0 > c.Player1:
		return Player0, true
	case c.Player1 > c.Player0:
		return Player1, true
	default:
		return 0, false
	}
}
