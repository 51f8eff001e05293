package game

import "fmt"

// Move is either a chip placement or a pass.
type Move struct {
	Coord Coord
	Pass  bool
}

var Pass = Move{Pass: true}

func Place(c Coord) Move {
	return Move{Coord: c}
}

func (m Move) String() string {
	if m.Pass {
		return "pass"
	}
	return fmt.Sprintf("%d,%d", m.Coord.Row, m.Coord.Col)
}
