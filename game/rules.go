package game

import "fmt"

var directions = [8]Coord{
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	{0, 1}, {0, -1}, {1, 0}, {-1, 0},
}

// CapturedBy returns the opposing chips that would flip if player placed a
// chip on cell. An occupied cell captures nothing.
func CapturedBy(b Board, cell Coord, player Player) []Coord {
	if b.At(cell) != Empty {
		return nil
	}
	var captured []Coord
	for _, d := range directions {
		captured = append(captured, capturedLine(b, cell, d, player)...)
	}
	return captured
}

// capturedLine walks from cell towards d. The run of opposing chips only
// counts when it is non-empty and closed by one of player's chips.
func capturedLine(b Board, cell, d Coord, player Player) []Coord {
	own := Owned(player)
	var run []Coord
	for c := cell.add(d); c.InBounds(); c = c.add(d) {
		switch b[c.Index()] {
		case Empty:
			return nil
		case own:
			return run
		default:
			run = append(run, c)
		}
	}
	return nil
}

func IsLegal(b Board, cell Coord, player Player) bool {
	return len(CapturedBy(b, cell, player)) > 0
}

func HasLegalMove(b Board, player Player) bool {
	for i, cell := range b {
		if cell == Empty && IsLegal(b, CoordAt(i), player) {
			return true
		}
	}
	return false
}

// IsOver reports whether neither player can place a chip.
func IsOver(b Board) bool {
	return !HasLegalMove(b, Player0) && !HasLegalMove(b, Player1)
}

// ApplyMove places player's chip on cell and flips every captured chip.
// cell must be empty and capture at least one chip.
func ApplyMove(b Board, cell Coord, player Player) Board {
	if b.At(cell) != Empty {
		panic(fmt.Sprintf("cannot place on occupied cell %v", cell))
	}
	captured := CapturedBy(b, cell, player)
	if len(captured) == 0 {
		panic(fmt.Sprintf("%v captures nothing on %v", player, cell))
	}
	next := b
	own := Owned(player)
	for _, c := range captured {
		next[c.Index()] = own
	}
	next[cell.Index()] = own
	return next
}
