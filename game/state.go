package game

import (
	"fmt"
	"strings"
)

// Board holds the owner of every cell indexed by Coord.Index.
type Board [Cells]Cell

// NewEmptyBoard returns a board with no chips on it.
func NewEmptyBoard() Board {
	var b Board
	for i := range b {
		b[i] = Empty
	}
	return b
}

// NewBoard returns the standard starting position: two chips per player on
// the centre diagonals.
func NewBoard() Board {
	b := NewEmptyBoard()
	b[Coord{3, 3}.Index()] = Owned(Player0)
	b[Coord{4, 4}.Index()] = Owned(Player0)
	b[Coord{3, 4}.Index()] = Owned(Player1)
	b[Coord{4, 3}.Index()] = Owned(Player1)
	return b
}

// ParseBoard builds a Board from an external grid. parse is called once per
// cell and must map each value to Empty or an owned cell; anything else
// panics.
func ParseBoard[T any](cells [Size][Size]T, parse func(T) Cell) Board {
	var b Board
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			cell := parse(cells[row][col])
			if !cell.Valid() {
				panic(fmt.Sprintf("invalid cell value %d at %v", cell, Coord{row, col}))
			}
			b[Coord{row, col}.Index()] = cell
		}
	}
	return b
}

func (b Board) At(c Coord) Cell {
	if !c.InBounds() {
		panic(fmt.Sprintf("coordinate %v out of bounds", c))
	}
	return b[c.Index()]
}

// With returns a copy of the board with a single cell replaced.
func (b Board) With(c Coord, cell Cell) Board {
	if !c.InBounds() {
		panic(fmt.Sprintf("coordinate %v out of bounds", c))
	}
	b[c.Index()] = cell
	return b
}

// EmptyCells lists empty coordinates in index order.
func (b Board) EmptyCells() []Coord {
	empty := make([]Coord, 0, Cells)
	for i, cell := range b {
		if cell == Empty {
			empty = append(empty, CoordAt(i))
		}
	}
	return empty
}

func (b Board) Count() Counts {
	var counts Counts
	for _, cell := range b {
		switch cell {
		case Empty:
			counts.Empty++
		case Owned(Player0):
			counts.Player0++
		default:
			counts.Player1++
		}
	}
	return counts
}

func (b Board) String() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			switch b[Coord{row, col}.Index()] {
			case Empty:
				sb.WriteByte('.')
			case Owned(Player0):
				sb.WriteByte('0')
			default:
				sb.WriteByte('1')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
