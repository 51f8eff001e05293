package game

// Two-player capture game on a fixed 8x8 board. Board is a value type: every
// operation that changes the position returns a new Board.

const Size = 8

const Cells = Size * Size

type Player int8

const (
	Player0 Player = 0
	Player1 Player = 1
)

func (p Player) Opponent() Player {
	return 1 - p
}

func (p Player) String() string {
	switch p {
	case Player0:
		return "player0"
	case Player1:
		return "player1"
	default:
		return "unknown"
	}
}

// Cell is either Empty or the Player that owns it.
type Cell int8

const Empty Cell = -1

func Owned(p Player) Cell {
	return Cell(p)
}

func (c Cell) Valid() bool {
	return c == Empty || c == Owned(Player0) || c == Owned(Player1)
}

func (c Cell) Owner() (Player, bool) {
	if c == Empty {
		return 0, false
	}
	return Player(c), true
}

// Coord addresses one cell, row-major.
type Coord struct {
	Row int
	Col int
}

func CoordAt(index int) Coord {
	if index < 0 || index >= Cells {
		panic("coordinate index out of bounds")
	}
	return Coord{Row: index / Size, Col: index % Size}
}

func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// Index packs the coordinate as row*8+col.
func (c Coord) Index() int {
	return c.Row*Size + c.Col
}

func (c Coord) add(d Coord) Coord {
	return Coord{Row: c.Row + d.Row, Col: c.Col + d.Col}
}
