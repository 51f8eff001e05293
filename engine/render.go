package engine

import (
	"fmt"
	"io"
	"strings"

	"reversi/game"

	"github.com/muesli/termenv"
)

// Renderer draws boards to a terminal. A nil Renderer draws nothing.
type Renderer struct {
	out *termenv.Output
}

// NewRenderer detects the colour profile of w. Options such as
// termenv.WithProfile override the detection.
func NewRenderer(w io.Writer, opts ...termenv.OutputOption) *Renderer {
	return &Renderer{out: termenv.NewOutput(w, opts...)}
}

func (r *Renderer) chip(p game.Player) string {
	switch p {
	case game.Player0:
		return r.out.String("X").Foreground(termenv.ANSIBrightRed).Bold().String()
	default:
		return r.out.String("O").Foreground(termenv.ANSIBrightBlue).Bold().String()
	}
}

// Render draws board with the last move highlighted and the player to move.
func (r *Renderer) Render(board game.Board, last *game.Move, turn game.Player) {
	if r == nil {
		return
	}
	var b strings.Builder
	b.WriteString("\n  ")
	for col := 0; col < game.Size; col++ {
		fmt.Fprintf(&b, " %d", col)
	}
	b.WriteString("\n")

	for row := 0; row < game.Size; row++ {
		fmt.Fprintf(&b, "%d ", row)
		for col := 0; col < game.Size; col++ {
			c := game.Coord{Row: row, Col: col}
			cell := "."
			if owner, ok := board.At(c).Owner(); ok {
				cell = r.chip(owner)
			}
			if last != nil && !last.Pass && last.Coord == c {
				cell = r.out.String(cell).Underline().String()
			}
			b.WriteString(" " + cell)
		}
		b.WriteString("\n")
	}

	counts := board.Count()
	if last != nil && last.Pass {
		fmt.Fprintf(&b, "%v passed\n", turn.Opponent())
	}
	fmt.Fprintf(&b, "%s %d  %s %d  to move: %s\n",
		r.chip(game.Player0), counts.Player0, r.chip(game.Player1), counts.Player1, r.chip(turn))
	fmt.Fprint(r.out, b.String())
}
