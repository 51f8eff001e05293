package agent

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"reversi/game"
)

// HumanInputAdapter reads moves as "row col" or "pass" lines. Illegal input
// is reported on out and asked again.
type HumanInputAdapter struct {
	cursorPlayer
	in  *bufio.Scanner
	out io.Writer
}

func NewHumanInputAdapter(side game.Player, in io.Reader, out io.Writer) *HumanInputAdapter {
	return &HumanInputAdapter{
		cursorPlayer: cursorPlayer{side: side},
		in:           bufio.NewScanner(in),
		out:          out,
	}
}

func (h *HumanInputAdapter) ChooseMove() (game.Move, error) {
	node, err := h.turnNode()
	if err != nil {
		return game.Move{}, err
	}
	hasMoves := node.HasMoves()

	for {
		fmt.Fprintf(h.out, "%v> ", h.side)
		if !h.in.Scan() {
			if err := h.in.Err(); err != nil {
				return game.Move{}, err
			}
			return game.Move{}, io.ErrUnexpectedEOF
		}
		line := strings.TrimSpace(h.in.Text())

		if strings.EqualFold(line, "pass") {
			if hasMoves {
				fmt.Fprintln(h.out, "you have a legal move, pass is not allowed")
				continue
			}
			return game.Pass, nil
		}

		var c game.Coord
		if _, err := fmt.Sscanf(line, "%d %d", &c.Row, &c.Col); err != nil {
			fmt.Fprintln(h.out, `expected "row col" or "pass"`)
			continue
		}
		if !c.InBounds() {
			fmt.Fprintf(h.out, "%d,%d is off the board\n", c.Row, c.Col)
			continue
		}
		if _, ok := node.Child(c); !ok {
			fmt.Fprintf(h.out, "%d,%d is not a legal move\n", c.Row, c.Col)
			continue
		}
		return game.Place(c), nil
	}
}

// ReportOutcome prints the final score.
func (h *HumanInputAdapter) ReportOutcome(counts game.Counts) error {
	_, err := fmt.Fprintf(h.out, "game over: %v %d, %v %d, empty %d\n",
		game.Player0, counts.Player0, game.Player1, counts.Player1, counts.Empty)
	return err
}
