package searcher

import (
	"errors"
	"fmt"

	"reversi/game"
)

var (
	ErrNotExpanded = errors.New("node has not been expanded")
	ErrNoSuchMove  = errors.New("move is not a child of this node")
)

// Node is one position of the game tree. Children are materialized lazily by
// Expand and are never regenerated; once expanded a node is read-only, so
// several cursors may point into the same tree.
type Node struct {
	board    game.Board
	turn     game.Player
	empty    []game.Coord
	children [game.Cells]*Node
	expanded bool
}

// Child pairs a successor node with the placement that produced it.
type Child struct {
	Coord game.Coord
	Node  *Node
}

func NewRoot(board game.Board, turn game.Player) *Node {
	return &Node{
		board: board,
		turn:  turn,
		empty: board.EmptyCells(),
	}
}

func (n *Node) Board() game.Board {
	return n.board
}

// Turn is the player to move from this position.
func (n *Node) Turn() game.Player {
	return n.turn
}

func (n *Node) Expanded() bool {
	return n.expanded
}

func (n *Node) EmptyCells() []game.Coord {
	return append([]game.Coord(nil), n.empty...)
}

// Expand generates one child per empty cell that captures at least one chip
// for the player to move. Calling it again is a no-op. A node whose player
// has no legal move is still marked expanded; callers detect that through
// HasMoves and treat it as a pass.
func (n *Node) Expand() {
	if n.expanded {
		return
	}
	for i, c := range n.empty {
		if len(game.CapturedBy(n.board, c, n.turn)) == 0 {
			continue
		}
		rest := make([]game.Coord, 0, len(n.empty)-1)
		rest = append(rest, n.empty[:i]...)
		rest = append(rest, n.empty[i+1:]...)
		n.children[c.Index()] = &Node{
			board: game.ApplyMove(n.board, c, n.turn),
			turn:  n.turn.Opponent(),
			empty: rest,
		}
	}
	n.expanded = true
}

// Children lists the expanded successors ordered by coordinate index.
func (n *Node) Children() []Child {
	var children []Child
	for i, child := range n.children {
		if child != nil {
			children = append(children, Child{Coord: game.CoordAt(i), Node: child})
		}
	}
	return children
}

func (n *Node) Child(c game.Coord) (*Node, bool) {
	if !c.InBounds() {
		return nil, false
	}
	child := n.children[c.Index()]
	return child, child != nil
}

// HasMoves expands the node and reports whether any placement exists.
func (n *Node) HasMoves() bool {
	n.Expand()
	for _, child := range n.children {
		if child != nil {
			return true
		}
	}
	return false
}

// Advance returns the child reached by playing c. The caller drops its
// reference to n, which releases the siblings once no cursor holds them.
func Advance(n *Node, c game.Coord) (*Node, error) {
	if !n.expanded {
		return nil, ErrNotExpanded
	}
	child, ok := n.Child(c)
	if !ok {
		return nil, fmt.Errorf("advance to %v: %w", c, ErrNoSuchMove)
	}
	return child, nil
}

// ResetAfterPass builds a fresh unexpanded node for the same position with
// the turn handed to newTurn.
func ResetAfterPass(n *Node, newTurn game.Player) *Node {
	return &Node{
		board: n.board,
		turn:  newTurn,
		empty: n.EmptyCells(),
	}
}
