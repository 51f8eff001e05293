package searcher

import "reversi/game"

// Cursor tracks one player's position in a shared game tree.
type Cursor struct {
	node *Node
}

func NewCursor(root *Node) *Cursor {
	return &Cursor{node: root}
}

func (c *Cursor) Node() *Node {
	return c.node
}

// Play moves the cursor along m. A pass swaps the turn on a fresh node.
func (c *Cursor) Play(m game.Move, nextTurn game.Player) error {
	if m.Pass {
		c.node = ResetAfterPass(c.node, nextTurn)
		return nil
	}
	c.node.Expand()
	child, err := Advance(c.node, m.Coord)
	if err != nil {
		return err
	}
	c.node = child
	return nil
}
