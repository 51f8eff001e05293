package agent

import (
	"errors"

	"reversi/evolution"
	"reversi/game"
	"reversi/searcher"
)

var (
	ErrNotYourTurn  = errors.New("not this player's turn")
	ErrNotAttached  = errors.New("player is not attached to a game tree")
	ErrNoController = errors.New("agent holds no controller")
)

// Player is one side of a game. The harness attaches every player to the
// same root, asks the player to move on its turn and notifies all players of
// every move, passes included.
type Player interface {
	Side() game.Player
	Attach(root *searcher.Node)
	ChooseMove() (game.Move, error)
	Notify(m game.Move, nextTurn game.Player) error
	ReportOutcome(counts game.Counts) error
}

// Renewer is implemented by players whose state must be refreshed between
// games.
type Renewer interface {
	Renew() (bool, error)
}

// ControllerSource hands out controllers and collects their fitness.
// *evolution.Manager is the usual implementation.
type ControllerSource interface {
	RequestController() (*evolution.Controller, error)
	ReportFitness(id evolution.GenomeID, delta float64) error
	Generation() int
}

// cursorPlayer holds the tree tracking shared by every Player variant.
type cursorPlayer struct {
	side   game.Player
	cursor *searcher.Cursor
}

func (p *cursorPlayer) Side() game.Player {
	return p.side
}

func (p *cursorPlayer) Attach(root *searcher.Node) {
	p.cursor = searcher.NewCursor(root)
}

func (p *cursorPlayer) Notify(m game.Move, nextTurn game.Player) error {
	if p.cursor == nil {
		return ErrNotAttached
	}
	return p.cursor.Play(m, nextTurn)
}

// turnNode returns the current node if it is this player's turn.
func (p *cursorPlayer) turnNode() (*searcher.Node, error) {
	if p.cursor == nil {
		return nil, ErrNotAttached
	}
	node := p.cursor.Node()
	if node.Turn() != p.side {
		return nil, ErrNotYourTurn
	}
	return node, nil
}
