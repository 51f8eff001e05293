package engine

import (
	"errors"

	"reversi/experiments/metrics"
	"reversi/game"
	"reversi/meta"
)

var (
	ErrTooManyMoves = errors.New("game exceeded the move limit")
	ErrIllegalMove  = errors.New("player chose an illegal move")
)

// Engine runs one game to completion.
type Engine interface {
	// Run plays until neither player can move and returns the final chip counts
	Run() (game.Counts, error)
	Metrics() (metrics.GameMetric, []metrics.MoveMetric)
}

type Option func(g *Game)

// WithMaxMoves bounds the plies of a game, passes included.
func WithMaxMoves(n int) Option {
	return func(g *Game) {
		if n > 0 {
			g.maxMoves = n
		}
	}
}

func WithCollector(c metrics.Collector) Option {
	return func(g *Game) {
		if c != nil {
			g.collector = c
		}
	}
}

// WithRenderer draws the board after every move.
func WithRenderer(r *Renderer) Option {
	return func(g *Game) {
		g.renderer = r
	}
}

func defaultMaxMoves() int {
	return meta.MAX_MOVES
}
