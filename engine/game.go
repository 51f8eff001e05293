package engine

import (
	"errors"
	"fmt"
	"time"

	"reversi/agent"
	"reversi/experiments/metrics"
	"reversi/game"
	"reversi/searcher"

	"github.com/rs/zerolog/log"
)

var _ Engine = (*Game)(nil)

// Game drives two players through one game on a shared tree.
type Game struct {
	players   [2]agent.Player
	board     game.Board
	turn      game.Player
	maxMoves  int
	collector metrics.Collector
	renderer  *Renderer
}

// NewGame sets up a game from board with firstTurn to move. players must be
// indexed by the side they play.
func NewGame(players [2]agent.Player, board game.Board, firstTurn game.Player, options ...Option) *Game {
	for i, p := range players {
		if p == nil {
			panic("missing player")
		}
		if p.Side() != game.Player(i) {
			panic(fmt.Sprintf("player at index %d plays %v", i, p.Side()))
		}
	}

	g := &Game{ // Default values
		players:   players,
		board:     board,
		turn:      firstTurn,
		maxMoves:  defaultMaxMoves(),
		collector: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Board is the current position.
func (g *Game) Board() game.Board {
	return g.board
}

func (g *Game) Metrics() (metrics.GameMetric, []metrics.MoveMetric) {
	return g.collector.Complete()
}

// renew refreshes every player that needs it until none does. A renewal can
// turn the population over, which in turn makes the other player stale.
func (g *Game) renew() error {
	for {
		renewed := false
		for _, p := range g.players {
			r, ok := p.(agent.Renewer)
			if !ok {
				continue
			}
			did, err := r.Renew()
			if err != nil {
				return err
			}
			renewed = renewed || did
		}
		if !renewed {
			return nil
		}
	}
}

// Run executes the entire game loop until neither player can move.
func (g *Game) Run() (game.Counts, error) {
	if err := g.renew(); err != nil {
		return game.Counts{}, err
	}

	root := searcher.NewRoot(g.board, g.turn)
	for _, p := range g.players {
		p.Attach(root)
	}
	g.collector.Start(g.turn)
	g.renderer.Render(g.board, nil, g.turn)

	log.Debug().Msgf("%v is starting", g.turn)

	for plies := 0; !game.IsOver(g.board); plies++ {
		if plies >= g.maxMoves {
			return g.board.Count(), fmt.Errorf("%w: %d plies", ErrTooManyMoves, plies)
		}

		start := time.Now()
		move, err := g.players[g.turn].ChooseMove()
		if err != nil {
			return g.board.Count(), fmt.Errorf("%v choosing move: %w", g.turn, err)
		}
		if err := g.play(move); err != nil {
			return g.board.Count(), err
		}
		g.collector.AddMove(g.turn, move, time.Since(start))

		next := g.turn.Opponent()
		for _, p := range g.players {
			if err := p.Notify(move, next); err != nil {
				return g.board.Count(), fmt.Errorf("notify %v of %v: %w", p.Side(), move, err)
			}
		}
		g.renderer.Render(g.board, &move, next)
		g.turn = next
	}

	counts := g.board.Count()
	var errs []error
	for _, p := range g.players {
		if err := p.ReportOutcome(counts); err != nil {
			errs = append(errs, fmt.Errorf("report outcome to %v: %w", p.Side(), err))
		}
	}
	g.collector.End(counts)

	log.Debug().Msgf("game over: %d-%d, %d empty", counts.Player0, counts.Player1, counts.Empty)
	return counts, errors.Join(errs...)
}

func (g *Game) play(m game.Move) error {
	if m.Pass {
		if game.HasLegalMove(g.board, g.turn) {
			return fmt.Errorf("%w: %v passed with a move available", ErrIllegalMove, g.turn)
		}
		return nil
	}
	if !m.Coord.InBounds() || !game.IsLegal(g.board, m.Coord, g.turn) {
		return fmt.Errorf("%w: %v played %v", ErrIllegalMove, g.turn, m)
	}
	g.board = game.ApplyMove(g.board, m.Coord, g.turn)
	return nil
}
