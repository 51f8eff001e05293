package engine

import (
	"bytes"
	"testing"

	"reversi/agent"
	"reversi/evolution"
	"reversi/experiments/metrics"
	"reversi/game"
	"reversi/searcher"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// firstMovePlayer plays the lowest-index legal move. It can be told to pass
// regardless.
type firstMovePlayer struct {
	side       game.Player
	cursor     *searcher.Cursor
	alwaysPass bool
	outcomes   []game.Counts
}

func (p *firstMovePlayer) Side() game.Player { return p.side }

func (p *firstMovePlayer) Attach(root *searcher.Node) { p.cursor = searcher.NewCursor(root) }

func (p *firstMovePlayer) ChooseMove() (game.Move, error) {
	node := p.cursor.Node()
	node.Expand()
	children := node.Children()
	if p.alwaysPass || len(children) == 0 {
		return game.Pass, nil
	}
	return game.Place(children[0].Coord), nil
}

func (p *firstMovePlayer) Notify(m game.Move, nextTurn game.Player) error {
	return p.cursor.Play(m, nextTurn)
}

func (p *firstMovePlayer) ReportOutcome(counts game.Counts) error {
	p.outcomes = append(p.outcomes, counts)
	return nil
}

func newFirstMovePlayers() (*firstMovePlayer, *firstMovePlayer) {
	return &firstMovePlayer{side: game.Player0}, &firstMovePlayer{side: game.Player1}
}

func TestRunFullGame(t *testing.T) {
	p0, p1 := newFirstMovePlayers()
	collector := metrics.NewCollector()
	g := NewGame([2]agent.Player{p0, p1}, game.NewBoard(), game.Player0, WithCollector(collector))

	counts, err := g.Run()
	require.NoError(t, err)
	require.True(t, game.IsOver(g.Board()), "Game should only stop when neither player can move")
	require.Equal(t, game.Cells, counts.Occupied()+counts.Empty)
	require.Equal(t, []game.Counts{counts}, p0.outcomes, "Outcome is reported exactly once")
	require.Equal(t, []game.Counts{counts}, p1.outcomes)

	gm, moves := g.Metrics()
	require.Equal(t, game.Player0, gm.StartingPlayer)
	require.Equal(t, len(moves), gm.TotalMoves)
	require.Equal(t, counts.Occupied()-4, gm.TotalMoves-gm.Passes, "Every placement adds one chip")
}

func TestRunPass(t *testing.T) {
	board := game.NewEmptyBoard().
		With(game.Coord{Row: 0, Col: 0}, game.Owned(game.Player1)).
		With(game.Coord{Row: 0, Col: 1}, game.Owned(game.Player0))
	require.False(t, game.HasLegalMove(board, game.Player0))
	require.True(t, game.HasLegalMove(board, game.Player1))

	p0, p1 := newFirstMovePlayers()
	collector := metrics.NewCollector()
	g := NewGame([2]agent.Player{p0, p1}, board, game.Player0, WithCollector(collector))

	counts, err := g.Run()
	require.NoError(t, err)
	require.Equal(t, game.Counts{Player0: 0, Player1: 3, Empty: 61}, counts)

	gm, moves := g.Metrics()
	require.Equal(t, 1, gm.Passes)
	require.Equal(t, game.Pass, moves[0].Move)
	require.Equal(t, game.Player1.String(), gm.Winner)
}

func TestRunIllegalPass(t *testing.T) {
	p0, p1 := newFirstMovePlayers()
	p0.alwaysPass = true
	g := NewGame([2]agent.Player{p0, p1}, game.NewBoard(), game.Player0)

	_, err := g.Run()
	require.ErrorIs(t, err, ErrIllegalMove)
	require.Empty(t, p0.outcomes, "Aborted games report no outcome")
}

func TestRunMoveLimit(t *testing.T) {
	p0, p1 := newFirstMovePlayers()
	g := NewGame([2]agent.Player{p0, p1}, game.NewBoard(), game.Player1, WithMaxMoves(3))

	_, err := g.Run()
	require.ErrorIs(t, err, ErrTooManyMoves)
}

func TestNewGamePanics(t *testing.T) {
	p0, p1 := newFirstMovePlayers()
	require.Panics(t, func() {
		NewGame([2]agent.Player{p1, p0}, game.NewBoard(), game.Player0)
	}, "Players must be indexed by side")
	require.Panics(t, func() {
		NewGame([2]agent.Player{p0, nil}, game.NewBoard(), game.Player0)
	})
}

func TestNeuralSelfPlay(t *testing.T) {
	manager, err := evolution.NewManager(
		evolution.WithTopology([]int{agent.InputSize, 6, 1}, 4),
		evolution.WithRand(rand.New(rand.NewSource(17))),
	)
	require.NoError(t, err)
	p0 := agent.NewNeuralAgent(game.Player0, manager)
	p1 := agent.NewNeuralAgent(game.Player1, manager)

	first := game.Player0
	for i := 0; i < 40; i++ {
		g := NewGame([2]agent.Player{p0, p1}, game.NewBoard(), first)
		counts, err := g.Run()
		require.NoError(t, err, "game %d", i)
		require.Equal(t, game.Cells, counts.Occupied()+counts.Empty)
		require.NotEqual(t, p0.Controller().ID(), p1.Controller().ID(), "Agents never share a controller")
		first = first.Opponent()
	}
	require.Greater(t, manager.Generation(), 0, "Population should have turned over")
}

func TestRenderer(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, termenv.WithProfile(termenv.Ascii))
	move := game.Place(game.Coord{Row: 2, Col: 3})
	r.Render(game.NewBoard(), &move, game.Player1)

	printed := out.String()
	require.Contains(t, printed, "X 2  O 2  to move: O")
	require.Contains(t, printed, "3  . . . X O . . .")

	var nilRenderer *Renderer
	require.NotPanics(t, func() { nilRenderer.Render(game.NewBoard(), nil, game.Player0) })
}
