package agent

import (
	"fmt"

	"reversi/evolution"
	"reversi/game"
	"reversi/neural"

	"github.com/rs/zerolog/log"
)

// InputSize is the number of cells seen by a controller: the whole board
// except the four centre cells, which are never empty.
const InputSize = game.Cells - 4

// Encode converts a board to controller inputs from player's point of view:
// 0 for own chips, -1 for empty cells and 1 for the opponent's chips.
func Encode(b game.Board, player game.Player) []float64 {
	inputs := make([]float64, 0, InputSize)
	for i := 0; i < game.Cells; i++ {
		c := game.CoordAt(i)
		if isCentre(c) {
			continue
		}
		owner, ok := b.At(c).Owner()
		switch {
		case !ok:
			inputs = append(inputs, -1)
		case owner == player:
			inputs = append(inputs, 0)
		default:
			inputs = append(inputs, 1)
		}
	}
	return inputs
}

func isCentre(c game.Coord) bool {
	return (c.Row == 3 || c.Row == 4) && (c.Col == 3 || c.Col == 4)
}

// Fitness scores a finished game for player: the share of the board not
// owned by the opponent.
func Fitness(counts game.Counts, player game.Player) float64 {
	own, opp := counts.Of(player), counts.Of(player.Opponent())
	return float64(own+counts.Empty) / float64(own+opp+counts.Empty)
}

// NeuralAgent plays by scoring every reachable position with its controller
// and picking the best one. It keeps its controller while it wins; after a
// loss or a draw the controller is retired and Renew takes a new one.
//
// A new agent holds no controller until its first Renew. A fixed agent plays
// one network for its whole life and never talks to a population.
type NeuralAgent struct {
	cursorPlayer
	source     ControllerSource
	controller *evolution.Controller
	fixed      *neural.Network
	checkedOut int
	retired    bool
}

func NewNeuralAgent(side game.Player, source ControllerSource) *NeuralAgent {
	return &NeuralAgent{cursorPlayer: cursorPlayer{side: side}, source: source}
}

// NewFixedNeuralAgent plays network without a population: it is never
// renewed and reports no fitness.
func NewFixedNeuralAgent(side game.Player, network *neural.Network) *NeuralAgent {
	if network == nil {
		panic("fixed agent needs a network")
	}
	return &NeuralAgent{cursorPlayer: cursorPlayer{side: side}, fixed: network}
}

func (a *NeuralAgent) Controller() *evolution.Controller {
	return a.controller
}

func (a *NeuralAgent) request() error {
	c, err := a.source.RequestController()
	if err != nil {
		return fmt.Errorf("%v requesting controller: %w", a.side, err)
	}
	a.controller = c
	a.checkedOut = a.source.Generation()
	a.retired = false
	return nil
}

// Stale reports whether the agent needs a new controller: it has none, it
// lost its last game, or the controller was checked out of an earlier
// generation than the one the source is handing out now.
func (a *NeuralAgent) Stale() bool {
	if a.fixed != nil {
		return false
	}
	return a.controller == nil || a.retired || a.checkedOut != a.source.Generation()
}

// Renew replaces a stale controller. It reports whether a new one was taken.
func (a *NeuralAgent) Renew() (bool, error) {
	if !a.Stale() {
		return false, nil
	}
	if a.controller != nil {
		log.Debug().Msgf("%v renewing controller %v from generation %d", a.side, a.controller.ID(), a.checkedOut)
	}
	if err := a.request(); err != nil {
		return false, err
	}
	return true, nil
}

func (a *NeuralAgent) network() *neural.Network {
	if a.fixed != nil {
		return a.fixed
	}
	if a.controller != nil {
		return a.controller.Network
	}
	return nil
}

func (a *NeuralAgent) ChooseMove() (game.Move, error) {
	node, err := a.turnNode()
	if err != nil {
		return game.Move{}, err
	}
	network := a.network()
	if network == nil {
		return game.Move{}, ErrNoController
	}
	node.Expand()

	var best game.Move
	bestScore, found := 0.0, false
	for _, child := range node.Children() {
		out, err := network.Evaluate(Encode(child.Node.Board(), a.side))
		if err != nil {
			return game.Move{}, err
		}
		if !found || out[0] > bestScore {
			best, bestScore, found = game.Place(child.Coord), out[0], true
		}
	}
	if !found {
		return game.Pass, nil
	}
	return best, nil
}

// ReportOutcome adds the game's fitness to the controller. The controller is
// retired on a loss or a draw; the replacement is only requested by Renew so
// that every player of a game reports before the generation can turn over.
func (a *NeuralAgent) ReportOutcome(counts game.Counts) error {
	if a.fixed != nil {
		return nil
	}
	if a.controller == nil {
		return ErrNoController
	}
	if err := a.source.ReportFitness(a.controller.ID(), Fitness(counts, a.side)); err != nil {
		return err
	}
	a.retired = counts.Of(a.side) <= counts.Of(a.side.Opponent())
	return nil
}
