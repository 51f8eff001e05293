package metrics

import (
	"time"

	"reversi/game"
)

type MoveMetric struct {
	Step     int
	Player   game.Player
	Move     game.Move
	Duration time.Duration
}

type GameMetric struct {
	StartingPlayer game.Player
	Winner         string // Player name, or "draw"
	Counts         game.Counts
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
	Passes         int
}

// Collector records one game at a time. Start resets it.
type Collector interface {
	Start(first game.Player)
	AddMove(player game.Player, m game.Move, elapsed time.Duration)
	End(counts game.Counts)
	Complete() (GameMetric, []MoveMetric)
}

type collector struct {
	game  GameMetric
	moves []MoveMetric
}

func NewCollector() Collector {
	return &collector{}
}

func (c *collector) Start(first game.Player) {
	c.game = GameMetric{StartingPlayer: first, StartTime: time.Now()}
	c.moves = nil
}

func (c *collector) AddMove(player game.Player, m game.Move, elapsed time.Duration) {
	c.game.TotalMoves++
	if m.Pass {
		c.game.Passes++
	}
	c.moves = append(c.moves, MoveMetric{
		Step:     c.game.TotalMoves,
		Player:   player,
		Move:     m,
		Duration: elapsed,
	})
}

func (c *collector) End(counts game.Counts) {
	c.game.Counts = counts
	c.game.EndTime = time.Now()
	c.game.Duration = c.game.EndTime.Sub(c.game.StartTime)
	c.game.Winner = "draw"
	if winner, ok := counts.Winner(); ok {
		c.game.Winner = winner.String()
	}
}

func (c *collector) Complete() (GameMetric, []MoveMetric) {
	return c.game, append([]MoveMetric(nil), c.moves...)
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (c *dummyCollector) Start(first game.Player)                                        {}
func (c *dummyCollector) AddMove(player game.Player, m game.Move, elapsed time.Duration) {}
func (c *dummyCollector) End(counts game.Counts)                                         {}
func (c *dummyCollector) Complete() (GameMetric, []MoveMetric)                           { return GameMetric{}, nil }
