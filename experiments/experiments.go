package experiments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reversi/agent"
	"reversi/engine"
	"reversi/evolution"
	"reversi/experiments/metrics"
	"reversi/game"
	"reversi/meta"
	"reversi/telemetry"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

// Config describes one training run.
type Config struct {
	Games       int // Total games to play
	Workers     int // Parallel games; 1 or less plays sequentially
	Evolution   EvolutionConfig
	Layers      []int
	BufferSize  int
	MaxMoves    int
	Seed        uint64 // 0 seeds from the clock
	Sink        telemetry.Sink
	RecordMoves bool
	OutputDir   string // CSV records are written here when set
}

func DefaultConfig() Config {
	return Config{
		Games:      1000,
		Workers:    1,
		Evolution:  DefaultEvolutionConfig(),
		Layers:     meta.LAYERS,
		BufferSize: meta.RECURSIVE_BUFFER_SIZE,
		MaxMoves:   meta.MAX_MOVES,
	}
}

type Result struct {
	Generation  int // Generation being handed out when the run stopped
	Games       []metrics.GameRecord
	Moves       []metrics.MoveRecord
	Generations []metrics.GenerationRecord
	Population  []evolution.Genome
	Duration    time.Duration
}

// trainer collects records from every worker.
type trainer struct {
	cfg Config

	mu     sync.Mutex
	games  []metrics.GameRecord
	moves  []metrics.MoveRecord
	played int
}

// reserve claims the next game slot, or reports that the run is complete.
func (t *trainer) reserve() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.played >= t.cfg.Games {
		return false
	}
	t.played++
	return true
}

func (t *trainer) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.played--
}

func (t *trainer) remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Games - t.played
}

func (t *trainer) record(worker, generation int, gm metrics.GameMetric, moves []metrics.MoveMetric) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.games) + 1
	t.games = append(t.games, metrics.GameRecord{ID: id, Generation: generation, Worker: worker, GameMetric: gm})
	if t.cfg.RecordMoves {
		for _, mm := range moves {
			t.moves = append(t.moves, metrics.MoveRecord{Game: id, MoveMetric: mm})
		}
	}
	if id%100 == 0 {
		log.Info().Msgf("completed game %d of %d (generation %d)", id, t.cfg.Games, generation)
	}
}

// pair is the two agents of one worker. They alternate the first move.
type pair struct {
	players [2]agent.Player
	first   game.Player
}

func newPair(source agent.ControllerSource) *pair {
	return &pair{players: [2]agent.Player{
		agent.NewNeuralAgent(game.Player0, source),
		agent.NewNeuralAgent(game.Player1, source),
	}}
}

func (t *trainer) playGame(p *pair, worker int, generation func() int) error {
	g := engine.NewGame(p.players, game.NewBoard(), p.first,
		engine.WithMaxMoves(t.cfg.MaxMoves),
		engine.WithCollector(metrics.NewCollector()),
	)
	if _, err := g.Run(); err != nil {
		return err
	}
	gm, moves := g.Metrics()
	t.record(worker, generation(), gm, moves)
	p.first = p.first.Opponent()
	return nil
}

// RunTraining plays cfg.Games self-play games, evolving the population as
// generations are exhausted. A cancelled ctx stops the run early; the games
// played so far are still returned and written.
func RunTraining(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Games <= 0 {
		return nil, fmt.Errorf("games must be positive, got %d", cfg.Games)
	}
	if cfg.Workers > 1 && 2*cfg.Workers > cfg.Evolution.PopulationSize {
		return nil, fmt.Errorf("%d workers need %d controllers, population has %d",
			cfg.Workers, 2*cfg.Workers, cfg.Evolution.PopulationSize)
	}

	if len(cfg.Layers) < 2 || cfg.Layers[0] != agent.InputSize || cfg.Layers[len(cfg.Layers)-1] != 1 {
		return nil, fmt.Errorf("layers %v must take %d inputs and produce one score", cfg.Layers, agent.InputSize)
	}

	options := append(cfg.Evolution.Options(), evolution.WithTopology(cfg.Layers, cfg.BufferSize))
	if cfg.Sink != nil {
		options = append(options, evolution.WithSink(cfg.Sink))
	}
	if cfg.Seed != 0 {
		options = append(options, evolution.WithRand(rand.New(rand.NewSource(cfg.Seed))))
	}
	manager, err := evolution.NewManager(options...)
	if err != nil {
		return nil, err
	}

	t := &trainer{cfg: cfg}
	start := time.Now()
	log.Info().Msgf("starting training: %d games, %d workers", cfg.Games, max(cfg.Workers, 1))

	if cfg.Workers > 1 {
		err = t.runParallel(ctx, manager)
	} else {
		err = t.runSequential(ctx, manager)
	}

	result := &Result{
		Generation:  manager.Generation(),
		Games:       t.games,
		Moves:       t.moves,
		Generations: metrics.Summarize(t.games),
		Population:  manager.Population(),
		Duration:    time.Since(start),
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return result, err
	}
	log.Info().Msgf("completed training after %d games in generation %d", len(result.Games), result.Generation)

	if cfg.OutputDir != "" {
		if werr := writeResult(cfg.OutputDir, result); werr != nil {
			return result, werr
		}
	}
	return result, err
}

// runSequential plays every game against the manager directly; generations
// turn over inside RequestController.
func (t *trainer) runSequential(ctx context.Context, manager *evolution.Manager) error {
	p := newPair(manager)
	for t.reserve() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.playGame(p, 0, manager.Generation); err != nil {
			return err
		}
	}
	return nil
}

// runParallel plays rounds of games. Within a round every worker plays until
// the generation is exhausted; the generation is turned over between rounds
// while no game is running.
func (t *trainer) runParallel(ctx context.Context, manager *evolution.Manager) error {
	source := NewSharedSource(manager)
	pairs := make([]*pair, t.cfg.Workers)
	for i := range pairs {
		pairs[i] = newPair(source)
	}

	for round := 0; t.remaining() > 0; round++ {
		g, gctx := errgroup.WithContext(ctx)
		for w, p := range pairs {
			w, p := w, p
			g.Go(func() error {
				return t.worker(gctx, w, p, source)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.remaining() == 0 {
			break
		}
		log.Debug().Msgf("round %d finished", round)
		if err := source.NextGeneration(); err != nil {
			return err
		}
	}
	return nil
}

func (t *trainer) worker(ctx context.Context, w int, p *pair, source *SharedSource) error {
	for t.reserve() {
		if err := ctx.Err(); err != nil {
			t.release()
			return err
		}
		err := t.playGame(p, w, source.Generation)
		if errors.Is(err, ErrPassExhausted) {
			t.release()
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeResult(dir string, result *Result) error {
	writer, err := metrics.NewWriter(dir)
	if err != nil {
		return err
	}
	if err := writer.WriteGameRecords(result.Games); err != nil {
		return err
	}
	log.Info().Msg("stored game records")
	if len(result.Moves) > 0 {
		if err := writer.WriteMoveRecords(result.Moves); err != nil {
			return err
		}
		log.Info().Msg("stored move records")
	}
	if err := writer.WriteGenerationRecords(result.Generations); err != nil {
		return err
	}
	genomes := make([]metrics.GenomeRecord, len(result.Population))
	for i, g := range result.Population {
		genomes[i] = metrics.GenomeRecord{
			Generation:        g.ID.Generation,
			Identifier:        g.ID.Identifier,
			Fitness:           g.Fitness,
			NormalizedFitness: g.NormalizedFitness,
			Weights:           g.Weights,
		}
	}
	if err := writer.WriteGenomeRecords(genomes); err != nil {
		return err
	}
	log.Info().Msgf("stored generation records in %s", writer.Dir())
	return nil
}
