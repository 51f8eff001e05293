package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reversi/agent"
	"reversi/communication/client"
	"reversi/communication/server"
	"reversi/engine"
	"reversi/evolution"
	"reversi/experiments"
	"reversi/experiments/metrics"
	"reversi/game"
	"reversi/meta"
	"reversi/neural"
	"reversi/telemetry"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: reversi <command> [flags]

commands:
  train   evolve controllers through self-play
  play    play against the evolving population
  serve   receive telemetry over HTTP into SQLite
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(ctx, os.Args[2:])
	case "play":
		err = runPlay(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msgf("%s failed", os.Args[1])
	}
}

func setupLogging(verbose bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// openSink picks the telemetry destination: an HTTP endpoint, a local SQLite
// file, or nothing. The returned close function is never nil.
func openSink(ctx context.Context, endpoint, dbPath string) (telemetry.Sink, func(), error) {
	switch {
	case endpoint != "" && dbPath != "":
		return nil, nil, errors.New("-telemetry and -db are mutually exclusive")
	case endpoint != "":
		log.Info().Msgf("sending telemetry to %s", endpoint)
		sink := client.NewHTTPSink(endpoint)
		return sink, sink.Close, nil
	case dbPath != "":
		store := telemetry.NewStore(dbPath)
		if err := store.Init(ctx); err != nil {
			return nil, nil, err
		}
		log.Info().Msgf("writing telemetry to %s", dbPath)
		return telemetry.NewStoreSink(store), func() { _ = store.Close() }, nil
	default:
		return telemetry.NewNopSink(), func() {}, nil
	}
}

func runTrain(ctx context.Context, args []string) error {
	cfg := experiments.DefaultConfig()
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	fs.IntVar(&cfg.Games, "games", cfg.Games, "Number of games to play")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of games played in parallel")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "Random seed, 0 seeds from the clock")
	fs.IntVar(&cfg.MaxMoves, "max-moves", cfg.MaxMoves, "Abort a game after this many plies")
	fs.StringVar(&cfg.OutputDir, "out", "", "Directory for CSV records")
	fs.BoolVar(&cfg.RecordMoves, "moves", false, "Record every move in the CSV output")
	evolutionConfig := fs.String("evolution", "", `Population parameters, e.g. "pop=10,survivors=5,mutation=0.001,reproduction=0.5"`)
	endpoint := fs.String("telemetry", "", "URL of a telemetry log endpoint")
	dbPath := fs.String("db", "", "SQLite file to write telemetry to")
	verbose := fs.Bool("v", false, "Debug logging")
	_ = fs.Parse(args)
	setupLogging(*verbose)

	var err error
	if cfg.Evolution, err = experiments.ParseEvolutionConfig(*evolutionConfig); err != nil {
		return err
	}
	sink, closeSink, err := openSink(ctx, *endpoint, *dbPath)
	if err != nil {
		return err
	}
	defer closeSink()
	cfg.Sink = sink

	result, err := experiments.RunTraining(ctx, cfg)
	if result != nil {
		printSummary(os.Stdout, result)
	}
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("training interrupted")
		return nil
	}
	return err
}

func printSummary(w io.Writer, result *experiments.Result) {
	games := len(result.Games)
	rate := float64(games) / result.Duration.Seconds()
	fmt.Fprintf(w, "played %s games in %s (%s games/s), reached generation %s\n",
		humanize.Comma(int64(games)),
		result.Duration.Round(time.Millisecond),
		humanize.CommafWithDigits(rate, 1),
		humanize.Comma(int64(result.Generation)))

	best := -1
	for i, g := range result.Population {
		if best < 0 || g.Fitness > result.Population[best].Fitness {
			best = i
		}
	}
	if best >= 0 {
		g := result.Population[best]
		fmt.Fprintf(w, "fittest in current generation: %v with fitness %.3f\n", g.ID, g.Fitness)
	}
}

func runPlay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	side := fs.Int("side", 0, "Side played by the human, 0 or 1")
	evolutionConfig := fs.String("evolution", "", "Population parameters")
	endpoint := fs.String("telemetry", "", "URL of a telemetry log endpoint")
	dbPath := fs.String("db", "", "SQLite file to write telemetry to")
	genomesPath := fs.String("genomes", "", "genomes.csv written by train, plays a stored genome instead of the population")
	genomeID := fs.String("genome", "", `Genome to load from -genomes as "generation/identifier", defaults to the fittest survivor`)
	verbose := fs.Bool("v", false, "Debug logging")
	_ = fs.Parse(args)
	setupLogging(*verbose)

	if *side != 0 && *side != 1 {
		return fmt.Errorf("side must be 0 or 1, got %d", *side)
	}
	human := game.Player(*side)

	var opponent *agent.NeuralAgent
	var manager *evolution.Manager
	if *genomesPath != "" {
		network, err := loadGenome(*genomesPath, *genomeID)
		if err != nil {
			return err
		}
		opponent = agent.NewFixedNeuralAgent(human.Opponent(), network)
	} else {
		config, err := experiments.ParseEvolutionConfig(*evolutionConfig)
		if err != nil {
			return err
		}
		sink, closeSink, err := openSink(ctx, *endpoint, *dbPath)
		if err != nil {
			return err
		}
		defer closeSink()

		manager, err = evolution.NewManager(append(config.Options(), evolution.WithSink(sink))...)
		if err != nil {
			return err
		}
		opponent = agent.NewNeuralAgent(human.Opponent(), manager)
	}

	var players [2]agent.Player
	players[human] = agent.NewHumanInputAdapter(human, os.Stdin, os.Stdout)
	players[human.Opponent()] = opponent
	renderer := engine.NewRenderer(os.Stdout)

	first := game.Player0
	for ctx.Err() == nil {
		g := engine.NewGame(players, game.NewBoard(), first, engine.WithRenderer(renderer))
		counts, err := g.Run()
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if manager != nil {
			log.Info().Msgf("game over %d-%d, population at generation %d", counts.Player0, counts.Player1, manager.Generation())
		} else {
			log.Info().Msgf("game over %d-%d", counts.Player0, counts.Player1)
		}
		first = first.Opponent()
	}
	return nil
}

// loadGenome builds the network of one stored genome. Without an id the
// survivor with the highest normalized fitness is used.
func loadGenome(path, id string) (*neural.Network, error) {
	records, err := metrics.ReadGenomeRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s holds no genomes", path)
	}

	best := -1
	if id != "" {
		want, err := evolution.ParseGenomeID(id)
		if err != nil {
			return nil, err
		}
		for i, r := range records {
			if r.Generation == want.Generation && r.Identifier == want.Identifier {
				best = i
				break
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("genome %v not found in %s", want, path)
		}
	} else {
		best = 0
		for i, r := range records {
			if r.NormalizedFitness > records[best].NormalizedFitness {
				best = i
			}
		}
	}

	r := records[best]
	network, err := neural.FromWeights(meta.LAYERS, meta.RECURSIVE_BUFFER_SIZE, r.Weights)
	if err != nil {
		return nil, fmt.Errorf("genome %d/%d: %w", r.Generation, r.Identifier, err)
	}
	log.Info().Msgf("playing stored genome %d/%d", r.Generation, r.Identifier)
	return network, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	dbPath := fs.String("db", "telemetry.db", "SQLite file")
	verbose := fs.Bool("v", false, "Debug logging")
	_ = fs.Parse(args)
	setupLogging(*verbose)

	store := telemetry.NewStore(*dbPath)
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.NewServer(store).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("receiving telemetry on %s/log", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
