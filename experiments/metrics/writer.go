package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reversi/game"
)

type GameRecord struct {
	ID         int
	Generation int // Generation being handed out when the game started
	Worker     int
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

// GenerationRecord summarizes the games played while one generation was
// being handed out.
type GenerationRecord struct {
	Generation int
	Games      int
	Player0    int // Wins
	Player1    int // Wins
	Draws      int
	AvgMoves   float64
}

// Summarize groups game records by generation, in generation order.
func Summarize(games []GameRecord) []GenerationRecord {
	var out []GenerationRecord
	index := map[int]int{}
	for _, g := range games {
		i, ok := index[g.Generation]
		if !ok {
			i = len(out)
			index[g.Generation] = i
			out = append(out, GenerationRecord{Generation: g.Generation})
		}
		r := &out[i]
		r.Games++
		switch g.Winner {
		case game.Player0.String():
			r.Player0++
		case game.Player1.String():
			r.Player1++
		default:
			r.Draws++
		}
		r.AvgMoves += (float64(g.TotalMoves) - r.AvgMoves) / float64(r.Games)
	}
	return out
}

type Writer struct {
	baseDir string
}

// NewWriter creates a timestamped run directory under root.
func NewWriter(root string) (*Writer, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join(root, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "generation", "worker", "starting_player", "winner",
		"player0", "player1", "empty", "moves", "passes", "start_time", "end_time", "duration"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Generation),
			strconv.Itoa(record.Worker),
			record.StartingPlayer.String(),
			record.Winner,
			strconv.Itoa(record.Counts.Player0),
			strconv.Itoa(record.Counts.Player1),
			strconv.Itoa(record.Counts.Empty),
			strconv.Itoa(record.TotalMoves),
			strconv.Itoa(record.Passes),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
		})
	}
	return w.write("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "move", "duration"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			record.Player.String(),
			record.Move.String(),
			record.Duration.String(),
		})
	}
	return w.write("move_records.csv", header, rows)
}

func (w *Writer) WriteGenerationRecords(records []GenerationRecord) error {
	header := []string{"generation", "games", "player0_wins", "player1_wins", "draws", "avg_moves"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Generation),
			strconv.Itoa(record.Games),
			strconv.Itoa(record.Player0),
			strconv.Itoa(record.Player1),
			strconv.Itoa(record.Draws),
			strconv.FormatFloat(record.AvgMoves, 'f', 2, 64),
		})
	}
	return w.write("generation_records.csv", header, rows)
}

// GenomeRecord is one controller of the final population.
type GenomeRecord struct {
	Generation        int
	Identifier        int
	Fitness           float64
	NormalizedFitness float64
	Weights           []float64
}

const genomesFile = "genomes.csv"

var genomeHeader = []string{"generation", "identifier", "fitness", "normalized_fitness", "weights"}

// WriteGenomeRecords stores the weights of every genome, space separated in
// flat order.
func (w *Writer) WriteGenomeRecords(records []GenomeRecord) error {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		weights := make([]string, len(record.Weights))
		for i, v := range record.Weights {
			weights[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(record.Generation),
			strconv.Itoa(record.Identifier),
			strconv.FormatFloat(record.Fitness, 'g', -1, 64),
			strconv.FormatFloat(record.NormalizedFitness, 'g', -1, 64),
			strings.Join(weights, " "),
		})
	}
	return w.write(genomesFile, genomeHeader, rows)
}

// ReadGenomeRecords loads a file written by WriteGenomeRecords.
func ReadGenomeRecords(path string) ([]GenomeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(genomeHeader)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no header", path)
	}

	records := make([]GenomeRecord, 0, len(rows)-1)
	for line, row := range rows[1:] {
		record, err := parseGenomeRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseGenomeRow(row []string) (GenomeRecord, error) {
	var record GenomeRecord
	var err error
	if record.Generation, err = strconv.Atoi(row[0]); err != nil {
		return record, err
	}
	if record.Identifier, err = strconv.Atoi(row[1]); err != nil {
		return record, err
	}
	if record.Fitness, err = strconv.ParseFloat(row[2], 64); err != nil {
		return record, err
	}
	if record.NormalizedFitness, err = strconv.ParseFloat(row[3], 64); err != nil {
		return record, err
	}
	for _, field := range strings.Fields(row[4]) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return record, err
		}
		record.Weights = append(record.Weights, v)
	}
	return record, nil
}
