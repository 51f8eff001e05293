package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Individual is the persisted lineage of one genome.
type Individual struct {
	GenomeRef
	ParentA  *GenomeRef
	ParentB  *GenomeRef
	KilledIn *int
}

// FitnessRecord is the raw fitness an individual reached in a generation.
type FitnessRecord struct {
	Individual GenomeRef
	Generation int
	Fitness    float64
}

// Store persists telemetry events in SQLite.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// One connection keeps in-memory databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

// Reset drops all recorded history.
func (s *Store) Reset(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM individuals`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM fitness`)
		return err
	})
}

func (s *Store) SaveBirths(ctx context.Context, generation int, born []Birth) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO individuals (
				generation, identifier,
				parent_a_generation, parent_a, parent_b_generation, parent_b
			)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(generation, identifier) DO UPDATE SET
				parent_a_generation = excluded.parent_a_generation,
				parent_a = excluded.parent_a,
				parent_b_generation = excluded.parent_b_generation,
				parent_b = excluded.parent_b
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range born {
			aGen, aID := nullRef(b.ParentA)
			bGen, bID := nullRef(b.ParentB)
			if _, err := stmt.ExecContext(ctx, generation, b.Identifier, aGen, aID, bGen, bID); err != nil {
				return fmt.Errorf("insert individual %d/%d: %w", generation, b.Identifier, err)
			}
		}
		return nil
	})
}

func (s *Store) SaveDeaths(ctx context.Context, generation int, dead []GenomeRef) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO individuals (generation, identifier, killed_in_generation)
			VALUES (?, ?, ?)
			ON CONFLICT(generation, identifier) DO UPDATE SET
				killed_in_generation = excluded.killed_in_generation
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range dead {
			if _, err := stmt.ExecContext(ctx, d.Generation, d.Identifier, generation); err != nil {
				return fmt.Errorf("mark individual %d/%d dead: %w", d.Generation, d.Identifier, err)
			}
		}
		return nil
	})
}

func (s *Store) SaveFitness(ctx context.Context, generation int, fitness []Fitness) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fitness (individual_generation, individual_identifier, generation, reached_fitness)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range fitness {
			if _, err := stmt.ExecContext(ctx, f.Individual.Generation, f.Individual.Identifier, generation, f.RawFitness); err != nil {
				return fmt.Errorf("insert fitness %d/%d: %w", f.Individual.Generation, f.Individual.Identifier, err)
			}
		}
		return nil
	})
}

// Individuals lists every known genome ordered by generation and identifier.
func (s *Store) Individuals(ctx context.Context) ([]Individual, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT generation, identifier,
			parent_a_generation, parent_a, parent_b_generation, parent_b,
			killed_in_generation
		FROM individuals
		ORDER BY generation, identifier
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Individual
	for rows.Next() {
		var ind Individual
		var aGen, aID, bGen, bID, killed sql.NullInt64
		if err := rows.Scan(&ind.Generation, &ind.Identifier, &aGen, &aID, &bGen, &bID, &killed); err != nil {
			return nil, err
		}
		ind.ParentA = refFromNull(aGen, aID)
		ind.ParentB = refFromNull(bGen, bID)
		if killed.Valid {
			k := int(killed.Int64)
			ind.KilledIn = &k
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

// FitnessHistory lists every fitness report in insertion order.
func (s *Store) FitnessHistory(ctx context.Context) ([]FitnessRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT individual_generation, individual_identifier, generation, reached_fitness
		FROM fitness
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FitnessRecord
	for rows.Next() {
		var rec FitnessRecord
		if err := rows.Scan(&rec.Individual.Generation, &rec.Individual.Identifier, &rec.Generation, &rec.Fitness); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullRef(ref *GenomeRef) (sql.NullInt64, sql.NullInt64) {
	if ref == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(ref.Generation), Valid: true},
		sql.NullInt64{Int64: int64(ref.Identifier), Valid: true}
}

func refFromNull(generation, identifier sql.NullInt64) *GenomeRef {
	if !generation.Valid || !identifier.Valid {
		return nil
	}
	return &GenomeRef{Generation: int(generation.Int64), Identifier: int(identifier.Int64)}
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS individuals (
			generation INTEGER NOT NULL,
			identifier INTEGER NOT NULL,
			parent_a_generation INTEGER,
			parent_a INTEGER,
			parent_b_generation INTEGER,
			parent_b INTEGER,
			killed_in_generation INTEGER,
			PRIMARY KEY (generation, identifier)
		);
		CREATE TABLE IF NOT EXISTS fitness (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			individual_generation INTEGER NOT NULL,
			individual_identifier INTEGER NOT NULL,
			generation INTEGER NOT NULL,
			reached_fitness REAL NOT NULL
		);
	`)
	return err
}
