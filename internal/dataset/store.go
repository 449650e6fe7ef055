// internal/dataset/store.go
//
// SQLite-backed storage for synthesized training data and trained models.
//
// A training run groups the examples of one GenerateDataset call together
// with the parameters that produced it. Models are stored as opaque JSON
// blobs and optionally point back at the run they were trained on.

package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/numguess/internal/features"
)

var (
	ErrRunNotFound = errors.New("training run not found")
	ErrNoModel     = errors.New("no stored model")
)

// Run describes one synthesized dataset.
type Run struct {
	ID         string
	MaxNumber  int
	NumSamples int
	Seed       uint64
	Examples   int
	Fallbacks  int
	CreatedAt  time.Time
}

// Model is a stored, serialized classifier.
type Model struct {
	ID        string
	RunID     string
	Kind      string
	Body      []byte
	CreatedAt time.Time
}

// Store reads and writes runs, examples and models.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveRun inserts run and its examples in one transaction.
// A missing run ID or timestamp is filled in; the stored Run is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, examples []features.Example) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Examples = len(examples)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO training_runs (id, max_number, num_samples, seed, examples, fallbacks, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.MaxNumber, run.NumSamples, int64(run.Seed), run.Examples, run.Fallbacks,
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO training_examples
            (run_id, seq, current_guess, previous_guess, guess_count, low_bound, high_bound,
             last_feedback, proposed_guess, label, fallback)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare example insert: %w", err)
	}
	defer stmt.Close()

	for i, ex := range examples {
		v := ex.Features
		if _, err := stmt.ExecContext(ctx,
			run.ID, i, v.CurrentGuess, v.PreviousGuess, v.GuessCount, v.LowBound, v.HighBound,
			v.LastFeedback, v.ProposedGuess, int(ex.Label), ex.Fallback,
		); err != nil {
			return Run{}, fmt.Errorf("insert example %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// GetRun loads run metadata by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var (
		r       Run
		seed    int64
		created string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, max_number, num_samples, seed, examples, fallbacks, created_at
        FROM training_runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.MaxNumber, &r.NumSamples, &seed, &r.Examples, &r.Fallbacks, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	r.Seed = uint64(seed)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return r, nil
}

// Examples loads the examples of a run in their original order.
func (s *Store) Examples(ctx context.Context, runID string) ([]features.Example, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT current_guess, previous_guess, guess_count, low_bound, high_bound,
               last_feedback, proposed_guess, label, fallback
        FROM training_examples WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	out := make([]features.Example, 0, run.Examples)
	for rows.Next() {
		var (
			ex    features.Example
			label int
		)
		v := &ex.Features
		if err := rows.Scan(&v.CurrentGuess, &v.PreviousGuess, &v.GuessCount, &v.LowBound, &v.HighBound,
			&v.LastFeedback, &v.ProposedGuess, &label, &ex.Fallback); err != nil {
			return nil, err
		}
		ex.Label = features.Label(label)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// SaveModel stores a serialized model and returns its ID.
// runID may be empty for models not tied to a stored run.
func (s *Store) SaveModel(ctx context.Context, runID, kind string, body []byte) (string, error) {
	id := uuid.NewString()
	var run any
	if runID != "" {
		run = runID
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO models (id, run_id, kind, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, run, kind, body, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert model: %w", err)
	}
	return id, nil
}

// LatestModel returns the most recently stored model.
func (s *Store) LatestModel(ctx context.Context) (Model, error) {
	var (
		m       Model
		runID   sql.NullString
		created string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, run_id, kind, body, created_at
        FROM models ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&m.ID, &runID, &m.Kind, &m.Body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Model{}, ErrNoModel
	}
	if err != nil {
		return Model{}, fmt.Errorf("latest model: %w", err)
	}
	m.RunID = runID.String
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return m, nil
}
