// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local record of every prediction the gate
// released, with the reviewer inputs it was computed from.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

const dbFile = "history.db"

// timeLayout is fixed width so recorded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one released prediction.
type Record struct {
	CycleID     string             `json:"cycle_id" yaml:"cycle_id"`
	RecordedAt  time.Time          `json:"recorded_at" yaml:"recorded_at"`
	Conference  string             `json:"conference" yaml:"conference"`
	Strategy    string             `json:"strategy" yaml:"strategy"`
	OrderID     string             `json:"order_id,omitempty" yaml:"order_id,omitempty"`
	Price       float64            `json:"price" yaml:"price"`
	Scores      []float64          `json:"scores" yaml:"scores"`
	Confidences []float64          `json:"confidences" yaml:"confidences"`
	Summary     types.StatsSummary `json:"summary" yaml:"summary"`
	Prediction  types.Prediction   `json:"prediction" yaml:"prediction"`
}

// ListOptions filters List and the exports.
type ListOptions struct {
	// Conference keeps only records for one conference when set.
	Conference string

	// Since keeps records at or after this time when non-zero.
	Since time.Time

	// Limit caps the result; zero means no cap.
	Limit int
}

// Store manages the history SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates dir/history.db and its schema.
func Open(cfg types.HistoryConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cfg.Dir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			cycle_id TEXT PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			conference TEXT NOT NULL,
			strategy TEXT,
			order_id TEXT,
			price REAL,
			scores TEXT NOT NULL,
			confidences TEXT NOT NULL,
			summary TEXT NOT NULL,
			prediction TEXT NOT NULL,
			probability REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_recorded_at ON predictions(recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_conference ON predictions(conference)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores r. A retried prediction for the same cycle replaces the
// earlier row.
func (s *Store) Save(ctx context.Context, r Record) error {
	if r.CycleID == "" {
		return fmt.Errorf("saving prediction: cycle id is empty")
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}

	scores, err := marshalList(r.Scores)
	if err != nil {
		return err
	}
	confidences, err := marshalList(r.Confidences)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	prediction, err := json.Marshal(r.Prediction)
	if err != nil {
		return fmt.Errorf("marshaling prediction: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO predictions
			(cycle_id, recorded_at, conference, strategy, order_id, price,
			 scores, confidences, summary, prediction, probability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CycleID, r.RecordedAt.UTC().Format(timeLayout), r.Conference, r.Strategy,
		r.OrderID, r.Price, scores, confidences, string(summary), string(prediction),
		r.Prediction.Probability,
	)
	if err != nil {
		return fmt.Errorf("inserting prediction %s: %w", r.CycleID, err)
	}
	return nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := `SELECT cycle_id, recorded_at, conference, strategy, order_id, price,
			scores, confidences, summary, prediction
		FROM predictions WHERE 1=1`
	var args []any
	if opts.Conference != "" {
		query += ` AND conference = ?`
		args = append(args, opts.Conference)
	}
	if !opts.Since.IsZero() {
		query += ` AND recorded_at >= ?`
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	query += ` ORDER BY recorded_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var recordedAt, scores, confidences, summary, prediction string
		var strategy, orderID sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&r.CycleID, &recordedAt, &r.Conference, &strategy, &orderID, &price,
			&scores, &confidences, &summary, &prediction); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		r.Strategy = strategy.String
		r.OrderID = orderID.String
		r.Price = price.Float64
		if r.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("parsing recorded_at of %s: %w", r.CycleID, err)
		}
		if err := json.Unmarshal([]byte(scores), &r.Scores); err != nil {
			return nil, fmt.Errorf("decoding scores of %s: %w", r.CycleID, err)
		}
		if err := json.Unmarshal([]byte(confidences), &r.Confidences); err != nil {
			return nil, fmt.Errorf("decoding confidences of %s: %w", r.CycleID, err)
		}
		if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
			return nil, fmt.Errorf("decoding summary of %s: %w", r.CycleID, err)
		}
		if err := json.Unmarshal([]byte(prediction), &r.Prediction); err != nil {
			return nil, fmt.Errorf("decoding prediction of %s: %w", r.CycleID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func marshalList(v []float64) (string, error) {
	if v == nil {
		v = []float64{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling list: %w", err)
	}
	return string(data), nil
}
