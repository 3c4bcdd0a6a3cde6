// Package local implements the per-device contribution store on SQLite.
//
// One row per (device, entity, kind) remembers the value this device last
// submitted, which is the only record of "who contributed what" anywhere
// in the system: the shared store holds no per-contributor identity, so
// every delta is computed against this table. A separate date-keyed table
// deduplicates the daily total-visit increment.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rampagelabs/armory/internal/domain/feedback"
)

// Store wraps the SQLite connection holding device-local state.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the contribution database at path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open contribution db: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init contribution schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// initSchema creates the tables if they don't exist.
func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS contributions (
			device_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (device_id, entity_id, kind)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_visits (
			device_id TEXT NOT NULL,
			visit_date TEXT NOT NULL,
			PRIMARY KEY (device_id, visit_date)
		)`,
	}
	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("schema query failed: %w", err)
		}
	}
	return nil
}

// Like returns the device's recorded like state for entity; absent rows
// read as false.
func (s *Store) Like(ctx context.Context, device, entity string) (bool, error) {
	val, ok, err := s.get(ctx, device, entity, feedback.KindLike)
	if err != nil || !ok {
		return false, err
	}
	return val == "true", nil
}

// SetLike records the device's like state for entity.
func (s *Store) SetLike(ctx context.Context, device, entity string, liked bool) error {
	val := "false"
	if liked {
		val = "true"
	}
	return s.set(ctx, device, entity, feedback.KindLike, val)
}

// Vote returns the device's recorded vote for entity; absent rows read as
// VoteNone.
func (s *Store) Vote(ctx context.Context, device, entity string) (feedback.VoteState, error) {
	val, ok, err := s.get(ctx, device, entity, feedback.KindVote)
	if err != nil || !ok || val == "" {
		return feedback.VoteNone, err
	}
	state, err := feedback.ParseVoteState(val)
	if err != nil {
		// Treat an unreadable row as no vote rather than failing the submit.
		return feedback.VoteNone, nil
	}
	return state, nil
}

// SetVote records the device's vote for entity. VoteNone is stored
// explicitly so toggle-off survives reloads.
func (s *Store) SetVote(ctx context.Context, device, entity string, state feedback.VoteState) error {
	return s.set(ctx, device, entity, feedback.KindVote, state.String())
}

// Rating returns the device's recorded rating, or nil if it never rated
// or retracted.
func (s *Store) Rating(ctx context.Context, device, entity string) (*int, error) {
	val, ok, err := s.get(ctx, device, entity, feedback.KindRating)
	if err != nil || !ok || val == "" {
		return nil, err
	}
	var r int
	if _, err := fmt.Sscanf(val, "%d", &r); err != nil || !feedback.ValidRating(r) {
		return nil, nil
	}
	return &r, nil
}

// SetRating records the device's rating; nil stores a retraction.
func (s *Store) SetRating(ctx context.Context, device, entity string, rating *int) error {
	val := ""
	if rating != nil {
		val = fmt.Sprintf("%d", *rating)
	}
	return s.set(ctx, device, entity, feedback.KindRating, val)
}

// MarkDailyVisit records the device's visit for date (YYYY-MM-DD) and
// reports whether this was the first visit that day.
func (s *Store) MarkDailyVisit(ctx context.Context, device, date string) (bool, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_visits (device_id, visit_date) VALUES (?, ?)`,
		device, date)
	if err != nil {
		return false, fmt.Errorf("mark daily visit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark daily visit: %w", err)
	}
	return n > 0, nil
}

func (s *Store) get(ctx context.Context, device, entity string, kind feedback.Kind) (string, bool, error) {
	var val string
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM contributions WHERE device_id = ? AND entity_id = ? AND kind = ?`,
		device, entity, string(kind)).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read contribution: %w", err)
	}
	return val, true, nil
}

func (s *Store) set(ctx context.Context, device, entity string, kind feedback.Kind, value string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO contributions (device_id, entity_id, kind, value, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (device_id, entity_id, kind)
		 DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		device, entity, string(kind), value)
	if err != nil {
		return fmt.Errorf("write contribution: %w", err)
	}
	return nil
}
