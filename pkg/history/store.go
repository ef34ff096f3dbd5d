// Package history persists a summary of every successful refresh so that the
// growth of a run, and of each species of interest, can be charted after the
// fact.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ritzau/taxflow/pkg/projections"
)

// ErrEmpty is returned by Latest when nothing has been recorded yet.
var ErrEmpty = errors.New("history: no refresh recorded")

// Refresh is the stored summary of one refresh.
type Refresh struct {
	ID                string          `json:"id"`
	RecordedAt        time.Time       `json:"recorded_at"`
	Reason            string          `json:"reason"`
	Rows              int             `json:"rows"`
	Skipped           int             `json:"skipped"`
	ClassifiedReads   int64           `json:"classified_reads"`
	UnclassifiedReads int64           `json:"unclassified_reads"`
	Nodes             int             `json:"nodes"`
	Edges             int             `json:"edges"`
	Ghosts            int             `json:"ghosts"`
	Interest          []InterestCount `json:"interest,omitempty"`
}

// InterestCount is the read count of one species of interest at one refresh.
type InterestCount struct {
	TaxID string            `json:"taxid"`
	Name  string            `json:"name"`
	Reads int64             `json:"reads"`
	Level projections.Level `json:"level"`
}

// Point is one sample of a species read series.
type Point struct {
	Time  time.Time         `json:"time"`
	Reads int64             `json:"reads"`
	Level projections.Level `json:"level"`
}

// Store is a thread-safe wrapper around the SQLite history database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db %q: %w", path, err)
	}

	// Only one writer at a time for SQLite, and one connection keeps an
	// in-memory database alive.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("history: set pragma %q: %w", p, err)
		}
	}

	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) migrate() error {
	const createMigTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		applied_at  INTEGER NOT NULL,
		description TEXT
	)`
	if _, err := s.db.Exec(createMigTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range Migrations {
		var exists int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration v%d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.Version, time.Now().UnixMilli(), m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

// Record stores r and its interest counts in one transaction. An empty ID is
// replaced by a fresh UUID and a zero RecordedAt by the current time; the
// stored values are returned.
func (s *Store) Record(ctx context.Context, r Refresh) (Refresh, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return r, fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO refreshes
		(id, recorded_at, reason, report_rows, rows_skipped, classified_reads,
		 unclassified_reads, nodes, edges, ghosts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		r.ID, r.RecordedAt.UnixMilli(), r.Reason, r.Rows, r.Skipped, r.ClassifiedReads,
		r.UnclassifiedReads, r.Nodes, r.Edges, r.Ghosts,
	); err != nil {
		return r, fmt.Errorf("history: insert refresh: %w", err)
	}

	for _, ic := range r.Interest {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interest_counts (refresh_id, taxid, name, reads, level) VALUES (?, ?, ?, ?, ?)`,
			r.ID, ic.TaxID, ic.Name, ic.Reads, string(ic.Level),
		); err != nil {
			return r, fmt.Errorf("history: insert interest %s: %w", ic.TaxID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return r, fmt.Errorf("history: commit: %w", err)
	}
	// Millisecond precision is what comes back from the database.
	r.RecordedAt = time.UnixMilli(r.RecordedAt.UnixMilli())
	return r, nil
}

// Latest returns the most recent refresh with its interest counts.
func (s *Store) Latest(ctx context.Context) (Refresh, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r  Refresh
		ms int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, recorded_at, reason, report_rows, rows_skipped,
		classified_reads, unclassified_reads, nodes, edges, ghosts
		FROM refreshes ORDER BY recorded_at DESC, rowid DESC LIMIT 1`).
		Scan(&r.ID, &ms, &r.Reason, &r.Rows, &r.Skipped, &r.ClassifiedReads,
			&r.UnclassifiedReads, &r.Nodes, &r.Edges, &r.Ghosts)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrEmpty
	}
	if err != nil {
		return r, fmt.Errorf("history: latest: %w", err)
	}
	r.RecordedAt = time.UnixMilli(ms)

	rows, err := s.db.QueryContext(ctx,
		`SELECT taxid, name, reads, level FROM interest_counts WHERE refresh_id = ? ORDER BY rowid`, r.ID)
	if err != nil {
		return r, fmt.Errorf("history: latest interest: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ic    InterestCount
			level string
		)
		if err := rows.Scan(&ic.TaxID, &ic.Name, &ic.Reads, &level); err != nil {
			return r, err
		}
		ic.Level = projections.Level(level)
		r.Interest = append(r.Interest, ic)
	}
	return r, rows.Err()
}

// InterestSeries returns up to limit most recent samples for taxid in
// chronological order. limit <= 0 returns all samples.
func (s *Store) InterestSeries(ctx context.Context, taxid string, limit int) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT recorded_at, reads, level FROM (
			SELECT r.recorded_at, i.reads, i.level, r.rowid AS seq
			FROM interest_counts i JOIN refreshes r ON r.id = i.refresh_id
			WHERE i.taxid = ?
			ORDER BY r.recorded_at DESC, r.rowid DESC
			LIMIT ?
		) ORDER BY recorded_at ASC, seq ASC`, taxid, limit)
	if err != nil {
		return nil, fmt.Errorf("history: interest series: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p     Point
			ms    int64
			level string
		)
		if err := rows.Scan(&ms, &p.Reads, &level); err != nil {
			return nil, err
		}
		p.Time = time.UnixMilli(ms)
		p.Level = projections.Level(level)
		points = append(points, p)
	}
	return points, rows.Err()
}

// Count returns the number of stored refreshes.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM refreshes").Scan(&n)
	return n, err
}
