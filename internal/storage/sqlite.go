package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the analytics database: page visits and chat outcomes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "folio.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Visits ---

// RecordVisit stores one page view. A zero CreatedAt means now.
func (s *Store) RecordVisit(v Visit) error {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO visits (hashed_ip, user_agent, path, created_at)
		VALUES (?, ?, ?, ?)`,
		v.HashedIP, v.UserAgent, v.Path, createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// PurgeVisitsBefore deletes visits older than t and returns how many went.
func (s *Store) PurgeVisitsBefore(t time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM visits WHERE created_at < ?", t.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Chat events ---

// RecordChatEvent stores one settlement. ID and CreatedAt are filled in when
// empty.
func (s *Store) RecordChatEvent(e ChatEvent) error {
	switch e.Outcome {
	case "success", "empty", "failure":
	default:
		return fmt.Errorf("invalid chat outcome %q", e.Outcome)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO chat_events (id, session_id, outcome, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Outcome, e.DurationMS, e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetChatEvent returns one chat event by id.
func (s *Store) GetChatEvent(id string) (ChatEvent, error) {
	var e ChatEvent
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, session_id, outcome, duration_ms, created_at
		FROM chat_events WHERE id = ?`, id,
	).Scan(&e.ID, &e.SessionID, &e.Outcome, &e.DurationMS, &createdAt)
	if err == sql.ErrNoRows {
		return ChatEvent{}, ErrNotFound
	}
	if err != nil {
		return ChatEvent{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return ChatEvent{}, fmt.Errorf("parsing created_at: %w", err)
	}
	e.CreatedAt = t
	return e, nil
}

// --- Stats ---

const topPathsLimit = 5

// Stats summarizes visits and chat outcomes relative to now.
func (s *Store) Stats(now time.Time) (Stats, error) {
	st := Stats{
		ChatOutcomes: map[string]int{"success": 0, "empty": 0, "failure": 0},
		TopPaths:     []PathCount{},
		GeneratedAt:  now.UTC(),
	}
	day := now.Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	week := now.Add(-7 * 24 * time.Hour).UTC().Format(time.RFC3339)

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(DISTINCT hashed_ip),
		       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM visits`, day, week,
	).Scan(&st.TotalVisits, &st.UniqueVisitors, &st.VisitsLastDay, &st.VisitsLastWeek)
	if err != nil {
		return Stats{}, fmt.Errorf("counting visits: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT path, COUNT(*) AS n FROM visits
		GROUP BY path ORDER BY n DESC, path ASC LIMIT ?`, topPathsLimit)
	if err != nil {
		return Stats{}, fmt.Errorf("ranking paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Count); err != nil {
			return Stats{}, err
		}
		st.TopPaths = append(st.TopPaths, pc)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	outcomes, err := s.db.Query("SELECT outcome, COUNT(*) FROM chat_events GROUP BY outcome")
	if err != nil {
		return Stats{}, fmt.Errorf("counting chat outcomes: %w", err)
	}
	defer outcomes.Close()
	for outcomes.Next() {
		var outcome string
		var n int
		if err := outcomes.Scan(&outcome, &n); err != nil {
			return Stats{}, err
		}
		st.ChatOutcomes[outcome] = n
	}
	if err := outcomes.Err(); err != nil {
		return Stats{}, err
	}

	if err := s.db.QueryRow("SELECT COALESCE(AVG(duration_ms), 0) FROM chat_events").Scan(&st.AvgChatMS); err != nil {
		return Stats{}, fmt.Errorf("averaging chat latency: %w", err)
	}
	return st, nil
}
