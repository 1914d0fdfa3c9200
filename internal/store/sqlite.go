package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/joescharf/prd/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists review sessions in a SQLite database so review
// history survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection avoids SQLITE_BUSY on concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const reviewColumns = `id, created_at, document_text, expected_agents, completed_agents, progress, phase, phase_message, status, issues, error`

func (s *SQLiteStore) CreateReview(ctx context.Context, sess *models.ReviewSession) error {
	expected, err := json.Marshal(sess.ExpectedAgents)
	if err != nil {
		return fmt.Errorf("encode expected agents: %w", err)
	}
	completed, err := json.Marshal(sess.CompletedAgents)
	if err != nil {
		return fmt.Errorf("encode completed agents: %w", err)
	}
	issues, err := encodeIssues(sess.Issues)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.CreatedAt, sess.DocumentText, string(expected), string(completed),
		sess.Progress, string(sess.Phase), sess.PhaseMessage, string(sess.Status), issues, sess.Error,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*models.ReviewSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	sess, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context) ([]*models.ReviewSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.ReviewSession
	for rows.Next() {
		sess, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// MutateReview applies fn to the stored session inside a transaction.
func (s *SQLiteStore) MutateReview(ctx context.Context, id string, fn func(*models.ReviewSession)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mutate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	sess, err := scanReview(row)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load review for mutate: %w", err)
	}

	fn(sess)

	completed, err := json.Marshal(sess.CompletedAgents)
	if err != nil {
		return fmt.Errorf("encode completed agents: %w", err)
	}
	issues, err := encodeIssues(sess.Issues)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE reviews SET completed_agents=?, progress=?, phase=?, phase_message=?, status=?, issues=?, error=? WHERE id=?`,
		string(completed), sess.Progress, string(sess.Phase), sess.PhaseMessage,
		string(sess.Status), issues, sess.Error, id,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteReview(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReview(row scanner) (*models.ReviewSession, error) {
	sess := &models.ReviewSession{}
	var expected, completed string
	var issues sql.NullString
	var phase, status string

	err := row.Scan(&sess.ID, &sess.CreatedAt, &sess.DocumentText, &expected, &completed,
		&sess.Progress, &phase, &sess.PhaseMessage, &status, &issues, &sess.Error)
	if err != nil {
		return nil, err
	}
	sess.Phase = models.Phase(phase)
	sess.Status = models.ReviewStatus(status)

	if err := json.Unmarshal([]byte(expected), &sess.ExpectedAgents); err != nil {
		return nil, fmt.Errorf("decode expected agents: %w", err)
	}
	if err := json.Unmarshal([]byte(completed), &sess.CompletedAgents); err != nil {
		return nil, fmt.Errorf("decode completed agents: %w", err)
	}
	if issues.Valid && issues.String != "" {
		if err := json.Unmarshal([]byte(issues.String), &sess.Issues); err != nil {
			return nil, fmt.Errorf("decode issues: %w", err)
		}
	}
	return sess, nil
}

func encodeIssues(issues []models.FinalIssue) (any, error) {
	if issues == nil {
		return nil, nil
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return nil, fmt.Errorf("encode issues: %w", err)
	}
	return string(data), nil
}
