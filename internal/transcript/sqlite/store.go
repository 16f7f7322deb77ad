// Package sqlite keeps the transcript in a SQLite database so it survives
// inspection after the process exits. Each process writes under its own
// session ID and only ever reads back its own rows.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
	"github.com/tjfontaine/polyglot-chatbot/internal/transcript"
)

// Store is a SQLite implementation of transcript.Store
type Store struct {
	db        *sql.DB
	sessionID string
}

var _ transcript.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath. An empty sessionID gets a
// fresh UUID.
func New(dbPath, sessionID string) (*Store, error) {
	if !strings.HasPrefix(dbPath, "file:") {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite would otherwise answer SQLITE_BUSY under fan-out.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	store := &Store{db: db, sessionID: sessionID}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// SessionID returns the key this store's rows are written under.
func (s *Store) SessionID() string {
	return s.sessionID
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			user_text TEXT NOT NULL,
			bot_text TEXT NOT NULL,
			model TEXT,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			usage_estimated INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, seq)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) Append(ctx context.Context, ex domain.Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}

	query := `INSERT INTO exchanges (id, session_id, user_text, bot_text, model,
		prompt_tokens, completion_tokens, usage_estimated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		ex.ID, s.sessionID, ex.User, ex.Bot, ex.Model,
		ex.Usage.PromptTokens, ex.Usage.CompletionTokens, boolToInt(ex.Usage.Estimated),
		ex.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.Exchange, error) {
	query := `SELECT id, user_text, bot_text, model, prompt_tokens, completion_tokens,
		usage_estimated, created_at
		FROM exchanges WHERE session_id = ? ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := []domain.Exchange{}
	for rows.Next() {
		var (
			ex        domain.Exchange
			model     sql.NullString
			estimated int
			createdAt int64
		)
		if err := rows.Scan(&ex.ID, &ex.User, &ex.Bot, &model,
			&ex.Usage.PromptTokens, &ex.Usage.CompletionTokens, &estimated, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.Model = model.String
		ex.Usage.Estimated = estimated != 0
		ex.CreatedAt = time.Unix(0, createdAt)
		exchanges = append(exchanges, ex)
	}

	return exchanges, rows.Err()
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges WHERE session_id = ?`, s.sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count exchanges: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE session_id = ?`, s.sessionID); err != nil {
		return fmt.Errorf("failed to clear exchanges: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
