// Package storage persists search result summaries in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/models"
)

// SummaryStore persists summary batches keyed by user and conversation.
type SummaryStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSummaryStore opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSummaryStore(dbPath string, logger *zap.Logger) (*SummaryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SummaryStore{db: db, logger: logger}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		conversation_id TEXT,
		query TEXT NOT NULL,
		result_title TEXT NOT NULL,
		summary TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_user ON summaries(user_id);
	CREATE INDEX IF NOT EXISTS idx_summaries_conversation ON summaries(conversation_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveBatch inserts one row per summary. Per-row failures are counted and
// logged, not returned: summary persistence never fails a search.
func (s *SummaryStore) SaveBatch(ctx context.Context, summaries []models.Summary, query, userID, conversationID string) (saved, failed int) {
	now := time.Now()
	for _, sum := range summaries {
		if sum.Summary == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO summaries (id, user_id, conversation_id, query, result_title, summary, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), userID, conversationID, query, sum.ResultTitle, sum.Summary, now)
		if err != nil {
			s.logger.Warn("failed to save summary",
				zap.String("title", sum.ResultTitle), zap.Error(err))
			failed++
			continue
		}
		saved++
	}
	return saved, failed
}

// CountForUser returns the number of stored summaries for a user.
func (s *SummaryStore) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM summaries WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count summaries: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SummaryStore) Close() error {
	return s.db.Close()
}
