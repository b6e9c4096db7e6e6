// Package sqlite persists completed review reports for history queries
// and cross-run cost accounting.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// Store implements the review use case's Store port using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store at the given path. Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	-- One row per completed (or terminally failed) review
	CREATE TABLE IF NOT EXISTS reviews (
		review_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		executive_summary TEXT,
		overall_score REAL NOT NULL,
		recommendation TEXT NOT NULL,
		statistics TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL
	);

	-- Consolidated issues belonging to a review
	CREATE TABLE IF NOT EXISTS issues (
		issue_id TEXT NOT NULL,
		review_id TEXT NOT NULL,
		agent_source TEXT NOT NULL,
		severity TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		file_path TEXT NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		confidence REAL NOT NULL,
		suggested_fix TEXT,
		sources TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (review_id, issue_id),
		FOREIGN KEY (review_id) REFERENCES reviews(review_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_issues_review ON issues(review_id, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists a report and its issues in one transaction, replacing any
// prior version of the same review.
func (s *Store) Save(ctx context.Context, report domain.ReviewReport) error {
	stats, err := json.Marshal(report.Statistics)
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO reviews
		(review_id, status, executive_summary, overall_score, recommendation, statistics, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ReviewID, report.Status, report.ExecutiveSummary, report.OverallScore,
		report.Recommendation, string(stats), report.CreatedAt.Unix(), report.CompletedAt.Unix(),
	); err != nil {
		return fmt.Errorf("failed to save review %s: %w", report.ReviewID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE review_id = ?`, report.ReviewID); err != nil {
		return fmt.Errorf("failed to clear prior issues: %w", err)
	}

	for position, issue := range report.Issues {
		sources, err := json.Marshal(issue.Sources)
		if err != nil {
			return fmt.Errorf("failed to encode sources: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO issues
			(issue_id, review_id, agent_source, severity, category, title, description,
			 file_path, line_start, line_end, confidence, suggested_fix, sources, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			issue.ID, report.ReviewID, issue.AgentSource, issue.Severity, issue.Category,
			issue.Title, issue.Description, issue.FilePath, issue.LineStart, issue.LineEnd,
			issue.Confidence, issue.SuggestedFix, string(sources), position,
		); err != nil {
			return fmt.Errorf("failed to save issue %s: %w", issue.ID, err)
		}
	}

	return tx.Commit()
}

// Load fetches a previously saved report with its issues in the order they
// were consolidated.
func (s *Store) Load(ctx context.Context, reviewID string) (domain.ReviewReport, error) {
	var report domain.ReviewReport
	var stats string
	var createdAt, completedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT review_id, status, executive_summary, overall_score, recommendation, statistics, created_at, completed_at
		FROM reviews WHERE review_id = ?`, reviewID,
	).Scan(&report.ReviewID, &report.Status, &report.ExecutiveSummary, &report.OverallScore,
		&report.Recommendation, &stats, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return domain.ReviewReport{}, fmt.Errorf("review %s not found", reviewID)
	}
	if err != nil {
		return domain.ReviewReport{}, fmt.Errorf("failed to load review %s: %w", reviewID, err)
	}

	if err := json.Unmarshal([]byte(stats), &report.Statistics); err != nil {
		return domain.ReviewReport{}, fmt.Errorf("failed to decode statistics: %w", err)
	}
	report.CreatedAt = time.Unix(createdAt, 0).UTC()
	report.CompletedAt = time.Unix(completedAt, 0).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_id, agent_source, severity, category, title, description,
		       file_path, line_start, line_end, confidence, suggested_fix, sources
		FROM issues WHERE review_id = ? ORDER BY position`, reviewID)
	if err != nil {
		return domain.ReviewReport{}, fmt.Errorf("failed to load issues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issue domain.Finding
		var sources string
		if err := rows.Scan(&issue.ID, &issue.AgentSource, &issue.Severity, &issue.Category,
			&issue.Title, &issue.Description, &issue.FilePath, &issue.LineStart, &issue.LineEnd,
			&issue.Confidence, &issue.SuggestedFix, &sources); err != nil {
			return domain.ReviewReport{}, fmt.Errorf("failed to scan issue: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &issue.Sources); err != nil {
			return domain.ReviewReport{}, fmt.Errorf("failed to decode sources: %w", err)
		}
		report.Issues = append(report.Issues, issue)
	}
	return report, rows.Err()
}

// ListRecent returns review IDs ordered most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT review_id FROM reviews ORDER BY created_at DESC, review_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TotalCost sums the recorded cost of every saved review.
func (s *Store) TotalCost(ctx context.Context) (float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT statistics FROM reviews`)
	if err != nil {
		return 0, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	total := 0.0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return 0, err
		}
		var stats domain.Statistics
		if err := json.Unmarshal([]byte(raw), &stats); err != nil {
			return 0, fmt.Errorf("failed to decode statistics: %w", err)
		}
		total += stats.TotalCostUSD
	}
	return total, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
