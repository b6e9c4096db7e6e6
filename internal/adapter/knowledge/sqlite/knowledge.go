// Package sqlite provides the SQLite-backed knowledge base that supplies
// per-aspect guidance documents to reviewer agents.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// KnowledgeBase stores guidance documents keyed by language and aspect.
// It satisfies the review use case's KnowledgeBase port.
type KnowledgeBase struct {
	db *sql.DB
}

// NewKnowledgeBase opens (or creates) the knowledge base at the given
// path. Use ":memory:" for an in-memory database in tests.
func NewKnowledgeBase(dbPath string) (*KnowledgeBase, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}

	kb := &KnowledgeBase{db: db}
	if err := kb.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return kb, nil
}

func (kb *KnowledgeBase) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		language TEXT NOT NULL,
		aspect TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		UNIQUE(language, aspect, title)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_lookup ON documents(language, aspect);
	`
	_, err := kb.db.Exec(schema)
	return err
}

// Retrieve returns up to k documents for the (language, aspect) pair.
// Documents registered under language "any" apply to every language.
// Ordering is by insertion so retrieval is deterministic.
func (kb *KnowledgeBase) Retrieve(ctx context.Context, language, aspect string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := kb.db.QueryContext(ctx, `
		SELECT title, content FROM documents
		WHERE aspect = ? AND (language = ? OR language = 'any')
		ORDER BY id
		LIMIT ?`, aspect, language, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var title, content string
		if err := rows.Scan(&title, &content); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, fmt.Sprintf("### %s\n\n%s", title, content))
	}
	return docs, rows.Err()
}

// Ingest inserts or replaces one document.
func (kb *KnowledgeBase) Ingest(ctx context.Context, language, aspect, title, content string) error {
	_, err := kb.db.ExecContext(ctx, `
		INSERT INTO documents (language, aspect, title, content)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(language, aspect, title) DO UPDATE SET content = excluded.content`,
		language, aspect, title, content)
	if err != nil {
		return fmt.Errorf("failed to ingest document %q: %w", title, err)
	}
	return nil
}

// IngestDir walks a directory laid out as <root>/<aspect>/<language>/*.md
// and ingests every markdown file, using the file name (without extension)
// as the document title. Returns the number of documents ingested.
func (kb *KnowledgeBase) IngestDir(ctx context.Context, root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			// Not in aspect/language/doc.md form; skip silently so stray
			// READMEs don't break ingestion.
			return nil
		}
		aspect, language := parts[0], parts[1]
		title := strings.TrimSuffix(parts[2], ".md")

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := kb.Ingest(ctx, language, aspect, title, string(content)); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// Close releases the database handle.
func (kb *KnowledgeBase) Close() error {
	return kb.db.Close()
}
