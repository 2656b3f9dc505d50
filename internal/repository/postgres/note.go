package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/drip-forwarder/internal/domain"
)

// NoteRepo stores entry notes.
type NoteRepo struct{ db *sql.DB }

// NewNoteRepo creates a Postgres-backed note repository.
func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{db: db} }

func (r *NoteRepo) AddNote(ctx context.Context, n *domain.Note) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entry_notes (id, entry_id, note_type, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, n.ID, n.EntryID, n.Type, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	return nil
}

// ListByEntry returns an entry's notes, oldest first.
func (r *NoteRepo) ListByEntry(ctx context.Context, entryID string) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, note_type, message, created_at
		FROM entry_notes WHERE entry_id = $1 ORDER BY created_at, id
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.EntryID, &n.Type, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// FeedErrorRepo stores feed processing errors.
type FeedErrorRepo struct{ db *sql.DB }

// NewFeedErrorRepo creates a Postgres-backed feed error repository.
func NewFeedErrorRepo(db *sql.DB) *FeedErrorRepo { return &FeedErrorRepo{db: db} }

func (r *FeedErrorRepo) RecordError(ctx context.Context, e *domain.FeedError) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feed_errors (id, feed_id, entry_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.FeedID, e.EntryID, e.Kind, e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record feed error: %w", err)
	}
	return nil
}

// ListByFeed returns the most recent errors of a feed, newest first.
func (r *FeedErrorRepo) ListByFeed(ctx context.Context, feedID int64, limit int) ([]domain.FeedError, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, feed_id, entry_id, kind, message, created_at
		FROM feed_errors WHERE feed_id = $1 ORDER BY created_at DESC LIMIT $2
	`, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("list feed errors: %w", err)
	}
	defer rows.Close()

	var out []domain.FeedError
	for rows.Next() {
		var e domain.FeedError
		if err := rows.Scan(&e.ID, &e.FeedID, &e.EntryID, &e.Kind, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feed error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
