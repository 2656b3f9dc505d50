package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/feed"
)

// feedMeta is the JSONB document holding a feed's mappings.
type feedMeta struct {
	EmailField     string                  `json:"email,omitempty"`
	FieldMap       map[string]string       `json:"field_map,omitempty"`
	StandardFields map[string]string       `json:"standard_fields,omitempty"`
	CustomFields   domain.CustomFieldMap   `json:"custom_fields,omitempty"`
	Tags           string                  `json:"tags,omitempty"`
	DoubleOptin    bool                    `json:"double_optin,omitempty"`
	Condition      domain.ConditionalLogic `json:"feed_condition"`
}

func metaOf(f *domain.FeedConfig) feedMeta {
	return feedMeta{
		EmailField:     f.EmailField,
		FieldMap:       f.FieldMap,
		StandardFields: f.StandardFields,
		CustomFields:   f.CustomFields,
		Tags:           f.Tags,
		DoubleOptin:    f.DoubleOptin,
		Condition:      f.Condition,
	}
}

func (m feedMeta) apply(f *domain.FeedConfig) {
	f.EmailField = m.EmailField
	f.FieldMap = m.FieldMap
	f.StandardFields = m.StandardFields
	f.CustomFields = m.CustomFields
	f.Tags = m.Tags
	f.DoubleOptin = m.DoubleOptin
	f.Condition = m.Condition
}

const feedColumns = `id, form_id, name, is_active, meta, created_at, updated_at`

// FeedRepo implements feed.Repository against PostgreSQL.
type FeedRepo struct{ db *sql.DB }

// NewFeedRepo creates a Postgres-backed feed repository.
func NewFeedRepo(db *sql.DB) *FeedRepo { return &FeedRepo{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

func scanFeed(row scanner) (*domain.FeedConfig, error) {
	var f domain.FeedConfig
	var raw []byte
	if err := row.Scan(&f.ID, &f.FormID, &f.Name, &f.IsActive, &raw, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		var m feedMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode feed %d meta: %w", f.ID, err)
		}
		m.apply(&f)
	}
	return &f, nil
}

func (r *FeedRepo) query(ctx context.Context, q string, args ...any) ([]domain.FeedConfig, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var out []domain.FeedConfig
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *FeedRepo) List(ctx context.Context, formID int64) ([]domain.FeedConfig, error) {
	return r.query(ctx,
		`SELECT `+feedColumns+` FROM drip_feeds WHERE form_id = $1 ORDER BY id`, formID)
}

func (r *FeedRepo) ListActive(ctx context.Context, formID int64) ([]domain.FeedConfig, error) {
	return r.query(ctx,
		`SELECT `+feedColumns+` FROM drip_feeds WHERE form_id = $1 AND is_active = true ORDER BY id`, formID)
}

func (r *FeedRepo) Get(ctx context.Context, id int64) (*domain.FeedConfig, error) {
	f, err := scanFeed(r.db.QueryRowContext(ctx,
		`SELECT `+feedColumns+` FROM drip_feeds WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, feed.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return f, nil
}

func (r *FeedRepo) Create(ctx context.Context, f *domain.FeedConfig) error {
	meta, err := json.Marshal(metaOf(f))
	if err != nil {
		return fmt.Errorf("encode feed meta: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO drip_feeds (form_id, name, is_active, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, f.FormID, f.Name, f.IsActive, meta).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create feed: %w", err)
	}
	return nil
}

func (r *FeedRepo) Update(ctx context.Context, f *domain.FeedConfig) error {
	meta, err := json.Marshal(metaOf(f))
	if err != nil {
		return fmt.Errorf("encode feed meta: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		UPDATE drip_feeds SET name = $2, is_active = $3, meta = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, f.ID, f.Name, f.IsActive, meta).Scan(&f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return feed.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	return nil
}

func (r *FeedRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drip_feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return feed.ErrNotFound
	}
	return nil
}
