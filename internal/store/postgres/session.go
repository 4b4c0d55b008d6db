package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"plotpact/internal/store"
	"plotpact/internal/story"
)

func (c *Client) CreateSession(ctx context.Context, s *story.Session) error {
	expires := store.Stamp(s, c.opts)
	state, err := store.EncodeState(s)
	if err != nil {
		return err
	}

	query := `
INSERT INTO sessions (id, title, lifecycle, paragraph_count, state, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    lifecycle = EXCLUDED.lifecycle,
    paragraph_count = EXCLUDED.paragraph_count,
    state = EXCLUDED.state,
    created_at = EXCLUDED.created_at,
    updated_at = EXCLUDED.updated_at,
    expires_at = EXCLUDED.expires_at
WHERE sessions.expires_at <= $9
`
	tag, err := c.pool.Exec(ctx, query,
		s.ID,
		s.Title,
		string(s.Lifecycle),
		len(s.Paragraphs),
		state,
		s.CreatedAt,
		s.UpdatedAt,
		expires,
		c.opts.Now(),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("creating session %s: %w", s.ID, store.ErrSessionExists)
	}
	return nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*story.Session, error) {
	var state []byte
	err := c.pool.QueryRow(ctx,
		`SELECT state FROM sessions WHERE id = $1 AND expires_at > $2`, id, c.opts.Now(),
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return store.DecodeState(state)
}

func (c *Client) UpdateSession(ctx context.Context, s *story.Session) error {
	now := c.opts.Now()
	expires := store.Stamp(s, c.opts)
	state, err := store.EncodeState(s)
	if err != nil {
		return err
	}

	query := `
UPDATE sessions SET
    title = $2,
    lifecycle = $3,
    paragraph_count = $4,
    state = $5,
    updated_at = $6,
    expires_at = $7
WHERE id = $1 AND expires_at > $8
`
	tag, err := c.pool.Exec(ctx, query,
		s.ID,
		s.Title,
		string(s.Lifecycle),
		len(s.Paragraphs),
		state,
		s.UpdatedAt,
		expires,
		now,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	query := `
SELECT id, title, lifecycle, paragraph_count, updated_at, expires_at
FROM sessions
WHERE expires_at > $1
ORDER BY updated_at DESC, id
`
	rows, err := c.pool.Query(ctx, query, c.opts.Now())
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	summaries := []store.SessionSummary{}
	for rows.Next() {
		var s store.SessionSummary
		var lifecycle string
		if err := rows.Scan(&s.ID, &s.Title, &lifecycle, &s.Paragraphs, &s.UpdatedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		s.Lifecycle = story.Lifecycle(lifecycle)
		s.UpdatedAt = s.UpdatedAt.UTC()
		s.ExpiresAt = s.ExpiresAt.UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session summaries: %w", err)
	}
	return summaries, nil
}

func (c *Client) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, c.opts.Now())
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
