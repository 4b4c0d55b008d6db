package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plotpact/internal/store"
	"plotpact/internal/story"
)

func (c *Client) CreateSession(ctx context.Context, s *story.Session) error {
	expires := store.Stamp(s, c.opts)
	state, err := store.EncodeState(s)
	if err != nil {
		return err
	}

	// An expired row with the same id may be overwritten; a live one may not.
	query := `
	INSERT INTO sessions (id, title, lifecycle, paragraph_count, state, created_at, updated_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		lifecycle = excluded.lifecycle,
		paragraph_count = excluded.paragraph_count,
		state = excluded.state,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		expires_at = excluded.expires_at
	WHERE sessions.expires_at <= ?
	`
	res, err := c.db.ExecContext(ctx, query,
		s.ID,
		s.Title,
		string(s.Lifecycle),
		len(s.Paragraphs),
		string(state),
		s.CreatedAt.UnixMilli(),
		s.UpdatedAt.UnixMilli(),
		expires.UnixMilli(),
		c.now(),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("creating session %s: %w", s.ID, store.ErrSessionExists)
	}
	return nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*story.Session, error) {
	var state string
	err := c.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = ? AND expires_at > ?`, id, c.now(),
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return store.DecodeState([]byte(state))
}

func (c *Client) UpdateSession(ctx context.Context, s *story.Session) error {
	now := c.now()
	expires := store.Stamp(s, c.opts)
	state, err := store.EncodeState(s)
	if err != nil {
		return err
	}

	query := `
	UPDATE sessions SET
		title = ?,
		lifecycle = ?,
		paragraph_count = ?,
		state = ?,
		updated_at = ?,
		expires_at = ?
	WHERE id = ? AND expires_at > ?
	`
	res, err := c.db.ExecContext(ctx, query,
		s.Title,
		string(s.Lifecycle),
		len(s.Paragraphs),
		string(state),
		s.UpdatedAt.UnixMilli(),
		expires.UnixMilli(),
		s.ID,
		now,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	query := `
	SELECT id, title, lifecycle, paragraph_count, updated_at, expires_at
	FROM sessions
	WHERE expires_at > ?
	ORDER BY updated_at DESC, id
	`
	rows, err := c.db.QueryContext(ctx, query, c.now())
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	summaries := []store.SessionSummary{}
	for rows.Next() {
		var s store.SessionSummary
		var lifecycle string
		var updated, expires int64
		if err := rows.Scan(&s.ID, &s.Title, &lifecycle, &s.Paragraphs, &updated, &expires); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		s.Lifecycle = story.Lifecycle(lifecycle)
		s.UpdatedAt = time.UnixMilli(updated).UTC()
		s.ExpiresAt = time.UnixMilli(expires).UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session summaries: %w", err)
	}
	return summaries, nil
}

func (c *Client) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, c.now())
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	return n, nil
}
