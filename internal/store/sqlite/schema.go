package sqlite

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS sessions (
		id              TEXT PRIMARY KEY,
		title           TEXT NOT NULL DEFAULT '',
		lifecycle       TEXT NOT NULL,
		paragraph_count INTEGER NOT NULL DEFAULT 0,
		state           TEXT NOT NULL,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL,
		expires_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions (expires_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions (updated_at);
	`
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
