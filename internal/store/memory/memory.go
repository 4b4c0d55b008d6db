// Package memory is an in-process Store. State is lost on exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"plotpact/internal/store"
	"plotpact/internal/story"
)

var _ store.Store = (*Client)(nil)

type entry struct {
	session   *story.Session
	expiresAt time.Time
}

type Client struct {
	mu       sync.RWMutex
	sessions map[string]entry
	opts     store.Options
}

func New(opts store.Options) *Client {
	return &Client{sessions: make(map[string]entry), opts: opts.WithDefaults()}
}

func (c *Client) Close(ctx context.Context) error { return nil }

func (c *Client) EnsureSchema(ctx context.Context) error { return nil }

func (c *Client) CreateSession(ctx context.Context, s *story.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.sessions[s.ID]; ok && c.live(e) {
		return fmt.Errorf("creating session %s: %w", s.ID, store.ErrSessionExists)
	}
	expires := store.Stamp(s, c.opts)
	c.sessions[s.ID] = entry{session: s.Clone(), expiresAt: expires}
	return nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*story.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.sessions[id]
	if !ok || !c.live(e) {
		return nil, store.ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

func (c *Client) UpdateSession(ctx context.Context, s *story.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[s.ID]
	if !ok || !c.live(e) {
		return store.ErrSessionNotFound
	}
	expires := store.Stamp(s, c.opts)
	c.sessions[s.ID] = entry{session: s.Clone(), expiresAt: expires}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	return nil
}

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]store.SessionSummary, 0, len(c.sessions))
	for _, e := range c.sessions {
		if !c.live(e) {
			continue
		}
		out = append(out, store.Summarize(e.session, e.expiresAt))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (c *Client) PurgeExpired(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for id, e := range c.sessions {
		if !c.live(e) {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (c *Client) live(e entry) bool {
	return c.opts.Now().Before(e.expiresAt)
}
