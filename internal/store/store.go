// Package store is the single persistence boundary for story sessions.
// Backends live in subpackages; every backend stamps an expiry on write and
// treats expired sessions as absent.
package store

import (
	"context"
	"errors"
	"time"

	"plotpact/internal/story"
)

const DefaultRetention = 7 * 24 * time.Hour

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	CreateSession(ctx context.Context, s *story.Session) error
	// GetSession returns ErrSessionNotFound for unknown and expired ids.
	GetSession(ctx context.Context, id string) (*story.Session, error)
	// UpdateSession replaces the stored state and renews the expiry.
	UpdateSession(ctx context.Context, s *story.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type Options struct {
	Retention time.Duration
	// Now is the clock used for expiry. Nil means time.Now.
	Now func() time.Time
}

func (o Options) WithDefaults() Options {
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
