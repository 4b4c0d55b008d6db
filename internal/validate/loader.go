package validate

import (
	"context"

	"plotpact/internal/story"
)

// SessionLoader is the read side of store.Store.
type SessionLoader interface {
	GetSession(ctx context.Context, id string) (*story.Session, error)
}
