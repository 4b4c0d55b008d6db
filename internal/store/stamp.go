package store

import (
	"time"

	"plotpact/internal/story"
)

// Stamp sets the write timestamps on s and returns its new expiry.
// Times are kept in UTC at millisecond precision so every backend
// round-trips them unchanged.
func Stamp(s *story.Session, opts Options) time.Time {
	now := opts.Now().UTC().Truncate(time.Millisecond)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.CreatedAt = s.CreatedAt.UTC().Truncate(time.Millisecond)
	s.UpdatedAt = now
	return now.Add(opts.Retention)
}
