package store

import (
	"time"

	"plotpact/internal/story"
)

type SessionSummary struct {
	ID         string
	Title      string
	Lifecycle  story.Lifecycle
	Paragraphs int
	UpdatedAt  time.Time
	ExpiresAt  time.Time
}

func Summarize(s *story.Session, expiresAt time.Time) SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		Title:      s.Title,
		Lifecycle:  s.Lifecycle,
		Paragraphs: len(s.Paragraphs),
		UpdatedAt:  s.UpdatedAt,
		ExpiresAt:  expiresAt,
	}
}
