// Package storetest is a conformance suite every Store backend runs.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"plotpact/internal/store"
	"plotpact/internal/story"
)

// Clock is a manually advanced clock for expiry tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type Factory func(t *testing.T, opts store.Options) store.Store

// SampleSession returns a session with every field populated.
func SampleSession() *story.Session {
	s := story.NewSession(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	s.Title = "Dragonfall"
	s.Plot = "A young knight must stop the dragon Malgrath before the harvest festival."
	s.Lifecycle = story.LifecycleActive
	s.Paragraphs = []string{"Elena sharpened her blade.", "Smoke rose over Oakhollow."}
	c1 := story.Constraint{
		ID: "c1", Function: story.FunctionFocusing, Type: story.TypeAnchor, Flexibility: story.FlexibilityFixed,
		Description: "Malgrath is a destructive threat", Reason: "burned the village",
		Examples: story.Examples{Valid: []string{"ash falls"}, Invalid: []string{"Malgrath serves tea"}},
	}
	c2 := story.Constraint{
		ID: "c2", Function: story.FunctionExclusionary, Type: story.TypeChannel, Flexibility: story.FlexibilityFlexible,
		Description: "No modern technology", Reason: "medieval setting",
		Examples: story.Examples{Valid: []string{"a lantern"}, Invalid: []string{"a phone"}},
	}
	s.Constraints = []story.Constraint{c1, c2}
	s.NewConstraints = []story.Constraint{c2}
	s.ViolationHistory = []story.ViolationState{
		{SentContent: "first bad", Violations: []story.Violation{{ConstraintType: "a", Explanation: "x"}}},
		{SentContent: "second bad", Violations: []story.Violation{{ConstraintType: "b", Explanation: "y"}, {ConstraintType: "c", Explanation: "z"}}},
	}
	return s
}

func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	open := func(t *testing.T) (store.Store, *Clock) {
		t.Helper()
		clock := NewClock(start)
		st := newStore(t, store.Options{Retention: 7 * 24 * time.Hour, Now: clock.Now})
		if err := st.EnsureSchema(ctx); err != nil {
			t.Fatalf("ensuring schema: %v", err)
		}
		return st, clock
	}

	t.Run("round trip preserves order", func(t *testing.T) {
		st, _ := open(t)
		want := SampleSession()
		if err := st.CreateSession(ctx, want); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		got, err := st.GetSession(ctx, want.ID)
		if err != nil {
			t.Fatalf("getting session: %v", err)
		}
		assertSameSession(t, want, got)
	})

	t.Run("unknown id", func(t *testing.T) {
		st, _ := open(t)
		if _, err := st.GetSession(ctx, "missing"); !errors.Is(err, store.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
		if err := st.UpdateSession(ctx, SampleSession()); !errors.Is(err, store.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound on update, got %v", err)
		}
	})

	t.Run("duplicate create", func(t *testing.T) {
		st, _ := open(t)
		s := SampleSession()
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		if err := st.CreateSession(ctx, s); !errors.Is(err, store.ErrSessionExists) {
			t.Fatalf("expected ErrSessionExists, got %v", err)
		}
	})

	t.Run("update replaces state", func(t *testing.T) {
		st, clock := open(t)
		s := SampleSession()
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		clock.Advance(time.Minute)
		s.Paragraphs = append(s.Paragraphs, "A third paragraph.")
		s.Lifecycle = story.LifecycleEnded
		if err := st.UpdateSession(ctx, s); err != nil {
			t.Fatalf("updating session: %v", err)
		}
		got, err := st.GetSession(ctx, s.ID)
		if err != nil {
			t.Fatalf("getting session: %v", err)
		}
		assertSameSession(t, s, got)
		if !got.UpdatedAt.Equal(start.Add(time.Minute)) {
			t.Fatalf("expected updated_at to advance, got %v", got.UpdatedAt)
		}
	})

	t.Run("expired sessions are absent", func(t *testing.T) {
		st, clock := open(t)
		s := SampleSession()
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		clock.Advance(7*24*time.Hour + time.Second)
		if _, err := st.GetSession(ctx, s.ID); !errors.Is(err, store.ErrSessionNotFound) {
			t.Fatalf("expected expired session to be not found, got %v", err)
		}
		if err := st.UpdateSession(ctx, s); !errors.Is(err, store.ErrSessionNotFound) {
			t.Fatalf("expected update of expired session to fail, got %v", err)
		}
		n, err := st.PurgeExpired(ctx)
		if err != nil {
			t.Fatalf("purging: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 purged, got %d", n)
		}
	})

	t.Run("update renews expiry", func(t *testing.T) {
		st, clock := open(t)
		s := SampleSession()
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		clock.Advance(6 * 24 * time.Hour)
		if err := st.UpdateSession(ctx, s); err != nil {
			t.Fatalf("updating session: %v", err)
		}
		clock.Advance(2 * 24 * time.Hour)
		if _, err := st.GetSession(ctx, s.ID); err != nil {
			t.Fatalf("expected renewed session to be live, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		st, _ := open(t)
		s := SampleSession()
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		if err := st.DeleteSession(ctx, s.ID); err != nil {
			t.Fatalf("deleting session: %v", err)
		}
		if _, err := st.GetSession(ctx, s.ID); !errors.Is(err, store.ErrSessionNotFound) {
			t.Fatalf("expected deleted session to be not found, got %v", err)
		}
		if err := st.DeleteSession(ctx, s.ID); err != nil {
			t.Fatalf("deleting twice should not fail: %v", err)
		}
	})

	t.Run("list sessions", func(t *testing.T) {
		st, clock := open(t)
		first := SampleSession()
		if err := st.CreateSession(ctx, first); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		clock.Advance(time.Second)
		second := SampleSession()
		second.Title = "Second"
		if err := st.CreateSession(ctx, second); err != nil {
			t.Fatalf("creating session: %v", err)
		}
		list, err := st.ListSessions(ctx)
		if err != nil {
			t.Fatalf("listing sessions: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(list))
		}
		if list[0].ID != second.ID || list[0].Title != "Second" || list[0].Paragraphs != 2 {
			t.Fatalf("expected most recent first, got %+v", list[0])
		}
	})
}

func assertSameSession(t *testing.T, want, got *story.Session) {
	t.Helper()
	if got.ID != want.ID || got.Title != want.Title || got.Plot != want.Plot || got.Lifecycle != want.Lifecycle {
		t.Fatalf("header mismatch: want %+v, got %+v", want, got)
	}
	if !reflect.DeepEqual(want.Paragraphs, got.Paragraphs) {
		t.Fatalf("paragraphs mismatch:\nwant %#v\ngot  %#v", want.Paragraphs, got.Paragraphs)
	}
	if !reflect.DeepEqual(want.Constraints, got.Constraints) {
		t.Fatalf("constraints mismatch:\nwant %#v\ngot  %#v", want.Constraints, got.Constraints)
	}
	if !reflect.DeepEqual(want.NewConstraints, got.NewConstraints) {
		t.Fatalf("new constraints mismatch:\nwant %#v\ngot  %#v", want.NewConstraints, got.NewConstraints)
	}
	if !reflect.DeepEqual(want.ViolationHistory, got.ViolationHistory) {
		t.Fatalf("violation history mismatch:\nwant %#v\ngot  %#v", want.ViolationHistory, got.ViolationHistory)
	}
	if !want.CreatedAt.Equal(got.CreatedAt) || !want.UpdatedAt.Equal(got.UpdatedAt) {
		t.Fatalf("timestamps mismatch: want %v/%v, got %v/%v", want.CreatedAt, want.UpdatedAt, got.CreatedAt, got.UpdatedAt)
	}
}
