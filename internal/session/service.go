// Package session runs the story state machine on top of a store. Every
// operation loads the session, applies one transition under a per-session
// lock, and writes the whole session back.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"plotpact/internal/continuation"
	"plotpact/internal/generate"
	"plotpact/internal/metrics"
	"plotpact/internal/store"
	"plotpact/internal/story"
	"plotpact/internal/verify"
)

const DefaultMinPlotLength = 50

var ErrTemplateNotFound = errors.New("template not found")

type Generator interface {
	Generate(ctx context.Context, req generate.Request) []story.Constraint
}

type Verifier interface {
	Verify(ctx context.Context, req verify.Request) verify.Result
}

type Continuer interface {
	Next(ctx context.Context, storyText []string, constraints []story.Constraint) (continuation.Result, error)
}

type Template struct {
	Name  string
	Title string
	Plot  string
}

type Options struct {
	// MinPlotLength defaults to DefaultMinPlotLength when zero.
	MinPlotLength int
	// MaxParagraphs ends a story once reached. Zero disables the cap.
	MaxParagraphs int
	// SkipRegeneration turns off constraint generation after accepted paragraphs.
	SkipRegeneration bool
	Templates        []Template
	Logger           *slog.Logger
	Metrics          *metrics.Recorder
	Now              func() time.Time
}

type Service struct {
	store     store.Store
	generator Generator
	verifier  Verifier
	writer    Continuer
	opts      Options
	logger    *slog.Logger
	locks     *keyedMutex
}

func New(st store.Store, g Generator, v Verifier, w Continuer, opts Options) *Service {
	if opts.MinPlotLength <= 0 {
		opts.MinPlotLength = DefaultMinPlotLength
	}
	if opts.MaxParagraphs < 0 {
		opts.MaxParagraphs = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		generator: g,
		verifier:  v,
		writer:    w,
		opts:      opts,
		logger:    logger,
		locks:     newKeyedMutex(),
	}
}

type SubmitResult struct {
	Accepted   bool
	Violations []story.Violation
	// Ended is true when this submission filled the story.
	Ended   bool
	Session *story.Session
}

type ContinueResult struct {
	// Paragraph is empty when the co-author produced nothing.
	Paragraph string
	Ended     bool
	Session   *story.Session
}

type ImportRequest struct {
	Title      string
	Template   string
	Plot       string
	Paragraphs []string
}

func (s *Service) Templates() []Template {
	return append([]Template(nil), s.opts.Templates...)
}

func (s *Service) template(name string) (Template, error) {
	for _, t := range s.opts.Templates {
		if t.Name == name {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
}

// Create starts an empty story waiting for its plot.
func (s *Service) Create(ctx context.Context, title string) (*story.Session, error) {
	sess := story.NewSession(s.opts.Now())
	sess.Title = strings.TrimSpace(title)
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("session created", slog.String("session", sess.ID))
	return sess, nil
}

func (s *Service) CreateFromTemplate(ctx context.Context, name string) (*story.Session, error) {
	t, err := s.template(name)
	if err != nil {
		return nil, err
	}
	sess := story.NewSession(s.opts.Now())
	if err := s.activate(ctx, sess, t.Title, t.Plot); err != nil {
		return nil, fmt.Errorf("activating template %q: %w", name, err)
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("session created from template",
		slog.String("session", sess.ID), slog.String("template", name))
	return sess, nil
}

// Activate commits the title and plot. An empty title keeps the one given at
// creation. Validation runs before any oracle call.
func (s *Service) Activate(ctx context.Context, id, title, plot string) (*story.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = sess.Title
	}
	if err := s.activate(ctx, sess, title, plot); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) activate(ctx context.Context, sess *story.Session, title, plot string) error {
	if err := sess.CheckActivation(title, plot, s.opts.MinPlotLength); err != nil {
		return err
	}
	batch := s.generator.Generate(ctx, generate.Request{
		StoryText: []string{strings.TrimSpace(plot)},
	})
	if err := sess.Activate(title, plot, s.opts.MinPlotLength, batch); err != nil {
		return err
	}
	s.logger.Info("session activated",
		slog.String("session", sess.ID), slog.Int("constraints", len(batch)))
	return nil
}

// Submit verifies a user paragraph and records the outcome. A rejection is a
// normal result, not an error.
func (s *Service) Submit(ctx context.Context, id, text string) (SubmitResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := sess.CheckWritable(); err != nil {
		return SubmitResult{}, err
	}
	if strings.TrimSpace(text) == "" {
		return SubmitResult{}, story.ErrEmptyCandidate
	}

	result := s.verifier.Verify(ctx, verify.Request{
		Candidate:   text,
		Context:     sess.StoryText(),
		Constraints: sess.Constraints,
	})

	if !result.IsValid {
		sess.Reject(text, result.Violations)
		if err := s.save(ctx, sess); err != nil {
			return SubmitResult{}, err
		}
		s.opts.Metrics.Submission("rejected")
		s.logger.Info("paragraph rejected",
			slog.String("session", id), slog.Int("violations", len(result.Violations)))
		return SubmitResult{Violations: result.Violations, Session: sess}, nil
	}

	sess.Accept(text)
	ended := s.afterAppend(ctx, sess, false)
	if err := s.save(ctx, sess); err != nil {
		return SubmitResult{}, err
	}
	s.opts.Metrics.Submission("accepted")
	s.logger.Info("paragraph accepted",
		slog.String("session", id), slog.Int("paragraphs", len(sess.Paragraphs)))
	return SubmitResult{
		Accepted:   true,
		Violations: []story.Violation{},
		Ended:      ended,
		Session:    sess,
	}, nil
}

// Continue asks the co-author for the next paragraph. The paragraph is
// appended without verification. An ending with no paragraph ends the story
// as it stands. An oracle failure leaves the session as it was and is not
// reported as an error.
func (s *Service) Continue(ctx context.Context, id string) (ContinueResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return ContinueResult{}, err
	}
	if err := sess.CheckWritable(); err != nil {
		return ContinueResult{}, err
	}

	next, err := s.writer.Next(ctx, sess.StoryText(), sess.Constraints)
	if err != nil {
		s.logger.Warn("continuation failed, story left unchanged",
			slog.String("session", id), slog.String("error", err.Error()))
		return ContinueResult{Session: sess}, nil
	}

	var ended bool
	switch {
	case next.Paragraph != "":
		sess.Accept(next.Paragraph)
		ended = s.afterAppend(ctx, sess, next.StoryComplete)
	case next.StoryComplete:
		sess.End()
		ended = true
		s.logger.Info("story ended by co-author",
			slog.String("session", sess.ID), slog.Int("paragraphs", len(sess.Paragraphs)))
	default:
		return ContinueResult{Session: sess}, nil
	}
	if err := s.save(ctx, sess); err != nil {
		return ContinueResult{}, err
	}
	return ContinueResult{Paragraph: next.Paragraph, Ended: ended, Session: sess}, nil
}

// afterAppend ends the story when complete or at the paragraph cap, and
// otherwise refreshes the constraints. It reports whether the story ended.
func (s *Service) afterAppend(ctx context.Context, sess *story.Session, complete bool) bool {
	if complete || sess.ReachedParagraphCap(s.opts.MaxParagraphs) {
		sess.End()
		s.logger.Info("story ended",
			slog.String("session", sess.ID), slog.Int("paragraphs", len(sess.Paragraphs)))
		return true
	}
	if !s.opts.SkipRegeneration {
		s.regenerate(ctx, sess)
	}
	return false
}

func (s *Service) regenerate(ctx context.Context, sess *story.Session) {
	batch := s.generator.Generate(ctx, generate.Request{
		StoryText: sess.StoryText(),
		Existing:  sess.Constraints,
	})
	sess.MergeConstraints(batch)
}

// AddConstraint asks the generator for one constraint of the given shape.
// When none comes back the constraint set is unchanged and NewConstraints is
// emptied.
func (s *Service) AddConstraint(ctx context.Context, id string, structure story.Structure) (*story.Session, error) {
	if err := structure.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.CheckWritable(); err != nil {
		return nil, err
	}

	batch := s.generator.Generate(ctx, generate.Request{
		StoryText: sess.StoryText(),
		Existing:  sess.Constraints,
		Structure: &structure,
	})
	if len(batch) > 1 {
		batch = batch[:1]
	}
	sess.MergeConstraints(batch)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) DeleteConstraint(ctx context.Context, id, constraintID string) (*story.Session, error) {
	return s.removeConstraints(ctx, id, func(sess *story.Session) int {
		return sess.RemoveConstraint(constraintID)
	})
}

// DeleteConstraintsByDescription removes every constraint with the given
// description. Prefer DeleteConstraint when the id is known.
func (s *Service) DeleteConstraintsByDescription(ctx context.Context, id, description string) (*story.Session, error) {
	return s.removeConstraints(ctx, id, func(sess *story.Session) int {
		return sess.RemoveConstraintsByDescription(description)
	})
}

func (s *Service) removeConstraints(ctx context.Context, id string, remove func(*story.Session) int) (*story.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.CheckWritable(); err != nil {
		return nil, err
	}
	if remove(sess) == 0 {
		return sess, nil
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// End is idempotent.
func (s *Service) End(ctx context.Context, id string) (*story.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Lifecycle == story.LifecycleEnded {
		return sess, nil
	}
	sess.End()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Import creates an active story from existing text. Paragraphs are taken as
// written, and constraints are generated once over the whole text.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*story.Session, error) {
	title, plot := req.Title, req.Plot
	if req.Template != "" {
		t, err := s.template(req.Template)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(title) == "" {
			title = t.Title
		}
		if strings.TrimSpace(plot) == "" {
			plot = t.Plot
		}
	}

	sess := story.NewSession(s.opts.Now())
	if err := sess.CheckActivation(title, plot, s.opts.MinPlotLength); err != nil {
		return nil, err
	}
	text := append([]string{strings.TrimSpace(plot)}, req.Paragraphs...)
	batch := s.generator.Generate(ctx, generate.Request{StoryText: text})
	if err := sess.Activate(title, plot, s.opts.MinPlotLength, batch); err != nil {
		return nil, err
	}
	for _, p := range req.Paragraphs {
		sess.Accept(p)
	}
	if sess.ReachedParagraphCap(s.opts.MaxParagraphs) {
		sess.End()
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("session imported",
		slog.String("session", sess.ID), slog.Int("paragraphs", len(sess.Paragraphs)))
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*story.Session, error) {
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]store.SessionSummary, error) {
	summaries, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return summaries, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

func (s *Service) Purge(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", slog.Int64("count", n))
	}
	return n, nil
}

func (s *Service) load(ctx context.Context, id string) (*story.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess *story.Session) error {
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}
