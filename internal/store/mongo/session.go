package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plotpact/internal/store"
	"plotpact/internal/story"
)

type document struct {
	story.Session `bson:",inline"`
	ExpiresAt     time.Time `bson:"expires_at"`
}

func (c *Client) now() time.Time {
	return c.opts.Now().UTC()
}

func liveFilter(id string, now time.Time) bson.M {
	return bson.M{"_id": id, "expires_at": bson.M{"$gt": now}}
}

func (c *Client) CreateSession(ctx context.Context, s *story.Session) error {
	now := c.now()
	doc := document{ExpiresAt: store.Stamp(s, c.opts)}
	doc.Session = *s

	// Reuse the slot of an expired session the TTL reaper has not removed yet.
	res, err := c.sessions.ReplaceOne(ctx, bson.M{"_id": s.ID, "expires_at": bson.M{"$lte": now}}, doc)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	if _, err := c.sessions.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("creating session %s: %w", s.ID, store.ErrSessionExists)
		}
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*story.Session, error) {
	var doc document
	err := c.sessions.FindOne(ctx, liveFilter(id, c.now())).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	s := doc.Session
	s.Normalize()
	return &s, nil
}

func (c *Client) UpdateSession(ctx context.Context, s *story.Session) error {
	now := c.now()
	doc := document{ExpiresAt: store.Stamp(s, c.opts)}
	doc.Session = *s

	res, err := c.sessions.ReplaceOne(ctx, liveFilter(s.ID, now), doc)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if _, err := c.sessions.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := c.sessions.Find(ctx, bson.M{"expires_at": bson.M{"$gt": c.now()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer cursor.Close(ctx)

	summaries := []store.SessionSummary{}
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding session: %w", err)
		}
		summaries = append(summaries, store.Summarize(&doc.Session, doc.ExpiresAt))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return summaries, nil
}

func (c *Client) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": c.now()}})
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}
