// Package mongo stores each session as one document. A TTL index on
// expires_at lets the server reap expired sessions; reads filter on it too
// because the reaper runs only once a minute.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plotpact/internal/store"
)

const (
	DefaultDatabase   = "plotpact"
	sessionCollection = "sessions"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	client   *mongo.Client
	sessions *mongo.Collection
	opts     store.Options
}

func New(ctx context.Context, uri, database string, opts store.Options) (*Client, error) {
	if database == "" {
		database = DefaultDatabase
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &Client{
		client:   client,
		sessions: client.Database(database).Collection(sessionCollection),
		opts:     opts.WithDefaults(),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Client) EnsureSchema(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: -1}},
		},
	}
	if _, err := c.sessions.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensuring indexes: %w", err)
	}
	return nil
}
