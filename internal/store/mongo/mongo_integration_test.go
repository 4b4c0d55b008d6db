package mongo

import (
	"context"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"plotpact/internal/store"
	"plotpact/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	uri := os.Getenv("PLOTPACT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PLOTPACT_TEST_MONGO_URI not set")
	}
	storetest.Run(t, func(t *testing.T, opts store.Options) store.Store {
		ctx := context.Background()
		c, err := New(ctx, uri, "plotpact_test", opts)
		if err != nil {
			t.Fatalf("connecting to mongodb: %v", err)
		}
		if _, err := c.sessions.DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("clearing sessions: %v", err)
		}
		t.Cleanup(func() { c.Close(ctx) })
		return c
	})
}
