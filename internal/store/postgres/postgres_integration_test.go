package postgres

import (
	"context"
	"os"
	"testing"

	"plotpact/internal/store"
	"plotpact/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	dsn := os.Getenv("PLOTPACT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLOTPACT_TEST_POSTGRES_DSN not set")
	}
	storetest.Run(t, func(t *testing.T, opts store.Options) store.Store {
		ctx := context.Background()
		c, err := New(ctx, dsn, opts)
		if err != nil {
			t.Fatalf("connecting to postgres: %v", err)
		}
		if err := c.EnsureSchema(ctx); err != nil {
			t.Fatalf("ensuring schema: %v", err)
		}
		if _, err := c.pool.Exec(ctx, `TRUNCATE sessions`); err != nil {
			t.Fatalf("truncating sessions: %v", err)
		}
		t.Cleanup(func() { c.Close(ctx) })
		return c
	})
}
