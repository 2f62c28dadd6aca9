//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestEngineDB_Connection(t *testing.T) {
	engineDB := GetEngineDB(t)

	ctx := context.Background()

	var exists bool
	err := engineDB.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'company_details'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}

	if !exists {
		t.Error("expected company_details table after migrations")
	}
}

func TestEngineDB_MigrationsIdempotent(t *testing.T) {
	engineDB := GetEngineDB(t)

	// A second run against an up-to-date schema must be a no-op.
	again, err := setupEngineDB(&TestDB{ConnStr: engineDB.ConnStr})
	if err != nil {
		t.Fatalf("re-running migrations failed: %v", err)
	}
	again.DB.Close()
}
