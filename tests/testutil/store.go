package testutil

import (
	"testing"

	"github.com/nhle/weekly-planner/internal/recordstore"
)

// NewTestClient creates an in-memory SQLite record store with all
// migrations applied. It automatically closes the client when the test
// completes.
func NewTestClient(t *testing.T) *recordstore.SQLClient {
	t.Helper()

	c, err := recordstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("creating test client: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test client: %v", err)
		}
	})

	return c
}

// NewMemoryClient creates an empty in-process record store.
func NewMemoryClient(t *testing.T) *recordstore.MemoryClient {
	t.Helper()
	return recordstore.NewMemoryClient()
}
