package recordstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/weekly-planner/internal/recordstore"
	"github.com/nhle/weekly-planner/tests/testutil"
)

// clients runs fn against every Client implementation.
func clients(t *testing.T, fn func(t *testing.T, c recordstore.Client)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, testutil.NewTestClient(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, testutil.NewMemoryClient(t)) })
}

func insertTask(t *testing.T, c recordstore.Client, id, owner string) recordstore.Record {
	t.Helper()
	rec, err := c.Insert(context.Background(), recordstore.TableTasks, recordstore.Record{
		"id":         id,
		"title":      "task " + id,
		"column_key": "TODO",
		"owner_id":   owner,
	})
	if err != nil {
		t.Fatalf("inserting task %s: %v", id, err)
	}
	return rec
}

func TestInsertAssignsTimestamps(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		rec := insertTask(t, c, "t1", "owner")

		if rec.String("id") != "t1" {
			t.Fatalf("id = %q, want t1", rec.String("id"))
		}
		if rec.Time("created_at").IsZero() {
			t.Fatal("created_at not assigned")
		}
		if rec.Time("updated_at").IsZero() {
			t.Fatal("updated_at not assigned")
		}
	})
}

func TestSelectFiltersAndOrders(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		for i, id := range []string{"c", "a", "b"} {
			_, err := c.Insert(ctx, recordstore.TableTasks, recordstore.Record{
				"id":         id,
				"title":      id,
				"column_key": "TODO",
				"owner_id":   "me",
				"created_at": base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatalf("inserting %s: %v", id, err)
			}
		}
		insertTask(t, c, "other", "someone-else")

		recs, err := c.Select(ctx, recordstore.TableTasks,
			recordstore.Eq("owner_id", "me"),
			recordstore.OrderBy("created_at", false))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		var got []string
		for _, r := range recs {
			got = append(got, r.String("id"))
		}
		want := []string{"c", "a", "b"}
		if len(got) != len(want) {
			t.Fatalf("ids = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ids = %v, want %v", got, want)
			}
		}

		recs, err = c.Select(ctx, recordstore.TableTasks,
			recordstore.Eq("owner_id", "me"),
			recordstore.OrderBy("created_at", true),
			recordstore.Limit(1),
			recordstore.Columns("id"))
		if err != nil {
			t.Fatalf("Select latest: %v", err)
		}
		if len(recs) != 1 || recs[0].String("id") != "b" {
			t.Fatalf("latest = %v, want [b]", recs)
		}
	})
}

func TestSelectEmptyInMatchesNothing(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		insertTask(t, c, "t1", "me")

		recs, err := c.Select(context.Background(), recordstore.TableTasks, recordstore.In("id"))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(recs) != 0 {
			t.Fatalf("got %d records, want 0", len(recs))
		}
	})
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		ctx := context.Background()
		insertTask(t, c, "t1", "me")
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		err := c.Upsert(ctx, recordstore.TableChecklistItems, []recordstore.Record{
			{"id": "i1", "task_id": "t1", "text": "first", "completed": false, "created_at": created},
			{"id": "i2", "task_id": "t1", "text": "second", "completed": true},
		}, "id")
		if err != nil {
			t.Fatalf("Upsert insert: %v", err)
		}

		err = c.Upsert(ctx, recordstore.TableChecklistItems, []recordstore.Record{
			{"id": "i1", "task_id": "t1", "text": "first edited", "completed": true, "created_at": time.Now()},
		}, "id")
		if err != nil {
			t.Fatalf("Upsert update: %v", err)
		}

		recs, err := c.Select(ctx, recordstore.TableChecklistItems, recordstore.Eq("id", "i1"))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("got %d records, want 1", len(recs))
		}
		r := recs[0]
		if r.String("text") != "first edited" {
			t.Errorf("text = %q, want %q", r.String("text"), "first edited")
		}
		if !r.Bool("completed") {
			t.Error("completed = false, want true")
		}
		if !r.Time("created_at").Equal(created) {
			t.Errorf("created_at = %v, want %v", r.Time("created_at"), created)
		}

		all, err := c.Select(ctx, recordstore.TableChecklistItems, recordstore.Eq("task_id", "t1"))
		if err != nil {
			t.Fatalf("Select all: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("got %d items, want 2", len(all))
		}
	})
}

func TestUpdatePatchesMatchingRows(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		ctx := context.Background()
		insertTask(t, c, "t1", "me")
		insertTask(t, c, "t2", "me")

		err := c.Update(ctx, recordstore.TableTasks,
			recordstore.Record{"column_key": "COMPLETED"},
			recordstore.Eq("id", "t2"))
		if err != nil {
			t.Fatalf("Update: %v", err)
		}

		recs, err := c.Select(ctx, recordstore.TableTasks,
			recordstore.Eq("column_key", "COMPLETED"))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(recs) != 1 || recs[0].String("id") != "t2" {
			t.Fatalf("completed tasks = %v, want [t2]", recs)
		}

		// Matching nothing is not an error.
		if err := c.Update(ctx, recordstore.TableTasks,
			recordstore.Record{"title": "x"}, recordstore.Eq("id", "missing")); err != nil {
			t.Fatalf("Update missing: %v", err)
		}
	})
}

func TestUnfilteredWritesRefused(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		ctx := context.Background()
		insertTask(t, c, "t1", "me")

		err := c.Update(ctx, recordstore.TableTasks, recordstore.Record{"title": "x"}, recordstore.Where())
		if !errors.Is(err, recordstore.ErrUnfiltered) {
			t.Fatalf("Update err = %v, want ErrUnfiltered", err)
		}
		err = c.Delete(ctx, recordstore.TableTasks, recordstore.Where())
		if !errors.Is(err, recordstore.ErrUnfiltered) {
			t.Fatalf("Delete err = %v, want ErrUnfiltered", err)
		}
	})
}

func TestDeleteTaskCascadesToItems(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		ctx := context.Background()
		insertTask(t, c, "t1", "me")
		insertTask(t, c, "t2", "me")
		err := c.Upsert(ctx, recordstore.TableChecklistItems, []recordstore.Record{
			{"id": "i1", "task_id": "t1", "text": "a", "completed": false},
			{"id": "i2", "task_id": "t2", "text": "b", "completed": false},
		}, "id")
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}

		if err := c.Delete(ctx, recordstore.TableTasks, recordstore.Eq("id", "t1")); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		items, err := c.Select(ctx, recordstore.TableChecklistItems,
			recordstore.In("task_id", "t1", "t2"))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(items) != 1 || items[0].String("id") != "i2" {
			t.Fatalf("items = %v, want [i2]", items)
		}
	})
}

func TestOrphanItemRejected(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		err := c.Upsert(context.Background(), recordstore.TableChecklistItems, []recordstore.Record{
			{"id": "i1", "task_id": "nope", "text": "a", "completed": false},
		}, "id")
		var re *recordstore.RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("err = %v, want *RemoteError", err)
		}
		if re.Message == "" {
			t.Fatal("RemoteError.Message is empty")
		}
	})
}

func TestUnknownColumnRejected(t *testing.T) {
	clients(t, func(t *testing.T, c recordstore.Client) {
		_, err := c.Select(context.Background(), recordstore.TableTasks,
			recordstore.Eq("title; DROP TABLE tasks", "x"))
		if err == nil {
			t.Fatal("expected error for unknown column")
		}
	})
}
