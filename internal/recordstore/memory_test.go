package recordstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryClientFailNext(t *testing.T) {
	m := NewMemoryClient()
	ctx := context.Background()

	m.FailNext(OpSelect, TableTasks, errors.New("network error"))

	_, err := m.Select(ctx, TableTasks, Where())
	var re *RemoteError
	if !errors.As(err, &re) || re.Message != "network error" {
		t.Fatalf("first Select err = %v, want RemoteError network error", err)
	}

	if _, err := m.Select(ctx, TableTasks, Where()); err != nil {
		t.Fatalf("second Select err = %v, want nil", err)
	}
	if got := m.Calls(OpSelect, TableTasks); got != 2 {
		t.Fatalf("Calls = %d, want 2", got)
	}
}

func TestMemoryClientFailPersists(t *testing.T) {
	m := NewMemoryClient()
	ctx := context.Background()
	m.Fail(OpDelete, TableTasks, &RemoteError{Message: "denied", Code: "42501"})

	for i := 0; i < 2; i++ {
		if err := m.Delete(ctx, TableTasks, Eq("id", "x")); err == nil {
			t.Fatalf("Delete #%d succeeded, want failure", i+1)
		}
	}

	m.ClearFailures()
	if err := m.Delete(ctx, TableTasks, Eq("id", "x")); err != nil {
		t.Fatalf("Delete after clear: %v", err)
	}
}

func TestMemoryClientHold(t *testing.T) {
	m := NewMemoryClient()
	release := m.Hold(OpInsert, TableTasks)

	done := make(chan error, 1)
	go func() {
		_, err := m.Insert(context.Background(), TableTasks, Record{
			"id": "t1", "title": "x", "column_key": "TODO", "owner_id": "me",
		})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("Insert returned while held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Insert did not return after release")
	}

	if rows := m.Rows(TableTasks); len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
}

func TestMemoryClientHoldHonorsContext(t *testing.T) {
	m := NewMemoryClient()
	release := m.Hold(OpSelect, TableTasks)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Select(ctx, TableTasks, Where()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestMemoryClientDuplicateInsert(t *testing.T) {
	m := NewMemoryClient()
	ctx := context.Background()
	rec := Record{"id": "t1", "title": "x", "column_key": "TODO", "owner_id": "me"}

	if _, err := m.Insert(ctx, TableTasks, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err := m.Insert(ctx, TableTasks, rec)
	var re *RemoteError
	if !errors.As(err, &re) || re.Code != "23505" {
		t.Fatalf("duplicate Insert err = %v, want code 23505", err)
	}
}

func TestMemoryClientClock(t *testing.T) {
	m := NewMemoryClient()
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	m.SetClock(func() time.Time { return at })

	rec, err := m.Insert(context.Background(), TableTasks, Record{
		"id": "t1", "title": "x", "column_key": "TODO", "owner_id": "me",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !rec.Time("created_at").Equal(at) {
		t.Fatalf("created_at = %v, want %v", rec.Time("created_at"), at)
	}
}
