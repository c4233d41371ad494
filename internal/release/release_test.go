package release

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/weekly-planner/internal/recordstore"
)

func newNotifier(t *testing.T, maxShows int) (*Notifier, *recordstore.MemoryClient) {
	t.Helper()
	client := recordstore.NewMemoryClient()
	tick := 0
	client.SetClock(func() time.Time {
		tick++
		return time.Date(2026, 7, 1, 0, 0, tick, 0, time.UTC)
	})
	return NewNotifier(client, maxShows, nil), client
}

func TestCheckWithoutReleases(t *testing.T) {
	n, client := newNotifier(t, 3)

	notice, err := n.Check(context.Background(), "user")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if notice.Show {
		t.Fatal("notice shown without any release")
	}
	if got := client.Calls(recordstore.OpSelect, recordstore.TableUserUpdateViews); got != 0 {
		t.Fatalf("view selects = %d, want 0", got)
	}
}

func TestCheckShowsUpToMaxShows(t *testing.T) {
	n, client := newNotifier(t, 3)
	ctx := context.Background()

	if _, err := n.Publish(ctx, "v1.0", "Primeira versão", "<p>Olá</p>"); err != nil {
		t.Fatalf("Publish v1.0: %v", err)
	}
	rel, err := n.Publish(ctx, "v1.1", "Novidades", "<p>Checklists</p>")
	if err != nil {
		t.Fatalf("Publish v1.1: %v", err)
	}

	for i := 1; i <= 3; i++ {
		notice, err := n.Check(ctx, "user")
		if err != nil {
			t.Fatalf("Check #%d: %v", i, err)
		}
		if !notice.Show || notice.Count != i {
			t.Fatalf("Check #%d = show %v count %d", i, notice.Show, notice.Count)
		}
		if notice.Release.ID != rel.ID {
			t.Fatalf("Check #%d release = %s, want latest %s", i, notice.Release.VersionTag, rel.VersionTag)
		}
	}

	notice, err := n.Check(ctx, "user")
	if err != nil {
		t.Fatalf("Check #4: %v", err)
	}
	if notice.Show || notice.Count != 3 {
		t.Fatalf("Check #4 = show %v count %d, want hidden at 3", notice.Show, notice.Count)
	}

	// Another user starts from zero.
	if notice, err := n.Check(ctx, "other"); err != nil || !notice.Show || notice.Count != 1 {
		t.Fatalf("other user Check = %+v, %v", notice, err)
	}

	if rows := client.Rows(recordstore.TableUserUpdateViews); len(rows) != 2 {
		t.Fatalf("view rows = %d, want 2", len(rows))
	}
}

func TestCheckDisabled(t *testing.T) {
	n, client := newNotifier(t, 0)
	ctx := context.Background()
	if _, err := n.Publish(ctx, "v2", "x", ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	notice, err := n.Check(ctx, "user")
	if err != nil || notice.Show {
		t.Fatalf("Check = %+v, %v, want hidden", notice, err)
	}
	if rows := client.Rows(recordstore.TableUserUpdateViews); len(rows) != 0 {
		t.Fatalf("view rows = %d, want 0", len(rows))
	}
}

func TestCheckPropagatesErrors(t *testing.T) {
	n, client := newNotifier(t, 3)
	client.FailNext(recordstore.OpSelect, recordstore.TableReleaseUpdates, errors.New("offline"))

	if _, err := n.Check(context.Background(), "user"); err == nil {
		t.Fatal("Check succeeded, want error")
	}
}

func TestPublishRequiresVersion(t *testing.T) {
	n, _ := newNotifier(t, 3)
	if _, err := n.Publish(context.Background(), "  ", "t", ""); !errors.Is(err, ErrVersionRequired) {
		t.Fatalf("err = %v, want ErrVersionRequired", err)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "just text", "just text"},
		{
			name: "blocks and lists",
			in:   "<h2>Novidades</h2><p>Agora com <strong>checklists</strong>!</p><ul><li>Filtro</li><li>Ordenação</li></ul>",
			want: "Novidades\n\nAgora com checklists!\n\n• Filtro\n• Ordenação",
		},
		{"line breaks", "um<br>dois", "um\ndois"},
		{"whitespace collapses", "<p>  muitos \n\n espaços  </p>", "muitos espaços"},
		{"script dropped", "<p>ok</p><script>alert(1)</script>", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlainText(tt.in)
			if err != nil {
				t.Fatalf("PlainText: %v", err)
			}
			if got != tt.want {
				t.Errorf("PlainText = %q, want %q", got, tt.want)
			}
		})
	}
}
