// Package release decides when to show the "what's new" notice for the
// latest release and renders its HTML body for the terminal.
package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/recordstore"
)

// ErrVersionRequired is returned by Publish for a release without a tag.
var ErrVersionRequired = errors.New("version tag required")

// Notice is the outcome of a Check.
type Notice struct {
	Release model.ReleaseUpdate

	// Show is set when the notice should be displayed on this login.
	Show bool

	// Count is how many logins the user has been shown this release,
	// including this one.
	Count int
}

// Notifier tracks per-user views of the latest release.
type Notifier struct {
	client   recordstore.Client
	maxShows int
	log      *zap.SugaredLogger
	newID    func() string
}

// NewNotifier returns a Notifier that shows each release for at most
// maxShows logins.
func NewNotifier(client recordstore.Client, maxShows int, log *zap.SugaredLogger) *Notifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Notifier{client: client, maxShows: maxShows, log: log, newID: uuid.NewString}
}

// Latest returns the most recent release, if any.
func (n *Notifier) Latest(ctx context.Context) (model.ReleaseUpdate, bool, error) {
	recs, err := n.client.Select(ctx, recordstore.TableReleaseUpdates, recordstore.Where(),
		recordstore.OrderBy("created_at", true), recordstore.Limit(1))
	if err != nil {
		return model.ReleaseUpdate{}, false, fmt.Errorf("fetching latest release: %w", err)
	}
	if len(recs) == 0 {
		return model.ReleaseUpdate{}, false, nil
	}
	return releaseFromRecord(recs[0]), true, nil
}

// Check counts this login against the latest release for userID. The
// first check for a release records a view with count 1; later checks
// increment it while it stays below the limit.
func (n *Notifier) Check(ctx context.Context, userID string) (Notice, error) {
	rel, ok, err := n.Latest(ctx)
	if err != nil || !ok {
		return Notice{}, err
	}
	notice := Notice{Release: rel}
	if n.maxShows <= 0 {
		return notice, nil
	}

	recs, err := n.client.Select(ctx, recordstore.TableUserUpdateViews,
		recordstore.Eq("user_id", userID).Eq("release_update_id", rel.ID),
		recordstore.Limit(1))
	if err != nil {
		return Notice{}, fmt.Errorf("fetching release view: %w", err)
	}

	if len(recs) == 0 {
		_, err := n.client.Insert(ctx, recordstore.TableUserUpdateViews, recordstore.Record{
			"id":                     n.newID(),
			"user_id":                userID,
			"release_update_id":      rel.ID,
			"login_count_for_update": 1,
		})
		if err != nil {
			return Notice{}, fmt.Errorf("recording release view: %w", err)
		}
		notice.Show = true
		notice.Count = 1
		return notice, nil
	}

	view := viewFromRecord(recs[0])
	notice.Count = view.LoginCountForUpdate
	if view.LoginCountForUpdate >= n.maxShows {
		return notice, nil
	}

	next := view.LoginCountForUpdate + 1
	err = n.client.Update(ctx, recordstore.TableUserUpdateViews,
		recordstore.Record{"login_count_for_update": next},
		recordstore.Eq("id", view.ID))
	if err != nil {
		return Notice{}, fmt.Errorf("updating release view: %w", err)
	}
	n.log.Debugw("release notice shown", "user_id", userID, "version", rel.VersionTag, "count", next)

	notice.Show = true
	notice.Count = next
	return notice, nil
}

// Publish stores a new release and returns it as stored.
func (n *Notifier) Publish(ctx context.Context, versionTag, title, contentHTML string) (model.ReleaseUpdate, error) {
	versionTag = strings.TrimSpace(versionTag)
	if versionTag == "" {
		return model.ReleaseUpdate{}, ErrVersionRequired
	}
	rec, err := n.client.Insert(ctx, recordstore.TableReleaseUpdates, recordstore.Record{
		"id":           n.newID(),
		"version_tag":  versionTag,
		"title":        strings.TrimSpace(title),
		"content_html": contentHTML,
	})
	if err != nil {
		return model.ReleaseUpdate{}, fmt.Errorf("publishing release %s: %w", versionTag, err)
	}
	return releaseFromRecord(rec), nil
}

func releaseFromRecord(r recordstore.Record) model.ReleaseUpdate {
	return model.ReleaseUpdate{
		ID:          r.String("id"),
		VersionTag:  r.String("version_tag"),
		Title:       r.String("title"),
		ContentHTML: r.String("content_html"),
		CreatedAt:   r.Time("created_at"),
	}
}

func viewFromRecord(r recordstore.Record) model.UserUpdateView {
	return model.UserUpdateView{
		ID:                  r.String("id"),
		UserID:              r.String("user_id"),
		ReleaseUpdateID:     r.String("release_update_id"),
		LoginCountForUpdate: r.Int("login_count_for_update"),
		LastSeenAt:          r.Time("last_seen_at"),
	}
}
