package model

import "time"

// ReleaseUpdate is a "what's new" announcement.
type ReleaseUpdate struct {
	ID          string    `json:"id" db:"id"`
	VersionTag  string    `json:"version_tag" db:"version_tag"`
	Title       string    `json:"title" db:"title"`
	ContentHTML string    `json:"content_html" db:"content_html"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserUpdateView counts how many times a user has been shown a release.
type UserUpdateView struct {
	ID                  string    `json:"id" db:"id"`
	UserID              string    `json:"user_id" db:"user_id"`
	ReleaseUpdateID     string    `json:"release_update_id" db:"release_update_id"`
	LoginCountForUpdate int       `json:"login_count_for_update" db:"login_count_for_update"`
	LastSeenAt          time.Time `json:"last_seen_at" db:"last_seen_at"`
}
