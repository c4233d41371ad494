package recordstore

// migration holds a single schema migration with its target version and
// the SQL for each supported dialect.
type migration struct {
	version  int
	sqlite   string
	postgres string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sqlite: `
CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	column_key     TEXT NOT NULL,
	owner_id       TEXT NOT NULL,
	priority       TEXT NOT NULL DEFAULT '',
	comments_count INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS checklist_items (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	completed  INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner_created ON tasks(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_checklist_items_task_id ON checklist_items(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
		postgres: `
CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	column_key     TEXT NOT NULL,
	owner_id       TEXT NOT NULL,
	priority       TEXT NOT NULL DEFAULT '',
	comments_count INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS checklist_items (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	completed  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner_created ON tasks(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_checklist_items_task_id ON checklist_items(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sqlite: `
CREATE TABLE IF NOT EXISTS release_updates (
	id           TEXT PRIMARY KEY,
	version_tag  TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	content_html TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_update_views (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	release_update_id      TEXT NOT NULL REFERENCES release_updates(id) ON DELETE CASCADE,
	login_count_for_update INTEGER NOT NULL DEFAULT 0,
	last_seen_at           DATETIME NOT NULL,
	UNIQUE(user_id, release_update_id)
);

INSERT INTO schema_version (version) VALUES (2);
`,
		postgres: `
CREATE TABLE IF NOT EXISTS release_updates (
	id           TEXT PRIMARY KEY,
	version_tag  TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	content_html TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_update_views (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	release_update_id      TEXT NOT NULL REFERENCES release_updates(id) ON DELETE CASCADE,
	login_count_for_update INTEGER NOT NULL DEFAULT 0,
	last_seen_at           TIMESTAMPTZ NOT NULL,
	UNIQUE(user_id, release_update_id)
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
